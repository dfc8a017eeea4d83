package store

import "fluxplay/pkg/models"

// PlaybackView adapts the package-level store functions to the narrow
// interface the playback engine consumes.
type PlaybackView struct{}

// Playback returns the store's playback view.
func Playback() PlaybackView { return PlaybackView{} }

func (PlaybackView) ListBlocks(chatID string) ([]models.Block, error) {
	return ListBlocks(chatID)
}

func (PlaybackView) LatestCaptures(chatID, runID string) (map[string]string, error) {
	return LatestCaptures(chatID, runID)
}

func (PlaybackView) SaveCapture(c models.Capture) error {
	return SaveCapture(c)
}
