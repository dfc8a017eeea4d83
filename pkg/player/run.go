package player

import "fluxplay/pkg/utils"

// State is the playback lifecycle position of a run.
type State string

const (
	StateIdle          State = "idle"
	StateRendering     State = "rendering"
	StateAutoAdvancing State = "auto_advancing"
	StateAwaitingInput State = "awaiting_input"
	StateCompleted     State = "completed"
	StateRedirected    State = "redirected"
)

// Terminal reports whether no further advancement is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateRedirected
}

// Run is one playback instance of a chat by one viewer. It lives in
// memory for the duration of a session; nothing but captures and log
// events survives it. Cursor always indexes the Section-filtered block
// list, never raw authored positions.
type Run struct {
	ID     string
	Chat   string
	Cursor int
	State  State
}

// NewRun creates a fresh run for a chat. Run ids are never reused; a
// reloaded page starts a new run rather than resuming the old one.
func NewRun(chatID string) *Run {
	return &Run{ID: utils.GenID(), Chat: chatID, State: StateIdle}
}
