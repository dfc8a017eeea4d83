// Package player implements the scripted-conversation playback engine:
// cursor-addressed iteration over a chat's blocks with per-block dwell
// times, variable substitution, answer validation and analytics emission.
package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fluxplay/pkg/answers"
	"fluxplay/pkg/delay"
	"fluxplay/pkg/logger"
	"fluxplay/pkg/models"
	"fluxplay/pkg/substitute"
)

// Store is the narrow persistence surface the sequencer consumes. Blocks
// are read-only here; captures are append-only.
type Store interface {
	ListBlocks(chatID string) ([]models.Block, error)
	LatestCaptures(chatID, runID string) (map[string]string, error)
	SaveCapture(c models.Capture) error
}

// Sink receives lifecycle events. Implementations must be safe to call
// from request goroutines and must never block playback; failures are
// the sink's problem, not the sequencer's.
type Sink interface {
	Emit(e models.ActionEvent)
}

// ErrNotAwaitingInput is returned when an answer is submitted against a
// block that does not pause for input.
var ErrNotAwaitingInput = errors.New("block does not await input")

// NextResult is the outcome of one fetch-next operation. When Completed
// is set no block is present and the run is over.
type NextResult struct {
	Block     *models.Block `json:"block,omitempty"`
	Completed bool          `json:"completed"`
	// DelayMs is the dwell the presenter should wait before showing the
	// block (plus the inter-message pause before advancing).
	DelayMs int64 `json:"delay_ms,omitempty"`
	// Pause means the block awaits viewer input; there is no timeout.
	Pause bool `json:"pause,omitempty"`
	// Terminal means the block ends the run (redirect).
	Terminal bool `json:"terminal,omitempty"`
}

// Sequencer executes playback against a Store and emits analytics to a
// Sink. It holds no per-run state besides completion tracking; every
// fetch is a pure function of (chat, cursor, run) so a reload can re-issue
// the same request and observe the same block.
type Sequencer struct {
	store Store
	sink  Sink

	// wait suspends between blocks in Play; overridable in tests.
	wait func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	done map[string]struct{}
}

// maxTrackedRuns bounds the completion-dedup set. Runs are ephemeral, so
// dropping the set on overflow only risks a duplicate flux_completed in
// an already-degenerate scenario.
const maxTrackedRuns = 65536

// NewSequencer builds a sequencer over the given store and sink.
func NewSequencer(store Store, sink Sink) *Sequencer {
	return &Sequencer{
		store: store,
		sink:  sink,
		wait:  defaultWait,
		done:  make(map[string]struct{}),
	}
}

// playable returns the Section-filtered block list for a chat, in
// ascending position order. The cursor indexes this list.
func (s *Sequencer) playable(chatID string) ([]models.Block, error) {
	blocks, err := s.store.ListBlocks(chatID)
	if err != nil {
		// one silent retry; block reads are on the critical path
		blocks, err = s.store.ListBlocks(chatID)
		if err != nil {
			return nil, fmt.Errorf("fetch blocks: %w", err)
		}
	}
	out := blocks[:0:0]
	for _, b := range blocks {
		if b.Kind.Playable() {
			out = append(out, b)
		}
	}
	return out, nil
}

// FetchNext resolves the block at cursor for a run, with substitution
// applied and the dwell time computed. Past the end of the filtered list
// it reports completion and emits flux_completed once per run.
func (s *Sequencer) FetchNext(ctx context.Context, chatID string, cursor int, runID string) (NextResult, error) {
	if err := ctx.Err(); err != nil {
		return NextResult{}, err
	}
	blocks, err := s.playable(chatID)
	if err != nil {
		return NextResult{}, err
	}
	if cursor < 0 {
		return NextResult{}, fmt.Errorf("negative cursor %d", cursor)
	}
	if cursor >= len(blocks) {
		s.emitCompletedOnce(chatID, runID)
		return NextResult{Completed: true}, nil
	}

	block := blocks[cursor]
	vars, err := s.captures(chatID, runID)
	if err != nil {
		return NextResult{}, err
	}
	rendered := substitute.ApplyBlock(block, vars)
	metricFetches.Inc()

	res := NextResult{
		Block:    &rendered,
		DelayMs:  delay.ForBlock(rendered, rendered.Text).Milliseconds(),
		Pause:    rendered.Kind.Pauses(),
		Terminal: rendered.Kind == models.KindRedirect,
	}
	// an auto-opening redirect counts as a link click the moment it is
	// served; click-to-open redirects report through the action endpoint
	if res.Terminal && rendered.RedirectBlank {
		s.sink.Emit(models.ActionEvent{
			Chat:           chatID,
			Action:         models.ActionClickedLink,
			ClickedLinkURL: rendered.URL,
		})
	}
	return res, nil
}

// SubmitAnswer validates the viewer's answer for the pausing block at
// cursor, persists the capture (questions) and emits the matching event.
// It returns the next cursor. Validation failures leave the cursor where
// it is and write nothing.
//
// The capture type is re-derived from the stored block; a client-supplied
// type is never trusted.
func (s *Sequencer) SubmitAnswer(ctx context.Context, chatID string, cursor int, runID, raw string) (int, error) {
	if err := ctx.Err(); err != nil {
		return cursor, err
	}
	blocks, err := s.playable(chatID)
	if err != nil {
		return cursor, err
	}
	if cursor < 0 || cursor >= len(blocks) {
		return cursor, ErrNotAwaitingInput
	}
	block := blocks[cursor]

	switch block.Kind {
	case models.KindQuestion:
		if block.Options == nil {
			return cursor, fmt.Errorf("question block %s has no options", block.ID)
		}
		val, err := answers.Validate(raw, answers.CaptureType(block.Options.Type))
		if err != nil {
			metricRejected.Inc()
			return cursor, err
		}
		s.saveCapture(models.Capture{
			Name:  block.Options.Variable,
			Value: val,
			Chat:  chatID,
			Run:   runID,
		})
		s.sink.Emit(models.ActionEvent{
			Chat:             chatID,
			Action:           models.ActionAnsweredQuestion,
			QuestionType:     block.Options.Type,
			QuestionVariable: block.Options.Variable,
			QuestionAnswer:   val,
			QuestionText:     block.Text,
		})
		metricAnswers.Inc()
		return cursor + 1, nil

	case models.KindButtons:
		choice := strings.TrimSpace(raw)
		ok := false
		for _, b := range block.Buttons {
			if b == choice {
				ok = true
				break
			}
		}
		if !ok {
			metricRejected.Inc()
			return cursor, &answers.ValidationError{Type: answers.TypeText, Reason: "choose one of the offered buttons"}
		}
		s.sink.Emit(models.ActionEvent{
			Chat:           chatID,
			Action:         models.ActionClickedButton,
			ButtonQuestion: block.Text,
			ButtonAnswer:   choice,
		})
		metricAnswers.Inc()
		return cursor + 1, nil

	default:
		return cursor, ErrNotAwaitingInput
	}
}

// captures reads the run's variables with one silent retry.
func (s *Sequencer) captures(chatID, runID string) (map[string]string, error) {
	vars, err := s.store.LatestCaptures(chatID, runID)
	if err != nil {
		vars, err = s.store.LatestCaptures(chatID, runID)
		if err != nil {
			return nil, fmt.Errorf("fetch captures: %w", err)
		}
	}
	return vars, nil
}

// saveCapture persists best-effort with one retry. A failed capture is
// logged but never blocks the state transition.
func (s *Sequencer) saveCapture(c models.Capture) {
	if err := s.store.SaveCapture(c); err != nil {
		if err = s.store.SaveCapture(c); err != nil {
			logger.Error("capture_persist_failed", "chat", c.Chat, "run", c.Run, "name", c.Name, "error", err)
		}
	}
}

func (s *Sequencer) emitCompletedOnce(chatID, runID string) {
	key := chatID + "|" + runID
	s.mu.Lock()
	if _, seen := s.done[key]; seen {
		s.mu.Unlock()
		return
	}
	if len(s.done) >= maxTrackedRuns {
		s.done = make(map[string]struct{})
	}
	s.done[key] = struct{}{}
	s.mu.Unlock()

	s.sink.Emit(models.ActionEvent{Chat: chatID, Action: models.ActionFluxCompleted})
	metricCompletions.Inc()
}

func defaultWait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
