package player

import (
	"context"
	"errors"

	"fluxplay/pkg/answers"
	"fluxplay/pkg/delay"
	"fluxplay/pkg/logger"
	"fluxplay/pkg/models"
)

// AnswerFunc supplies the viewer's answer for a pausing block. It may
// block indefinitely; awaiting input has no timeout by design, since the
// conversation is viewer-paced.
type AnswerFunc func(ctx context.Context, b models.Block) (string, error)

// RenderFunc observes each rendered block as it is presented.
type RenderFunc func(b models.Block, res NextResult)

// Play drives one full run of a chat with real dwell waits. It is used by
// the preview simulator; the HTTP surface instead exposes the individual
// FetchNext/SubmitAnswer steps to the browser. Cancelling ctx discards
// the run as a unit: every pending timer and input wait unwinds and no
// compensating action is needed, since nothing was partially committed.
func (s *Sequencer) Play(ctx context.Context, chatID string, answer AnswerFunc, render RenderFunc) (*Run, error) {
	run := NewRun(chatID)
	s.sink.Emit(models.ActionEvent{Chat: chatID, Action: models.ActionViewed})
	run.State = StateRendering

	for {
		res, err := s.FetchNext(ctx, chatID, run.Cursor, run.ID)
		if err != nil {
			return run, err
		}
		if res.Completed {
			run.State = StateCompleted
			return run, nil
		}
		block := *res.Block
		if render != nil {
			render(block, res)
		}
		if err := s.wait(ctx, delay.ForBlock(block, block.Text)); err != nil {
			return run, err
		}

		switch {
		case res.Pause:
			run.State = StateAwaitingInput
			next, err := s.awaitAnswer(ctx, run, block, answer)
			if err != nil {
				return run, err
			}
			run.Cursor = next
			run.State = StateRendering

		case res.Terminal:
			run.State = StateRedirected
			if !block.RedirectBlank {
				// click-to-open presentation; the simulator counts the
				// click it would have performed
				s.sink.Emit(models.ActionEvent{
					Chat:           chatID,
					Action:         models.ActionClickedLink,
					ClickedLinkURL: block.URL,
				})
			}
			return run, nil

		default:
			run.State = StateAutoAdvancing
			if err := s.wait(ctx, delay.InterMessagePause); err != nil {
				return run, err
			}
			run.Cursor++
			run.State = StateRendering
		}
	}
}

// awaitAnswer re-prompts until the answer validates or ctx is cancelled.
func (s *Sequencer) awaitAnswer(ctx context.Context, run *Run, block models.Block, answer AnswerFunc) (int, error) {
	for {
		raw, err := answer(ctx, block)
		if err != nil {
			return run.Cursor, err
		}
		next, err := s.SubmitAnswer(ctx, run.Chat, run.Cursor, run.ID, raw)
		if err != nil {
			var verr *answers.ValidationError
			if errors.As(err, &verr) {
				logger.Debug("answer_rejected", "chat", run.Chat, "run", run.ID, "reason", verr.Reason)
				continue
			}
			return run.Cursor, err
		}
		return next, nil
	}
}
