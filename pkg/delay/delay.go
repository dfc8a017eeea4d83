// Package delay computes the simulated typing dwell time for a block.
package delay

import (
	"time"
	"unicode/utf8"

	"fluxplay/pkg/models"
)

const (
	// PerChar is the dynamic-delay cost per rendered character.
	PerChar = 50 * time.Millisecond
	// MaxDynamic caps the dynamic delay regardless of text length.
	MaxDynamic = 3000 * time.Millisecond
	// Audio is the flat dwell for audio blocks under dynamic delay; it
	// stands in for the simulated "recording" time.
	Audio = 1500 * time.Millisecond
	// Image is the flat dwell for image blocks under dynamic delay.
	Image = 1000 * time.Millisecond
	// Embed is the fixed short dwell before an embed auto-advances.
	Embed = 1000 * time.Millisecond
	// Redirect is the fixed short dwell before an auto-redirect fires.
	Redirect = 1000 * time.Millisecond
	// Floor is used when dynamic delay is enabled but there is no text
	// to measure, so a render never collapses to a zero wait.
	Floor = 1000 * time.Millisecond
	// InterMessagePause is the fixed pause applied after rendering a
	// non-pausing block and before advancing, emulating reading time.
	InterMessagePause = 750 * time.Millisecond
)

// ForBlock returns the dwell time for a block. rendered must be the
// post-substitution text for text-bearing kinds, since the viewer sees
// the substituted message. Authors configuring an explicit delay_value
// are trusted; no upper bound is applied to it.
func ForBlock(b models.Block, rendered string) time.Duration {
	switch b.Kind {
	case models.KindEmbed:
		return Embed
	case models.KindRedirect:
		return Redirect
	case models.KindAudio:
		if b.HasDynamicDelay {
			return Audio
		}
		return explicit(b)
	case models.KindImage:
		if b.HasDynamicDelay {
			return Image
		}
		return explicit(b)
	case models.KindText, models.KindQuestion, models.KindButtons:
		if b.HasDynamicDelay {
			return Dynamic(rendered)
		}
		return explicit(b)
	default:
		// sections never render; keep a harmless floor for safety
		return Floor
	}
}

// Dynamic computes the text-length dwell: 50ms per character, capped at
// 3000ms, with a floor when there is nothing to measure.
func Dynamic(rendered string) time.Duration {
	n := utf8.RuneCountInString(rendered)
	if n == 0 {
		return Floor
	}
	d := time.Duration(n) * PerChar
	if d > MaxDynamic {
		return MaxDynamic
	}
	return d
}

func explicit(b models.Block) time.Duration {
	if b.DelayValue <= 0 {
		return Floor
	}
	return time.Duration(b.DelayValue) * time.Millisecond
}
