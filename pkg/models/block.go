package models

import "fmt"

// BlockKind discriminates the authored block variants. The set is closed;
// code that switches over kinds must handle every constant below.
type BlockKind string

const (
	KindText     BlockKind = "text"
	KindQuestion BlockKind = "question"
	KindButtons  BlockKind = "buttons"
	KindAudio    BlockKind = "audio"
	KindImage    BlockKind = "image"
	KindEmbed    BlockKind = "embed"
	KindRedirect BlockKind = "redirect"
	KindSection  BlockKind = "section"
)

// Kinds lists every valid block kind in a stable order.
var Kinds = []BlockKind{
	KindText, KindQuestion, KindButtons, KindAudio,
	KindImage, KindEmbed, KindRedirect, KindSection,
}

// Valid reports whether k is one of the known kinds.
func (k BlockKind) Valid() bool {
	switch k {
	case KindText, KindQuestion, KindButtons, KindAudio,
		KindImage, KindEmbed, KindRedirect, KindSection:
		return true
	}
	return false
}

// Pauses reports whether playback must wait for viewer input at this kind.
func (k BlockKind) Pauses() bool {
	return k == KindQuestion || k == KindButtons
}

// Playable reports whether the kind appears in the playback sequence.
// Sections are authoring-only grouping markers and are filtered out
// before cursor indexing.
func (k BlockKind) Playable() bool {
	return k != KindSection
}

// QuestionOptions configures the capture performed by a question block.
type QuestionOptions struct {
	// Type selects the answer validator: text|email|cpf|wpp|number.
	Type string `json:"type"`
	// Variable names the capture; later blocks reference it as {variable}.
	Variable string `json:"variable"`
}

// Block is one immutable authored unit of a chat script. The JSON field
// names are the persisted contract shared with the builder; kind-specific
// fields are omitempty so each stored record carries only its own payload.
type Block struct {
	ID       string    `json:"id"`
	Chat     string    `json:"chat"`
	Position int       `json:"position"`
	Kind     BlockKind `json:"kind"`

	// Text carries the message body for text/question/buttons and the
	// section label for sections.
	Text string `json:"text,omitempty"`

	// Delay configuration (text, question, buttons, audio, image).
	HasDynamicDelay bool `json:"has_dynamic_delay,omitempty"`
	DelayValue      int  `json:"delay_value,omitempty"` // milliseconds

	// Question payload.
	Options *QuestionOptions `json:"options,omitempty"`

	// Buttons payload.
	Buttons []string `json:"buttons,omitempty"`

	// Media / embed / redirect payload.
	URL           string `json:"url,omitempty"`
	MediaName     string `json:"media_name,omitempty"`
	Legend        string `json:"legend,omitempty"`
	EmbedType     string `json:"embed_type,omitempty"`
	RedirectBlank bool   `json:"redirect_blank,omitempty"`

	// Section payload.
	IsClosed bool `json:"is_closed,omitempty"`

	CreatedTS int64 `json:"created_ts,omitempty"`
}

// Validate checks the kind-specific payload shape of an authored block.
func (b Block) Validate() error {
	if !b.Kind.Valid() {
		return fmt.Errorf("unknown block kind %q", b.Kind)
	}
	switch b.Kind {
	case KindText:
		if b.Text == "" {
			return fmt.Errorf("text block requires text")
		}
	case KindQuestion:
		if b.Text == "" {
			return fmt.Errorf("question block requires text")
		}
		if b.Options == nil || b.Options.Variable == "" {
			return fmt.Errorf("question block requires options.variable")
		}
		if !ValidCaptureType(b.Options.Type) {
			return fmt.Errorf("unknown question type %q", b.Options.Type)
		}
	case KindButtons:
		if len(b.Buttons) == 0 {
			return fmt.Errorf("buttons block requires at least one button")
		}
	case KindAudio, KindImage, KindEmbed, KindRedirect:
		if b.URL == "" {
			return fmt.Errorf("%s block requires url", b.Kind)
		}
	case KindSection:
		if b.Text == "" {
			return fmt.Errorf("section block requires text")
		}
	}
	return nil
}

// captureTypes is the closed set of answer capture types.
var captureTypes = map[string]struct{}{
	"text": {}, "email": {}, "cpf": {}, "wpp": {}, "number": {},
}

// ValidCaptureType reports whether t is a known question capture type.
func ValidCaptureType(t string) bool {
	_, ok := captureTypes[t]
	return ok
}
