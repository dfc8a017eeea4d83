package models

// Action names an analytics fact emitted during playback.
type Action string

const (
	ActionViewed           Action = "viewed"
	ActionAnsweredQuestion Action = "answered_question"
	ActionClickedButton    Action = "clicked_button"
	ActionClickedLink      Action = "clicked_link"
	ActionFluxCompleted    Action = "flux_completed"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionViewed, ActionAnsweredQuestion, ActionClickedButton,
		ActionClickedLink, ActionFluxCompleted:
		return true
	}
	return false
}

// ActionEvent is one append-only analytics record. Events are never
// mutated or deleted (retention purges whole entries by age only).
type ActionEvent struct {
	Chat   string `json:"chat"`
	Action Action `json:"action"`

	QuestionType     string `json:"question_type,omitempty"`
	QuestionVariable string `json:"question_variable,omitempty"`
	QuestionAnswer   string `json:"question_answer,omitempty"`
	QuestionText     string `json:"question_text,omitempty"`
	ButtonQuestion   string `json:"button_question,omitempty"`
	ButtonAnswer     string `json:"button_answer,omitempty"`
	ClickedLinkURL   string `json:"clicked_link_url,omitempty"`

	TS int64 `json:"ts"`
}
