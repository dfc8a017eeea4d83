package models

// Capture is a named value recorded from viewer input during one run.
// Captures are append-only; the identity (chat, run, name) may be written
// more than once and the most recent write wins for substitution.
type Capture struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Chat      string `json:"chat"`
	Run       string `json:"run"`
	CreatedTS int64  `json:"created_ts"`
}
