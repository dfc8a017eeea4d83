package models

// Chat is the authored conversation template that blocks belong to.
type Chat struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	// Slug is generated from title and id for human-friendly share links.
	Slug string `json:"slug,omitempty"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
	// Updated timestamp (ns) - last authoring change
	UpdatedTS int64 `json:"updated_ts,omitempty"`
}
