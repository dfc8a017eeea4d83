package models

import "testing"

// TestBlockKindPredicates verifies the pause and playable classification.
func TestBlockKindPredicates(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Fatalf("kind %s should be valid", k)
		}
	}
	if BlockKind("video").Valid() {
		t.Fatalf("unknown kind must be invalid")
	}
	if !KindQuestion.Pauses() || !KindButtons.Pauses() {
		t.Fatalf("question and buttons must pause")
	}
	if KindText.Pauses() || KindRedirect.Pauses() {
		t.Fatalf("text and redirect must not pause")
	}
	if KindSection.Playable() {
		t.Fatalf("sections must not be playable")
	}
	if !KindRedirect.Playable() {
		t.Fatalf("redirect must be playable")
	}
}

// TestBlockValidate exercises the kind-specific payload checks.
func TestBlockValidate(t *testing.T) {
	cases := []struct {
		name    string
		b       Block
		wantErr bool
	}{
		{"text ok", Block{Kind: KindText, Text: "hi"}, false},
		{"text empty", Block{Kind: KindText}, true},
		{"question ok", Block{Kind: KindQuestion, Text: "email?", Options: &QuestionOptions{Type: "email", Variable: "email"}}, false},
		{"question no options", Block{Kind: KindQuestion, Text: "email?"}, true},
		{"question bad type", Block{Kind: KindQuestion, Text: "x?", Options: &QuestionOptions{Type: "zipcode", Variable: "z"}}, true},
		{"buttons ok", Block{Kind: KindButtons, Text: "pick", Buttons: []string{"yes", "no"}}, false},
		{"buttons empty", Block{Kind: KindButtons, Text: "pick"}, true},
		{"audio ok", Block{Kind: KindAudio, URL: "https://cdn/x.mp3"}, false},
		{"redirect no url", Block{Kind: KindRedirect}, true},
		{"section ok", Block{Kind: KindSection, Text: "Part 1"}, false},
		{"unknown kind", Block{Kind: "video"}, true},
	}
	for _, c := range cases {
		err := c.b.Validate()
		if c.wantErr && err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
		if !c.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
	}
}

// TestActionValid verifies the closed action set.
func TestActionValid(t *testing.T) {
	for _, a := range []Action{ActionViewed, ActionAnsweredQuestion, ActionClickedButton, ActionClickedLink, ActionFluxCompleted} {
		if !a.Valid() {
			t.Fatalf("action %s should be valid", a)
		}
	}
	if Action("scrolled").Valid() {
		t.Fatalf("unknown action must be invalid")
	}
}
