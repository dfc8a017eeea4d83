package substitute

import (
	"reflect"
	"testing"

	"fluxplay/pkg/models"
)

// TestApplyReplacesKnownNames verifies basic placeholder substitution.
func TestApplyReplacesKnownNames(t *testing.T) {
	vars := map[string]string{"name": "Ana", "city": "Recife"}
	got := Apply("Olá {name}, bem-vinda a {city}!", vars)
	if got != "Olá Ana, bem-vinda a Recife!" {
		t.Fatalf("unexpected result: %q", got)
	}
}

// TestApplyLeavesUnknownNamesVerbatim verifies that unresolved
// placeholders pass through untouched.
func TestApplyLeavesUnknownNamesVerbatim(t *testing.T) {
	got := Apply("hello {missing}", map[string]string{"name": "Ana"})
	if got != "hello {missing}" {
		t.Fatalf("expected verbatim placeholder; got %q", got)
	}
}

// TestApplyIsIdempotent verifies that re-applying over already substituted
// text changes nothing.
func TestApplyIsIdempotent(t *testing.T) {
	vars := map[string]string{"email": "a@b.co"}
	once := Apply("we sent it to {email} ({missing})", vars)
	twice := Apply(once, vars)
	if once != twice {
		t.Fatalf("not idempotent: %q vs %q", once, twice)
	}
}

// TestApplyEmptyInputs verifies the fast paths.
func TestApplyEmptyInputs(t *testing.T) {
	if got := Apply("", map[string]string{"a": "b"}); got != "" {
		t.Fatalf("empty text: got %q", got)
	}
	if got := Apply("{a}", nil); got != "{a}" {
		t.Fatalf("nil vars: got %q", got)
	}
}

// TestNames verifies placeholder extraction order and dedup.
func TestNames(t *testing.T) {
	got := Names("{b} then {a} then {b} again")
	want := []string{"b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v; got %v", want, got)
	}
	if got := Names("no placeholders here"); got != nil {
		t.Fatalf("expected nil; got %v", got)
	}
}

// TestApplyBlockRewritesTextAndLegend verifies that only human-visible
// fields are substituted; the URL must never be rewritten.
func TestApplyBlockRewritesTextAndLegend(t *testing.T) {
	b := models.Block{
		Kind:   models.KindImage,
		Text:   "look, {name}",
		Legend: "photo for {name}",
		URL:    "https://cdn.example.com/{name}.png",
	}
	out := ApplyBlock(b, map[string]string{"name": "Ana"})
	if out.Text != "look, Ana" {
		t.Fatalf("text not substituted: %q", out.Text)
	}
	if out.Legend != "photo for Ana" {
		t.Fatalf("legend not substituted: %q", out.Legend)
	}
	if out.URL != "https://cdn.example.com/{name}.png" {
		t.Fatalf("url must stay verbatim: %q", out.URL)
	}
}
