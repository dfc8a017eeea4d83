package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fluxplay/pkg/actionlog"
	"fluxplay/pkg/auth"
	"fluxplay/pkg/config"
	"fluxplay/pkg/models"
	"fluxplay/pkg/player"
	"fluxplay/pkg/store"
)

const testKey = "test-backend-key"

// setupServer opens a throwaway store and serves the full router.
func setupServer(t *testing.T) (*httptest.Server, *actionlog.Sink) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	config.SetRuntime(&config.RuntimeConfig{
		BackendKeys: map[string]struct{}{testKey: {}},
	})

	logs := actionlog.New(64, 1, store.AppendAction)
	logs.Start(context.Background())
	seq := player.NewSequencer(store.Playback(), logs)

	srv := httptest.NewServer(Handler(Deps{Seq: seq, Logs: logs, Limit: auth.LimitConfig{RPS: 1000, Burst: 1000}}))
	t.Cleanup(func() {
		srv.Close()
		logs.Close()
		if err := store.Close(); err != nil {
			t.Fatalf("store.Close: %v", err)
		}
	})
	return srv, logs
}

func seedChat(t *testing.T, blocks ...models.Block) {
	t.Helper()
	if err := store.SaveChat(models.Chat{ID: "c1", Title: "Demo", Slug: "demo-c1", CreatedTS: 1}); err != nil {
		t.Fatalf("SaveChat: %v", err)
	}
	for i, b := range blocks {
		b.Chat = "c1"
		b.Position = i
		if b.ID == "" {
			t.Fatalf("seed block %d needs an id", i)
		}
		if err := store.SaveBlock(b); err != nil {
			t.Fatalf("SaveBlock: %v", err)
		}
	}
}

func doJSON(t *testing.T, method, url string, body any, key string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	return resp
}

// TestHealthz verifies the liveness probe reflects store readiness.
func TestHealthz(t *testing.T) {
	srv, _ := setupServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200; got %d", resp.StatusCode)
	}
}

// TestPlaybackNext verifies the public fetch-next endpoint end to end:
// section filtering, substitution and the completion sentinel.
func TestPlaybackNext(t *testing.T) {
	srv, _ := setupServer(t)
	seedChat(t,
		models.Block{ID: "b1", Kind: models.KindText, Text: "hello {name}"},
		models.Block{ID: "s1", Kind: models.KindSection, Text: "Part"},
		models.Block{ID: "b2", Kind: models.KindText, Text: "bye"},
	)
	if err := store.SaveCapture(models.Capture{Name: "name", Value: "Ana", Chat: "c1", Run: "r1", CreatedTS: 1}); err != nil {
		t.Fatalf("SaveCapture: %v", err)
	}

	var res player.NextResult
	resp := doJSON(t, http.MethodGet, srv.URL+"/v1/chats/c1/next?cursor=0&run=r1", nil, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200; got %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Block == nil || res.Block.Text != "hello Ana" {
		t.Fatalf("unexpected block: %+v", res.Block)
	}

	// cursor 1 skips the section
	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/chats/c1/next?cursor=1&run=r1", nil, "")
	defer resp.Body.Close()
	res = player.NextResult{}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Block == nil || res.Block.ID != "b2" {
		t.Fatalf("expected b2; got %+v", res.Block)
	}

	// past the end reports completion
	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/chats/c1/next?cursor=2&run=r1", nil, "")
	defer resp.Body.Close()
	res = player.NextResult{}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Completed {
		t.Fatalf("expected completion; got %+v", res)
	}
}

// TestPlaybackNextValidation verifies parameter and existence checks.
func TestPlaybackNextValidation(t *testing.T) {
	srv, _ := setupServer(t)
	seedChat(t, models.Block{ID: "b1", Kind: models.KindText, Text: "hi"})

	resp := doJSON(t, http.MethodGet, srv.URL+"/v1/chats/c1/next?cursor=0", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing run: expected 400; got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/chats/c1/next?cursor=-2&run=r1", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative cursor: expected 400; got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/chats/nope/next?cursor=0&run=r1", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown chat: expected 404; got %d", resp.StatusCode)
	}
}

// TestPlaybackAnswers verifies the answer endpoint: accept, validation
// rejection and the not-awaiting conflict.
func TestPlaybackAnswers(t *testing.T) {
	srv, _ := setupServer(t)
	seedChat(t,
		models.Block{ID: "q1", Kind: models.KindQuestion, Text: "email?",
			Options: &models.QuestionOptions{Type: "email", Variable: "email"}},
		models.Block{ID: "b1", Kind: models.KindText, Text: "thanks"},
	)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/chats/c1/answers",
		map[string]any{"cursor": 0, "run": "r1", "answer": "bad"}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid answer: expected 422; got %d", resp.StatusCode)
	}
	var rejection map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&rejection); err != nil {
		t.Fatalf("decode rejection: %v", err)
	}
	if rejection["type"] != "email" || rejection["error"] == "" {
		t.Fatalf("unexpected rejection body: %v", rejection)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/chats/c1/answers",
		map[string]any{"cursor": 0, "run": "r1", "answer": "ana@example.com"}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid answer: expected 200; got %d", resp.StatusCode)
	}
	var ok map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ok["next_index"] != 1 {
		t.Fatalf("expected next_index 1; got %d", ok["next_index"])
	}

	vars, err := store.LatestCaptures("c1", "r1")
	if err != nil {
		t.Fatalf("LatestCaptures: %v", err)
	}
	if vars["email"] != "ana@example.com" {
		t.Fatalf("capture not persisted: %v", vars)
	}

	// a text block never awaits input
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/chats/c1/answers",
		map[string]any{"cursor": 1, "run": "r1", "answer": "x"}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409; got %d", resp.StatusCode)
	}
}

// TestPlaybackActions verifies client-reported analytics acceptance.
func TestPlaybackActions(t *testing.T) {
	srv, logs := setupServer(t)
	seedChat(t, models.Block{ID: "b1", Kind: models.KindText, Text: "hi"})

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/chats/c1/actions",
		map[string]any{"action": "viewed"}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202; got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/chats/c1/actions",
		map[string]any{"action": "scrolled"}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown action: expected 400; got %d", resp.StatusCode)
	}

	// drain the sink so the append is visible
	logs.Close()
	events, err := store.ListActions("c1")
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(events) != 1 || events[0].Action != models.ActionViewed {
		t.Fatalf("unexpected events: %+v", events)
	}
}

// TestAuthoringRequiresKey verifies the authoring surface rejects
// anonymous and wrong-key callers but playback stays public.
func TestAuthoringRequiresKey(t *testing.T) {
	srv, _ := setupServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/chats", map[string]any{"title": "X"}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no key: expected 401; got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/chats", map[string]any{"title": "X"}, "wrong")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong key: expected 401; got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/chats", map[string]any{"title": "X"}, testKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid key: expected 200; got %d", resp.StatusCode)
	}
	var c models.Chat
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if c.ID == "" || c.Slug == "" {
		t.Fatalf("expected generated id and slug; got %+v", c)
	}
}

// TestAuthoringBlockLifecycle drives the block CRUD surface over HTTP.
func TestAuthoringBlockLifecycle(t *testing.T) {
	srv, _ := setupServer(t)
	seedChat(t)

	mk := func(kind, text string) models.Block {
		resp := doJSON(t, http.MethodPost, srv.URL+"/v1/chats/c1/blocks",
			models.Block{Kind: models.BlockKind(kind), Text: text}, testKey)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("create block: expected 200; got %d", resp.StatusCode)
		}
		var b models.Block
		if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
			t.Fatalf("decode block: %v", err)
		}
		return b
	}
	b1 := mk("text", "first")
	b2 := mk("text", "second")
	if b1.Position != 0 || b2.Position != 1 {
		t.Fatalf("expected appended positions 0,1; got %d,%d", b1.Position, b2.Position)
	}

	// invalid payloads are rejected before storage
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/chats/c1/blocks",
		models.Block{Kind: models.KindRedirect}, testKey)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid block: expected 400; got %d", resp.StatusCode)
	}

	// reorder
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/chats/c1/blocks/reorder",
		map[string]any{"order": []string{b2.ID, b1.ID}}, testKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reorder: expected 200; got %d", resp.StatusCode)
	}
	var listing struct {
		Blocks []models.Block `json:"blocks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Blocks) != 2 || listing.Blocks[0].ID != b2.ID {
		t.Fatalf("unexpected order: %+v", listing.Blocks)
	}

	// delete
	resp = doJSON(t, http.MethodDelete, srv.URL+"/v1/chats/c1/blocks/"+b1.ID, nil, testKey)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204; got %d", resp.StatusCode)
	}
	blocks, err := store.ListBlocks("c1")
	if err != nil {
		t.Fatalf("ListBlocks: %v", err)
	}
	if len(blocks) != 1 || blocks[0].ID != b2.ID {
		t.Fatalf("expected only %s to survive; got %+v", b2.ID, blocks)
	}
}

// TestAnalyticsExports verifies the captures and actions listings used by
// the builder dashboard.
func TestAnalyticsExports(t *testing.T) {
	srv, _ := setupServer(t)
	seedChat(t, models.Block{ID: "b1", Kind: models.KindText, Text: "hi"})
	if err := store.SaveCapture(models.Capture{Name: "email", Value: "a@b.co", Chat: "c1", Run: "r1", CreatedTS: 1}); err != nil {
		t.Fatalf("SaveCapture: %v", err)
	}
	if err := store.AppendAction(models.ActionEvent{Chat: "c1", Action: models.ActionViewed}); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/v1/chats/c1/captures", nil, testKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("captures: expected 200; got %d", resp.StatusCode)
	}
	var caps struct {
		Captures []models.Capture `json:"captures"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&caps); err != nil {
		t.Fatalf("decode captures: %v", err)
	}
	if len(caps.Captures) != 1 || caps.Captures[0].Value != "a@b.co" {
		t.Fatalf("unexpected captures: %+v", caps.Captures)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/chats/c1/actions?limit=10", nil, testKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("actions: expected 200; got %d", resp.StatusCode)
	}
	var events struct {
		Events []models.ActionEvent `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events.Events) != 1 || events.Events[0].Action != models.ActionViewed {
		t.Fatalf("unexpected events: %+v", events.Events)
	}
}
