package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"fluxplay/pkg/logger"
	"fluxplay/pkg/models"
	"fluxplay/pkg/store"
	"fluxplay/pkg/utils"
)

// RegisterChats registers the authoring endpoints for chat templates.
func RegisterChats(r *mux.Router) {
	r.HandleFunc("/chats", createChat).Methods(http.MethodPost)
	r.HandleFunc("/chats", listChats).Methods(http.MethodGet)
	r.HandleFunc("/chats/{chat}", getChat).Methods(http.MethodGet)
	r.HandleFunc("/chats/{chat}", updateChat).Methods(http.MethodPut)
	r.HandleFunc("/chats/{chat}", deleteChat).Methods(http.MethodDelete)

	// analytics exports for the builder dashboard
	r.HandleFunc("/chats/{chat}/captures", listChatCaptures).Methods(http.MethodGet)
	r.HandleFunc("/chats/{chat}/actions", listChatActions).Methods(http.MethodGet)
}

func createChat(w http.ResponseWriter, r *http.Request) {
	var c models.Chat
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if c.ID == "" {
		c.ID = utils.GenChatID()
	}
	if c.CreatedTS == 0 {
		c.CreatedTS = time.Now().UTC().UnixNano()
	}
	c.UpdatedTS = c.CreatedTS
	if c.Slug == "" {
		c.Slug = slugify(c.Title, c.ID)
	}
	if err := store.SaveChat(c); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("chat_created", "chat", c.ID, "slug", c.Slug)
	_ = utils.JSONWrite(w, http.StatusOK, c)
}

func listChats(w http.ResponseWriter, r *http.Request) {
	chats, err := store.ListChats()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Chats []models.Chat `json:"chats"`
	}{Chats: chats})
}

func getChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["chat"]
	c, err := store.GetChat(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, c)
}

func updateChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["chat"]
	existing, err := store.GetChat(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var c models.Chat
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	c.ID = id
	c.CreatedTS = existing.CreatedTS
	c.UpdatedTS = time.Now().UTC().UnixNano()
	if c.Slug == "" {
		c.Slug = slugify(c.Title, c.ID)
	}
	if err := store.SaveChat(c); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, c)
}

func deleteChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["chat"]
	if _, err := store.GetChat(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := store.DeleteChat(id); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listChatCaptures(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["chat"]
	caps, err := store.ListCaptures(id)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Chat     string           `json:"chat"`
		Captures []models.Capture `json:"captures"`
	}{Chat: id, Captures: caps})
}

func listChatActions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["chat"]
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if n, err := strconv.Atoi(ls); err == nil && n > 0 {
			limit = n
		}
	}
	events, err := store.ListActions(id, limit)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Chat   string               `json:"chat"`
		Events []models.ActionEvent `json:"events"`
	}{Chat: id, Events: events})
}

// slugify builds a human-friendly share slug from the title plus an id
// fragment for uniqueness.
func slugify(title, id string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	frag := id
	if i := strings.LastIndex(id, "-"); i >= 0 && i+1 < len(id) {
		frag = id[i+1:]
	}
	if len(frag) > 8 {
		frag = frag[:8]
	}
	if slug == "" {
		return frag
	}
	return slug + "-" + frag
}
