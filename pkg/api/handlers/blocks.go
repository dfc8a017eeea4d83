package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"fluxplay/pkg/logger"
	"fluxplay/pkg/models"
	"fluxplay/pkg/store"
	"fluxplay/pkg/utils"
)

// RegisterBlocks registers the authoring endpoints for script blocks.
func RegisterBlocks(r *mux.Router) {
	r.HandleFunc("/chats/{chat}/blocks", createBlock).Methods(http.MethodPost)
	r.HandleFunc("/chats/{chat}/blocks", listBlocks).Methods(http.MethodGet)
	r.HandleFunc("/chats/{chat}/blocks/reorder", reorderBlocks).Methods(http.MethodPost)
	r.HandleFunc("/chats/{chat}/blocks/{id}", getBlock).Methods(http.MethodGet)
	r.HandleFunc("/chats/{chat}/blocks/{id}", updateBlock).Methods(http.MethodPut)
	r.HandleFunc("/chats/{chat}/blocks/{id}", deleteBlock).Methods(http.MethodDelete)
}

func createBlock(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chat"]
	if _, err := store.GetChat(chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var b models.Block
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	b.Chat = chatID
	if b.ID == "" {
		b.ID = utils.GenID()
	}
	if b.CreatedTS == 0 {
		b.CreatedTS = time.Now().UTC().UnixNano()
	}
	if b.Position == 0 {
		// append to the end unless the author pinned a position
		pos, err := store.NextPosition(chatID)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		b.Position = pos
	}
	if err := b.Validate(); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.SaveBlock(b); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	touchChat(chatID)
	logger.Info("block_created", "chat", chatID, "block", b.ID, "kind", string(b.Kind))
	_ = utils.JSONWrite(w, http.StatusOK, b)
}

func listBlocks(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chat"]
	blocks, err := store.ListBlocks(chatID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Chat   string         `json:"chat"`
		Blocks []models.Block `json:"blocks"`
	}{Chat: chatID, Blocks: blocks})
}

func getBlock(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	b, err := store.GetBlock(vars["chat"], vars["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "block not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, b)
}

func updateBlock(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chatID, id := vars["chat"], vars["id"]
	existing, err := store.GetBlock(chatID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "block not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var b models.Block
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	b.ID = id
	b.Chat = chatID
	b.CreatedTS = existing.CreatedTS
	if b.Position == 0 {
		b.Position = existing.Position
	}
	if err := b.Validate(); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.SaveBlock(b); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	touchChat(chatID)
	_ = utils.JSONWrite(w, http.StatusOK, b)
}

func deleteBlock(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := store.DeleteBlock(vars["chat"], vars["id"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "block not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	touchChat(vars["chat"])
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	Order []string `json:"order"`
}

func reorderBlocks(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chat"]
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Order) == 0 {
		utils.JSONError(w, http.StatusBadRequest, "order is required")
		return
	}
	if err := store.ReorderBlocks(chatID, req.Order); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	touchChat(chatID)
	blocks, err := store.ListBlocks(chatID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Chat   string         `json:"chat"`
		Blocks []models.Block `json:"blocks"`
	}{Chat: chatID, Blocks: blocks})
}

// touchChat bumps the template's updated timestamp; best-effort.
func touchChat(chatID string) {
	c, err := store.GetChat(chatID)
	if err != nil {
		return
	}
	c.UpdatedTS = time.Now().UTC().UnixNano()
	_ = store.SaveChat(c)
}
