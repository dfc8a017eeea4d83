package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"fluxplay/pkg/actionlog"
	"fluxplay/pkg/answers"
	"fluxplay/pkg/logger"
	"fluxplay/pkg/models"
	"fluxplay/pkg/player"
	"fluxplay/pkg/store"
	"fluxplay/pkg/utils"
)

type playbackHandlers struct {
	seq  *player.Sequencer
	logs *actionlog.Sink
}

// RegisterPlayback registers the public playback endpoints consumed by
// the chat widget.
func RegisterPlayback(r *mux.Router, seq *player.Sequencer, logs *actionlog.Sink) {
	h := &playbackHandlers{seq: seq, logs: logs}
	r.HandleFunc("/chats/{chat}/next", h.next).Methods(http.MethodGet)
	r.HandleFunc("/chats/{chat}/answers", h.answer).Methods(http.MethodPost)
	r.HandleFunc("/chats/{chat}/actions", h.action).Methods(http.MethodPost)
}

// next serves the block at the run's cursor: a pure read of
// (chat, cursor, run), safe to re-issue after a transport failure.
func (h *playbackHandlers) next(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chat"]
	runID := r.URL.Query().Get("run")
	if runID == "" {
		utils.JSONError(w, http.StatusBadRequest, "run is required")
		return
	}
	cursor := 0
	if cs := r.URL.Query().Get("cursor"); cs != "" {
		n, err := strconv.Atoi(cs)
		if err != nil || n < 0 {
			utils.JSONError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = n
	}
	if _, err := store.GetChat(chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "conversation unavailable")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	res, err := h.seq.FetchNext(r.Context(), chatID, cursor, runID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, res)
}

type answerRequest struct {
	Cursor int    `json:"cursor"`
	Run    string `json:"run"`
	Answer string `json:"answer"`
}

// answer validates and records the viewer's input for the pausing block
// at cursor. The expected capture type comes from the stored block, never
// from the client.
func (h *playbackHandlers) answer(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chat"]
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Run == "" {
		utils.JSONError(w, http.StatusBadRequest, "run is required")
		return
	}
	if _, err := store.GetChat(chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "conversation unavailable")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	next, err := h.seq.SubmitAnswer(r.Context(), chatID, req.Cursor, req.Run, req.Answer)
	if err != nil {
		var verr *answers.ValidationError
		switch {
		case errors.As(err, &verr):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": verr.Reason,
				"type":  string(verr.Type),
			})
		case errors.Is(err, player.ErrNotAwaitingInput):
			utils.JSONError(w, http.StatusConflict, "no question at this cursor")
		case errors.Is(err, store.ErrNotFound):
			utils.JSONError(w, http.StatusNotFound, "conversation unavailable")
		default:
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	logger.Info("answer_accepted", "chat", chatID, "run", req.Run, "cursor", req.Cursor)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]int{"next_index": next})
}

type actionRequest struct {
	Action           string `json:"action"`
	QuestionType     string `json:"question_type,omitempty"`
	QuestionVariable string `json:"question_variable,omitempty"`
	QuestionAnswer   string `json:"question_answer,omitempty"`
	QuestionText     string `json:"question_text,omitempty"`
	ButtonQuestion   string `json:"button_question,omitempty"`
	ButtonAnswer     string `json:"button_answer,omitempty"`
	ClickedLinkURL   string `json:"clicked_link_url,omitempty"`
}

// action accepts a client-reported analytics event. The response is 202
// regardless of persistence outcome; the log is fire-and-forget and the
// widget must never stall on it.
func (h *playbackHandlers) action(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chat"]
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	act := models.Action(req.Action)
	if !act.Valid() {
		utils.JSONError(w, http.StatusBadRequest, "unknown action")
		return
	}
	h.logs.Emit(models.ActionEvent{
		Chat:             chatID,
		Action:           act,
		QuestionType:     req.QuestionType,
		QuestionVariable: req.QuestionVariable,
		QuestionAnswer:   req.QuestionAnswer,
		QuestionText:     req.QuestionText,
		ButtonQuestion:   req.ButtonQuestion,
		ButtonAnswer:     req.ButtonAnswer,
		ClickedLinkURL:   req.ClickedLinkURL,
	})
	w.WriteHeader(http.StatusAccepted)
}
