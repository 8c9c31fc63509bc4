package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type ConversationHandler struct {
	Conversations *usecase.ConversationUseCase
	Users         *usecase.UserUseCase
	Log           *zap.Logger
}

func NewConversationHandler(conversations *usecase.ConversationUseCase, users *usecase.UserUseCase, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{Conversations: conversations, Users: users, Log: log}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r, h.Users.PageSize(r.Context(), userID(r)))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	page, err := h.Conversations.List(r.Context(), userID(r), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, page)
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in usecase.ConversationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.Conversations.LogConversation(r.Context(), userID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, c)
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Conversations.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"id": id})
}
