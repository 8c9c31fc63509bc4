package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type NotificationHandler struct {
	Notifications *usecase.NotificationUseCase
	Users         *usecase.UserUseCase
	Log           *zap.Logger
}

func NewNotificationHandler(notifications *usecase.NotificationUseCase, users *usecase.UserUseCase, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{Notifications: notifications, Users: users, Log: log}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r, h.Users.PageSize(r.Context(), userID(r)))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	page, err := h.Notifications.List(r.Context(), userID(r), usecase.NotificationListInput{
		UnreadOnly: queryBool(r, "unread"),
		Types:      queryList(r, "type"),
		Archived:   queryBool(r, "archived"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, page)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var in usecase.MarkReadInput
	if !decodeJSON(w, r, &in) {
		return
	}
	n, err := h.Notifications.MarkRead(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *NotificationHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Notifications.MarkUnread(r.Context(), userID(r), id); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"id": id})
}

func (h *NotificationHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Notifications.Archive(r.Context(), userID(r), id); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"id": id})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Notifications.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"id": id})
}
