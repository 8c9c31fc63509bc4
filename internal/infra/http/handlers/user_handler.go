package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type UserHandler struct {
	Users *usecase.UserUseCase
	Log   *zap.Logger
}

func NewUserHandler(users *usecase.UserUseCase, log *zap.Logger) *UserHandler {
	return &UserHandler{Users: users, Log: log}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Me(r.Context(), identity(r))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch usecase.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	u, err := h.Users.UpdateMe(r.Context(), identity(r), patch)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, u)
}

func (h *UserHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.Users.Preferences(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, p)
}

func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var patch usecase.PreferencesPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	p, err := h.Users.UpdatePreferences(r.Context(), identity(r), patch)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, p)
}
