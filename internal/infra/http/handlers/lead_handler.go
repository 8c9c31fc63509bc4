package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type LeadHandler struct {
	Leads *usecase.LeadUseCase
	Users *usecase.UserUseCase
	Log   *zap.Logger
}

func NewLeadHandler(leads *usecase.LeadUseCase, users *usecase.UserUseCase, log *zap.Logger) *LeadHandler {
	return &LeadHandler{Leads: leads, Users: users, Log: log}
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r, h.Users.PageSize(r.Context(), userID(r)))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	in := usecase.LeadListInput{
		Stages:   queryList(r, "stage"),
		Sources:  queryList(r, "source"),
		Search:   r.URL.Query().Get("search"),
		Tag:      r.URL.Query().Get("tag"),
		Archived: r.URL.Query().Get("archived"),
		Sort:     r.URL.Query().Get("sort"),
		Order:    r.URL.Query().Get("order"),
		Limit:    limit,
		Offset:   offset,
	}
	if n, ok, err := queryInt(r, "minScore"); err != nil {
		writeError(w, h.Log, r, err)
		return
	} else if ok {
		in.MinScore = &n
	}

	page, err := h.Leads.List(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, page)
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in usecase.LeadInput
	if !decodeJSON(w, r, &in) {
		return
	}
	lead, err := h.Leads.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, lead)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Leads.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, lead)
}

func (h *LeadHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch usecase.LeadPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	lead, err := h.Leads.Update(r.Context(), userID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, lead)
}

func (h *LeadHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var in usecase.LeadInput
	if !decodeJSON(w, r, &in) {
		return
	}
	lead, err := h.Leads.Update(r.Context(), userID(r), chi.URLParam(r, "id"), in.AsPatch())
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, lead)
}

func (h *LeadHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Leads.Archive(r.Context(), userID(r), id); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"id": id})
}

func (h *LeadHandler) Restore(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Leads.Restore(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, lead)
}

func (h *LeadHandler) BulkStage(w http.ResponseWriter, r *http.Request) {
	var in usecase.BulkStageInput
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.Leads.BulkUpdateStage(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}
