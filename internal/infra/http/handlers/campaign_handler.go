package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type CampaignHandler struct {
	Campaigns *usecase.CampaignUseCase
	Users     *usecase.UserUseCase
	Log       *zap.Logger
}

func NewCampaignHandler(campaigns *usecase.CampaignUseCase, users *usecase.UserUseCase, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{Campaigns: campaigns, Users: users, Log: log}
}

type statusRequest struct {
	Status string `json:"status"`
}

type enrollRequest struct {
	LeadIDs []string `json:"leadIds"`
}

type stepsRequest struct {
	Steps []usecase.CampaignStepInput `json:"steps"`
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r, h.Users.PageSize(r.Context(), userID(r)))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	page, err := h.Campaigns.List(r.Context(), userID(r), usecase.CampaignListInput{
		Statuses: queryList(r, "status"),
		Search:   r.URL.Query().Get("search"),
		Archived: r.URL.Query().Get("archived"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, page)
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in usecase.CampaignInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.Campaigns.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, c)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Campaigns.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

func (h *CampaignHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch usecase.CampaignPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	c, err := h.Campaigns.Update(r.Context(), userID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

func (h *CampaignHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var in usecase.CampaignInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.Campaigns.Replace(r.Context(), userID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

func (h *CampaignHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Campaigns.Archive(r.Context(), userID(r), id); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"id": id})
}

func (h *CampaignHandler) ReplaceSteps(w http.ResponseWriter, r *http.Request) {
	var req stepsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.Campaigns.ReplaceSteps(r.Context(), userID(r), chi.URLParam(r, "id"), req.Steps)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

func (h *CampaignHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.Campaigns.ChangeStatus(r.Context(), userID(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

func (h *CampaignHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.Campaigns.Enroll(r.Context(), userID(r), chi.URLParam(r, "id"), req.LeadIDs)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *CampaignHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadId")
	if err := h.Campaigns.Unenroll(r.Context(), userID(r), chi.URLParam(r, "id"), leadID); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"leadId": leadID})
}

func (h *CampaignHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Campaigns.Stats(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, stats)
}
