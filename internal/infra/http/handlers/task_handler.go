package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type TaskHandler struct {
	Tasks *usecase.TaskUseCase
	Users *usecase.UserUseCase
	Log   *zap.Logger
}

func NewTaskHandler(tasks *usecase.TaskUseCase, users *usecase.UserUseCase, log *zap.Logger) *TaskHandler {
	return &TaskHandler{Tasks: tasks, Users: users, Log: log}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r, h.Users.PageSize(r.Context(), userID(r)))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	q := r.URL.Query()
	in := usecase.TaskListInput{
		Statuses:   queryList(r, "status"),
		LeadID:     q.Get("leadId"),
		CampaignID: q.Get("campaignId"),
		Due:        q.Get("due"),
		Sort:       q.Get("sort"),
		Order:      q.Get("order"),
		Limit:      limit,
		Offset:     offset,
	}
	if n, ok, err := queryInt(r, "priority"); err != nil {
		writeError(w, h.Log, r, err)
		return
	} else if ok {
		in.Priority = &n
	}

	page, err := h.Tasks.List(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, page)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in usecase.TaskInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.Tasks.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, t)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, t)
}

func (h *TaskHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch usecase.TaskPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	t, err := h.Tasks.Update(r.Context(), userID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, t)
}

func (h *TaskHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var in usecase.TaskInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.Tasks.Update(r.Context(), userID(r), chi.URLParam(r, "id"), in.AsPatch())
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, t)
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Complete(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Tasks.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"id": id})
}
