package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type DashboardHandler struct {
	Dashboard usecase.DashboardService
	Users     *usecase.UserUseCase
	Log       *zap.Logger
}

func NewDashboardHandler(dashboard usecase.DashboardService, users *usecase.UserUseCase, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{Dashboard: dashboard, Users: users, Log: log}
}

func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.Dashboard.Metrics(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, m)
}

func (h *DashboardHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	period, points, err := h.window(r)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	t, err := h.Dashboard.Timeline(r.Context(), userID(r), period, points)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, t)
}

func (h *DashboardHandler) Historical(w http.ResponseWriter, r *http.Request) {
	period, points, err := h.window(r)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	metric := usecase.Metric(strings.ToLower(chi.URLParam(r, "metric")))
	s, err := h.Dashboard.Historical(r.Context(), userID(r), metric, period, points)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, s)
}

func (h *DashboardHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	out, err := h.Dashboard.Recommendations(r.Context(), userID(r), limit)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *DashboardHandler) PriorityTasks(w http.ResponseWriter, r *http.Request) {
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	out, err := h.Dashboard.PriorityTasks(r.Context(), userID(r), limit)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *DashboardHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, entity.SuggestionAccepted)
}

func (h *DashboardHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, entity.SuggestionDismissed)
}

func (h *DashboardHandler) resolve(w http.ResponseWriter, r *http.Request, status entity.SuggestionStatus) {
	s, err := h.Dashboard.ResolveSuggestion(r.Context(), userID(r), chi.URLParam(r, "id"), status)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, s)
}

// window reads period and points, falling back to the caller's preferred
// dashboard range when no period is given.
func (h *DashboardHandler) window(r *http.Request) (usecase.Period, int, error) {
	points, _, err := queryInt(r, "points")
	if err != nil {
		return "", 0, err
	}
	if p := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("period"))); p != "" {
		return usecase.Period(p), points, nil
	}

	period, def := usecase.PeriodDaily, 30
	prefs, err := h.Users.Preferences(r.Context(), userID(r))
	if err == nil {
		switch prefs.DashboardRange {
		case entity.RangeWeek:
			def = 7
		case entity.RangeQuarter:
			period, def = usecase.PeriodWeekly, 13
		}
	}
	if points == 0 {
		points = def
	}
	return period, points, nil
}
