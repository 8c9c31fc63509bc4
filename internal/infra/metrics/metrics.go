package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of in-flight HTTP requests",
		},
	)

	leadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_leads_created_total",
			Help: "Total number of leads created",
		},
		[]string{"source"},
	)

	leadsConverted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_leads_converted_total",
			Help: "Total number of leads moved to CONVERTED",
		},
	)

	campaignSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_campaign_steps_total",
			Help: "Campaign steps executed by the runner",
		},
		[]string{"type", "result"},
	)

	dashboardCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_dashboard_cache_total",
			Help: "Dashboard cache lookups",
		},
		[]string{"operation", "result"},
	)

	events = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_events_total",
			Help: "Domain events published and consumed",
		},
		[]string{"direction", "type", "result"},
	)

	notificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_notifications_created_total",
			Help: "Notifications created",
		},
		[]string{"type"},
	)
)

func RecordLeadCreated(source string) {
	leadsCreated.WithLabelValues(source).Inc()
}

func RecordLeadConverted() {
	leadsConverted.Inc()
}

func RecordCampaignStep(stepType string, err error) {
	campaignSteps.WithLabelValues(stepType, result(err)).Inc()
}

func RecordCacheLookup(operation string, hit bool) {
	r := "miss"
	if hit {
		r = "hit"
	}
	dashboardCache.WithLabelValues(operation, r).Inc()
}

func RecordEventPublished(eventType string, err error) {
	events.WithLabelValues("published", eventType, result(err)).Inc()
}

func RecordEventConsumed(eventType string, err error) {
	events.WithLabelValues("consumed", eventType, result(err)).Inc()
}

func RecordNotification(notificationType string) {
	notificationsCreated.WithLabelValues(notificationType).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
