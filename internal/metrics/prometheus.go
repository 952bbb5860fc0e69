package metrics

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OutboundRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_console_outbound_requests_total",
			Help: "Outbound calls to the workflow and ticketing APIs",
		},
		[]string{"api", "op", "outcome"},
	)

	OutboundDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_console_outbound_duration_seconds",
			Help:    "Outbound call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"api", "op"},
	)

	Resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_console_resolutions_total",
			Help: "AI answer requests by tracker kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	ChatMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_console_chat_messages_total",
			Help: "Chat messages appended by sender",
		},
		[]string{"sender"},
	)

	FilterRecomputes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "support_console_filter_recomputes_total",
			Help: "Full recomputations of the filtered ticket view",
		},
	)

	SearchFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "support_console_search_fallbacks_total",
			Help: "Remote ticket searches answered by the local substring filter",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "support_console_active_sessions",
			Help: "Sessions currently held in the registry",
		},
	)

	KnowledgeDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "support_console_knowledge_documents",
			Help: "Documents in the knowledge base catalogue",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_console_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_console_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	BackendUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "support_console_backend_up",
			Help: "1 when the last probe of a backend succeeded",
		},
		[]string{"api"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(OutboundRequests)
		prometheus.MustRegister(OutboundDuration)
		prometheus.MustRegister(Resolutions)
		prometheus.MustRegister(ChatMessages)
		prometheus.MustRegister(FilterRecomputes)
		prometheus.MustRegister(SearchFallbacks)
		prometheus.MustRegister(ActiveSessions)
		prometheus.MustRegister(KnowledgeDocuments)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(BackendUp)
	})
}

// ObserveOutbound records one outbound call.
func ObserveOutbound(api, op, outcome string, elapsed time.Duration) {
	OutboundRequests.WithLabelValues(api, op, outcome).Inc()
	OutboundDuration.WithLabelValues(api, op).Observe(elapsed.Seconds())
}

func SetBackendUp(api string, up bool) {
	value := 0.0
	if up {
		value = 1
	}
	BackendUp.WithLabelValues(api).Set(value)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
