package observability

import (
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the onboarding service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	provisionSteps  *prometheus.CounterVec
	registryCalls   *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	repairs         prometheus.Counter
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "onboarding_operation_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_webhook_events_total",
				Help: "Payment webhook deliveries by outcome.",
			},
			[]string{"outcome"},
		),
		provisionSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_provisioning_steps_total",
				Help: "Provisioning step executions by step and outcome.",
			},
			[]string{"step", "outcome"},
		),
		registryCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_registry_calls_total",
				Help: "Registry API calls by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_transitions_total",
				Help: "Onboarding state machine transitions by event and outcome.",
			},
			[]string{"event", "outcome"},
		),
		repairs: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "onboarding_repairs_total",
				Help: "Provisioning runs repaired by the repair sweep.",
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrWebhook counts a webhook delivery: received, rejected, processed, ignored or failed.
func (m *Metrics) IncrWebhook(outcome string) {
	m.webhookEvents.WithLabelValues(outcome).Inc()
}

// IncrProvisionStep counts one provisioning step outcome.
func (m *Metrics) IncrProvisionStep(step domain.ProvisioningStep, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.provisionSteps.WithLabelValues(string(step), outcome).Inc()
}

// IncrRegistryCall counts one registry API call.
func (m *Metrics) IncrRegistryCall(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.registryCalls.WithLabelValues(action, outcome).Inc()
}

// IncrTransition counts a state machine transition attempt.
func (m *Metrics) IncrTransition(event string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.transitions.WithLabelValues(event, outcome).Inc()
}

// IncrRepair counts a repaired provisioning run.
func (m *Metrics) IncrRepair() {
	m.repairs.Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// ProvisioningSnapshot returns reconciler counters for the admin console.
func (m *Metrics) ProvisioningSnapshot() *domain.ProvisioningSnapshot {
	snap := &domain.ProvisioningSnapshot{
		WebhooksReceived:  int64(counterValue(m.webhookEvents.WithLabelValues("received"))),
		WebhooksRejected:  int64(counterValue(m.webhookEvents.WithLabelValues("rejected"))),
		WebhooksProcessed: int64(counterValue(m.webhookEvents.WithLabelValues("processed"))),
		WebhooksFailed:    int64(counterValue(m.webhookEvents.WithLabelValues("failed"))),
		StepFailures:      make(map[string]int64, len(domain.ProvisioningSteps)),
		RepairsRun:        int64(counterValue(m.repairs)),
	}
	for _, step := range domain.ProvisioningSteps {
		snap.StepFailures[string(step)] = int64(counterValue(m.provisionSteps.WithLabelValues(string(step), "error")))
	}
	return snap
}

// counterValue extracts the current float64 value from a counter.
func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
