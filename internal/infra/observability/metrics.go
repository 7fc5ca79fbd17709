package observability

import (
	"time"

	"github.com/cleannadu/complaint-bot-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	turnDuration       *prometheus.HistogramVec
	turnsTotal         *prometheus.CounterVec
	intentsTotal       *prometheus.CounterVec
	languageSelections *prometheus.CounterVec
	complaintsFiled    prometheus.Counter
	trackingLookups    *prometheus.CounterVec
	storeErrors        *prometheus.CounterVec
	activeSessions     prometheus.GaugeFunc
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
// sessionCount feeds the active-sessions gauge; pass nil to disable it.
func NewMetrics(sessionCount func() int) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		Registry: reg,

		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bot_turn_duration_seconds",
				Help:    "Duration of conversation turns by state at entry.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"state"},
		),
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_turns_total",
				Help: "Total conversation turns processed, by outcome.",
			},
			[]string{"status"},
		),
		intentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_global_intents_total",
				Help: "Global intents intercepted before state dispatch.",
			},
			[]string{"intent"},
		),
		languageSelections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_language_selections_total",
				Help: "Committed language switches, by target language.",
			},
			[]string{"language"},
		),
		complaintsFiled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bot_complaints_filed_total",
				Help: "Complaints successfully registered.",
			},
		),
		trackingLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_tracking_lookups_total",
				Help: "Tracking-ID lookups, by result (found, not_found, invalid, error).",
			},
			[]string{"result"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_store_errors_total",
				Help: "Complaint store failures, by operation.",
			},
			[]string{"op"},
		),
	}

	if sessionCount != nil {
		m.activeSessions = factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "bot_active_sessions",
				Help: "Live sessions in the registry.",
			},
			func() float64 { return float64(sessionCount()) },
		)
	}

	return m
}

// RecordTurnDuration records how long a turn took, labeled by the state the
// session was in when the message arrived.
func (m *Metrics) RecordTurnDuration(state string, d time.Duration) {
	m.turnDuration.WithLabelValues(state).Observe(d.Seconds())
}

// IncrTurn increments the turn counter with an outcome label.
func (m *Metrics) IncrTurn(status string) {
	m.turnsTotal.WithLabelValues(status).Inc()
}

// IncrIntent increments the intercepted-intent counter.
func (m *Metrics) IncrIntent(intent string) {
	m.intentsTotal.WithLabelValues(intent).Inc()
}

// IncrLanguageSelection increments the committed-language counter.
func (m *Metrics) IncrLanguageSelection(lang domain.Language) {
	m.languageSelections.WithLabelValues(string(lang)).Inc()
}

// IncrComplaintFiled increments the filed-complaints counter.
func (m *Metrics) IncrComplaintFiled() {
	m.complaintsFiled.Inc()
}

// IncrTrackingLookup increments the tracking-lookup counter with a result label.
func (m *Metrics) IncrTrackingLookup(result string) {
	m.trackingLookups.WithLabelValues(result).Inc()
}

// IncrStoreError increments the store-failure counter.
func (m *Metrics) IncrStoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

// GetBotSnapshot returns a snapshot of conversation metrics suitable for the
// GET /v1/metrics/bot endpoint.
func (m *Metrics) GetBotSnapshot() *domain.BotMetrics {
	// Gather current values from Prometheus counters.
	// Note: Prometheus counters expose cumulative values.
	okTurns := getCounterValue(m.turnsTotal, "ok")
	errTurns := getCounterValue(m.turnsTotal, "error")
	totalTurns := okTurns + errTurns

	found := getCounterValue(m.trackingLookups, "found")
	notFound := getCounterValue(m.trackingLookups, "not_found")
	invalid := getCounterValue(m.trackingLookups, "invalid")
	lookupErr := getCounterValue(m.trackingLookups, "error")
	totalLookups := found + notFound + invalid + lookupErr

	var filed dto.Metric
	filedTotal := float64(0)
	if err := m.complaintsFiled.Write(&filed); err == nil && filed.Counter != nil && filed.Counter.Value != nil {
		filedTotal = *filed.Counter.Value
	}

	errorRate := float64(0)
	if totalTurns > 0 {
		errorRate = errTurns / totalTurns
	}
	lookupHitRate := float64(0)
	if totalLookups > 0 {
		lookupHitRate = found / totalLookups
	}

	return &domain.BotMetrics{
		TotalTurns:      int64(totalTurns),
		ErrorRate:       errorRate,
		ComplaintsFiled: int64(filedTotal),
		TrackingLookups: int64(totalLookups),
		LookupHitRate:   lookupHitRate,
		Period:          "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
