package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	TurnsTotal             metric.Int64Counter
	TurnDurationSeconds    metric.Float64Histogram
	ProviderCallsTotal     metric.Int64Counter
	ProviderFallbacksTotal metric.Int64Counter
	CacheRequestsTotal     metric.Int64Counter
	DbQueryDurationSeconds metric.Float64Histogram
	DbQueryErrorsTotal     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once from the global MeterProvider.
// Call it after the provider is installed so the instruments are exported.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("AlpineGuide")
		var err error
		m := &AppMetrics{}

		m.TurnsTotal, err = meter.Int64Counter(
			"dialogue_turns_total",
			metric.WithDescription("Total number of processed dialogue turns by status"),
			metric.WithUnit("{turn}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create dialogue_turns_total: %v", err)
		}

		m.TurnDurationSeconds, err = meter.Float64Histogram(
			"dialogue_turn_duration_seconds",
			metric.WithDescription("Duration of dialogue turns in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create dialogue_turn_duration_seconds: %v", err)
		}

		m.ProviderCallsTotal, err = meter.Int64Counter(
			"nlu_provider_calls_total",
			metric.WithDescription("NLU provider calls by provider and outcome"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create nlu_provider_calls_total: %v", err)
		}

		m.ProviderFallbacksTotal, err = meter.Int64Counter(
			"nlu_provider_fallbacks_total",
			metric.WithDescription("Calls answered by the secondary provider"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create nlu_provider_fallbacks_total: %v", err)
		}

		m.CacheRequestsTotal, err = meter.Int64Counter(
			"cache_requests_total",
			metric.WithDescription("Cache lookups by prefix and result"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create cache_requests_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the instruments, creating them against the current global
// provider on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
