package usage

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	otelOnce              sync.Once
	otelRegistrationError error
)

// InitOTelMetrics registers an observable gauge reporting the SQLite totals.
// Call it after observability.Init so the gauge binds to the real provider.
func InitOTelMetrics() error {
	otelOnce.Do(func() {
		meter := otel.Meter("recordsearch/usage")

		_, err := meter.Int64ObservableGauge(
			"recordsearch.usage.total",
			metric.WithDescription("Cumulative command outcomes by event"),
			metric.WithUnit("{events}"),
			metric.WithInt64Callback(usageCallback),
		)
		if err != nil {
			log.Printf("usage: failed to create usage gauge: %v", err)
			otelRegistrationError = err
		}
	})
	return otelRegistrationError
}

func usageCallback(_ context.Context, observer metric.Int64Observer) error {
	totals := Totals()
	for _, event := range Events {
		observer.Observe(totals[event], metric.WithAttributes(
			attribute.String("event", string(event)),
		))
	}
	return nil
}

func resetOTelForTesting() {
	otelOnce = sync.Once{}
	otelRegistrationError = nil
}
