package usage

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectUsage(t *testing.T, reader *metric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	for _, scopeMetrics := range rm.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name != "recordsearch.usage.total" {
				continue
			}
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			if !ok {
				t.Fatalf("expected Gauge[int64], got %T", m.Data)
			}

			results := make(map[string]int64)
			for _, dp := range gauge.DataPoints {
				if v, ok := dp.Attributes.Value("event"); ok {
					results[v.AsString()] = dp.Value
				}
			}
			return results
		}
	}

	t.Fatal("metric recordsearch.usage.total not found")
	return nil
}

func TestOTelGaugeReportsTotals(t *testing.T) {
	resetOTelForTesting()
	t.Cleanup(resetOTelForTesting)

	store := newTestStore(t)
	SetStoreForTesting(store)
	t.Cleanup(func() { SetStoreForTesting(nil) })

	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	if err := InitOTelMetrics(); err != nil {
		t.Fatalf("InitOTelMetrics failed: %v", err)
	}

	first := collectUsage(t, reader)
	if len(first) != len(Events) {
		t.Errorf("expected a data point per event, got %v", first)
	}
	if first["search"] != 0 {
		t.Errorf("expected no searches yet, got %d", first["search"])
	}

	Record(EventSearch)
	Record(EventSearch)
	Record(EventZeroResults)

	second := collectUsage(t, reader)
	if second["search"] != 2 || second["zero_results"] != 1 {
		t.Errorf("unexpected gauge values: %v", second)
	}
}
