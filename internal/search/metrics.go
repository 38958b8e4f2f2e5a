package search

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Stats counts requests handled by one Service.
type Stats struct {
	Requests       atomic.Int64
	ZeroResults    atomic.Int64
	Errors         atomic.Int64
	TotalLatencyNs atomic.Int64
}

type StatsSnapshot struct {
	Requests       int64
	ZeroResults    int64
	Errors         int64
	AverageLatency time.Duration
}

func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Requests:    s.Requests.Load(),
		ZeroResults: s.ZeroResults.Load(),
		Errors:      s.Errors.Load(),
	}
	if snap.Requests > 0 {
		snap.AverageLatency = time.Duration(s.TotalLatencyNs.Load() / snap.Requests)
	}
	return snap
}

var (
	searchMetricsOnce      sync.Once
	searchRequestCounter   metric.Int64Counter
	searchErrorCounter     metric.Int64Counter
	searchZeroCounter      metric.Int64Counter
	searchLatencyHistogram metric.Float64Histogram
)

func initSearchOTelMetrics() {
	searchMetricsOnce.Do(func() {
		meter := otel.Meter("recordsearch/search")

		var err error
		searchRequestCounter, err = meter.Int64Counter(
			"recordsearch.search.requests.total",
			metric.WithDescription("Total record searches handled"),
		)
		if err != nil {
			log.Printf("observability: failed to create search request counter: %v", err)
		}

		searchErrorCounter, err = meter.Int64Counter(
			"recordsearch.search.errors.total",
			metric.WithDescription("Total record searches that failed"),
		)
		if err != nil {
			log.Printf("observability: failed to create search error counter: %v", err)
		}

		searchZeroCounter, err = meter.Int64Counter(
			"recordsearch.search.zero_results.total",
			metric.WithDescription("Total record searches that matched nothing"),
		)
		if err != nil {
			log.Printf("observability: failed to create zero results counter: %v", err)
		}

		searchLatencyHistogram, err = meter.Float64Histogram(
			"recordsearch.search.duration",
			metric.WithDescription("Record search duration (ms)"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			log.Printf("observability: failed to create search latency histogram: %v", err)
		}
	})
}

func (s *Service) record(ctx context.Context, startTime time.Time, total int, err error) {
	duration := time.Since(startTime)

	s.stats.Requests.Add(1)
	s.stats.TotalLatencyNs.Add(duration.Nanoseconds())
	switch {
	case err != nil:
		s.stats.Errors.Add(1)
	case total == 0:
		s.stats.ZeroResults.Add(1)
	}

	initSearchOTelMetrics()
	attrs := metric.WithAttributes(attribute.String("index", s.index))
	if searchRequestCounter != nil {
		searchRequestCounter.Add(ctx, 1, attrs)
	}
	if searchLatencyHistogram != nil {
		searchLatencyHistogram.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if err != nil && searchErrorCounter != nil {
		searchErrorCounter.Add(ctx, 1, attrs)
	}
	if err == nil && total == 0 && searchZeroCounter != nil {
		searchZeroCounter.Add(ctx, 1, attrs)
	}
}
