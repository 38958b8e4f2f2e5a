package observability

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ayr-records/recordsearch/internal/types"
)

const defaultShutdownTimeout = 5 * time.Second

// ShutdownFunc flushes and stops the providers.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init sets up tracing and metrics from the root configuration. The returned
// ShutdownFunc is always safe to call, even when err is non-nil.
func Init(rootCfg *types.Config) (ShutdownFunc, error) {
	otelCfg, err := LoadConfig(rootCfg)
	if err != nil {
		return noopShutdown, err
	}

	ctx := context.Background()

	tp, err := InitTracer(ctx, otelCfg)
	if err != nil {
		return noopShutdown, err
	}

	mp, err := InitMeter(ctx, otelCfg)
	if err != nil {
		_ = NewShutdownFunc(tp, nil)(ctx)
		return noopShutdown, err
	}

	if otelCfg.Enabled {
		log.Printf("observability: exporting to %s over %s as %s",
			otelCfg.ExporterEndpoint, otelCfg.ExporterProtocol, otelCfg.ServiceName)
	}
	return NewShutdownFunc(tp, mp), nil
}

// NewShutdownFunc shuts down whichever providers are non-nil. Without a
// deadline on ctx it waits at most five seconds.
func NewShutdownFunc(tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider) ShutdownFunc {
	return func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
			defer cancel()
		}

		var errs []error
		if tp != nil {
			if err := tp.Shutdown(ctx); err != nil {
				log.Printf("observability: failed to shutdown tracer provider: %v", err)
				errs = append(errs, fmt.Errorf("tracer provider: %w", err))
			}
		}
		if mp != nil {
			if err := mp.Shutdown(ctx); err != nil {
				log.Printf("observability: failed to shutdown meter provider: %v", err)
				errs = append(errs, fmt.Errorf("meter provider: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}
