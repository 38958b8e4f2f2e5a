package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ayr-records/recordsearch/internal/config"
	"github.com/ayr-records/recordsearch/internal/observability"
	"github.com/ayr-records/recordsearch/internal/opensearch"
	"github.com/ayr-records/recordsearch/internal/search"
	"github.com/ayr-records/recordsearch/internal/types"
	"github.com/ayr-records/recordsearch/internal/usage"
)

var rootCmd = &cobra.Command{
	Use:   "recordsearch",
	Short: "Search archival records held in OpenSearch",
	Long: `recordsearch builds and runs OpenSearch queries over transferred archival
records. Queries combine exact phrase matching on reference fields with
fuzzy per-token matching on descriptive fields, filtered by transferring
body, series and date range.`,
	SilenceUsage: true,
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(createIndexCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(statsCmd)
}

// recordStore is the subset of *opensearch.Client the commands use.
type recordStore interface {
	search.Engine
	HealthCheck(ctx context.Context) error
	IndexExists(ctx context.Context, index string) (bool, error)
	DeleteIndex(ctx context.Context, index string) error
	CreateDocumentsIndex(ctx context.Context, index string) error
	IndexDocuments(ctx context.Context, index string, docs []types.RecordDocument) (int, error)
}

type (
	appConfigLoader    func() (*types.Config, error)
	recordStoreFactory func(cfg *types.Config) (recordStore, error)
	telemetryStarter   func(cfg *types.Config) (observability.ShutdownFunc, error)
)

var (
	loadAppConfig  appConfigLoader    = config.Load
	newRecordStore recordStoreFactory = defaultRecordStore
	startTelemetry telemetryStarter   = observability.Init
)

func defaultRecordStore(cfg *types.Config) (recordStore, error) {
	osConfig, err := opensearch.NewConfigFromTypes(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch config: %w", err)
	}

	client, err := opensearch.NewClient(osConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}
	return client, nil
}

// setup loads configuration, opens the usage store and starts telemetry. The
// returned func flushes both and must be called once the command is done.
func setup() (*types.Config, func(), error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.UsageStatsEnabled {
		if err := usage.Init(cfg.UsageStatsPath); err != nil {
			log.Printf("usage: continuing without usage statistics: %v", err)
		}
	}

	shutdown, err := startTelemetry(cfg)
	if err != nil {
		log.Printf("observability: continuing without telemetry: %v", err)
		shutdown = nil
	} else if cfg.OTelEnabled {
		_ = usage.InitOTelMetrics()
	}

	return cfg, func() {
		if shutdown != nil {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("observability: shutdown failed: %v", err)
			}
		}
		if err := usage.Close(); err != nil {
			log.Printf("usage: failed to close store: %v", err)
		}
	}, nil
}

func addIndexFlag(fs *pflag.FlagSet, target *string) {
	fs.StringVar(target, "index-name", "", "OpenSearch index name (defaults to OPENSEARCH_INDEX)")
}

// logStoreMetrics logs request statistics when the store keeps them.
func logStoreMetrics(store recordStore) {
	if m, ok := store.(interface{ LogMetrics() }); ok {
		m.LogMetrics()
	}
}

func resolveIndex(cfg *types.Config, override string) string {
	if override != "" {
		return override
	}
	return cfg.OpenSearchIndex
}
