package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayr-records/recordsearch/internal/records"
	"github.com/ayr-records/recordsearch/internal/types"
	"github.com/ayr-records/recordsearch/internal/usage"
)

var (
	loadIndexName   string
	loadCreateIndex bool
)

var loadCmd = &cobra.Command{
	Use:   "load FILE",
	Short: "Bulk-load records from a YAML, JSON or CSV file",
	Long: `
Bulk-load records into the documents index. FILE holds a list of records in
YAML (.yaml, .yml) or JSON (.json), or one record per row in CSV (.csv) with
a header row naming the record fields. Every record needs a file_id and a
transferring_body_id; nothing is sent when any record is invalid.

Examples:
  recordsearch load fixtures/records.yaml
  recordsearch load export.csv --create-index
`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	addIndexFlag(loadCmd.Flags(), &loadIndexName)
	loadCmd.Flags().BoolVar(&loadCreateIndex, "create-index", false, "Create the index first if it does not exist")
}

func runLoad(cmd *cobra.Command, args []string) error {
	docs, err := records.ReadFile(args[0])
	if err != nil {
		return err
	}

	cfg, done, err := setup()
	if err != nil {
		return err
	}
	defer done()

	store, err := newRecordStore(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("OpenSearch health check failed: %w", err)
	}
	defer logStoreMetrics(store)

	return loadRecords(ctx, store, resolveIndex(cfg, loadIndexName), docs, loadCreateIndex)
}

func loadRecords(ctx context.Context, store recordStore, index string, docs []types.RecordDocument, create bool) error {
	if len(docs) == 0 {
		log.Printf("No records to load")
		return nil
	}

	if create {
		if err := ensureIndex(ctx, store, index, false); err != nil {
			return err
		}
	}

	start := time.Now()
	indexed, err := store.IndexDocuments(ctx, index, docs)
	usage.RecordN(usage.EventRecordsLoaded, int64(indexed))
	if err != nil {
		return fmt.Errorf("loaded %d of %d records into %s: %w", indexed, len(docs), index, err)
	}

	log.Printf("Loaded %d records into %s in %v", indexed, index, time.Since(start))
	return nil
}
