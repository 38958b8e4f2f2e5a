package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayr-records/recordsearch/internal/usage"
)

var (
	recreateIndex   bool
	createIndexName string
)

// deletePropagationDelay gives the cluster time to drop a deleted index
// before it is created again.
var deletePropagationDelay = 2 * time.Second

var createIndexCmd = &cobra.Command{
	Use:   "create-index",
	Short: "Create the documents index with the record mapping",
	Long: `Create the OpenSearch documents index with date and keyword mappings for
every searchable record field. With --recreate an existing index is deleted
first.`,
	RunE: runCreateIndex,
}

func init() {
	createIndexCmd.Flags().BoolVar(&recreateIndex, "recreate", false, "Delete and recreate the index if it already exists")
	addIndexFlag(createIndexCmd.Flags(), &createIndexName)
}

func runCreateIndex(cmd *cobra.Command, args []string) error {
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

	return ensureIndex(ctx, store, resolveIndex(cfg, createIndexName), recreateIndex)
}

// ensureIndex creates index unless it exists. When recreate is set an
// existing index is deleted and created again.
func ensureIndex(ctx context.Context, store recordStore, index string, recreate bool) error {
	exists, err := store.IndexExists(ctx, index)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", index, err)
	}

	recreated := false
	if exists {
		if !recreate {
			log.Printf("Index %s already exists, use --recreate to rebuild it", index)
			return nil
		}

		log.Printf("Deleting existing index: %s", index)
		if err := store.DeleteIndex(ctx, index); err != nil {
			return fmt.Errorf("failed to delete index %s: %w", index, err)
		}
		recreated = true

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(deletePropagationDelay):
		}
	}

	log.Printf("Creating index with record mapping: %s", index)
	if err := store.CreateDocumentsIndex(ctx, index); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	exists, err = store.IndexExists(ctx, index)
	if err != nil {
		return fmt.Errorf("failed to verify index creation: %w", err)
	}
	if !exists {
		return fmt.Errorf("index %s was not created", index)
	}

	if recreated {
		usage.Record(usage.EventIndexRecreated)
	} else {
		usage.Record(usage.EventIndexCreated)
	}
	log.Printf("Index %s is ready", index)
	return nil
}
