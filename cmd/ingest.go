// File: cmd/ingest.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/threatgraph/api/schemas"
	"github.com/xkilldash9x/threatgraph/internal/graph"
	"github.com/xkilldash9x/threatgraph/internal/ingest"
	"github.com/xkilldash9x/threatgraph/internal/observability"
	"github.com/xkilldash9x/threatgraph/internal/risk"
	"github.com/xkilldash9x/threatgraph/internal/store"
)

func newIngestCmd() *cobra.Command {
	var (
		batchFile string
		smsFile   string
		persist   bool
	)

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Apply an entity/relation batch or an SMS analysis result to the graph",
		Long:  `Reads a JSON batch file (entities + relations) or an SMS analysis response, applies it to the correlation graph atomically, and prints the batch result. With --persist the applied batch is also written to PostgreSQL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchFile == "" && smsFile == "" {
				return fmt.Errorf("one of --batch or --sms must be provided")
			}

			ctx := cmd.Context()
			logger := observability.GetLogger()

			g := graph.New(logger, graph.WithRemovalPolicy(removalPolicyFromConfig()))
			adapter := ingest.New(g, risk.DefaultPolicy(), logger)

			var result schemas.BatchResult
			if batchFile != "" {
				var batch schemas.IngestBatch
				if err := readJSONFile(batchFile, &batch); err != nil {
					return err
				}

				applied, err := adapter.ApplyBatch(batch)
				if err != nil {
					return fmt.Errorf("batch rejected: %w", err)
				}
				result = applied

				if persist {
					pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
					if err != nil {
						return fmt.Errorf("failed to connect to database: %w", err)
					}
					defer pool.Close()

					storeService, err := store.New(ctx, pool, logger)
					if err != nil {
						return fmt.Errorf("failed to initialize store service: %w", err)
					}
					if err := storeService.PersistBatch(ctx, batch); err != nil {
						logger.Error("Failed to persist batch", zap.Error(err))
						return err
					}
				}
			} else {
				var analysis schemas.SMSAnalysisResponse
				if err := readJSONFile(smsFile, &analysis); err != nil {
					return err
				}
				applied, err := adapter.IngestSMS(analysis)
				if err != nil {
					return fmt.Errorf("sms ingestion failed: %w", err)
				}
				result = applied
			}

			printBatchResult(result)
			return nil
		},
	}

	ingestCmd.Flags().StringVar(&batchFile, "batch", "", "Path to a JSON file containing an entity/relation batch")
	ingestCmd.Flags().StringVar(&smsFile, "sms", "", "Path to a JSON file containing an SMS analysis response")
	ingestCmd.Flags().BoolVar(&persist, "persist", false, "Also persist the applied batch to PostgreSQL")

	return ingestCmd
}

func readJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func removalPolicyFromConfig() graph.RemovalPolicy {
	if cfg != nil && cfg.Engine.RemovalPolicy == "strict" {
		return graph.PolicyStrict
	}
	return graph.PolicyCascade
}

func printBatchResult(result schemas.BatchResult) {
	fmt.Printf("applied entities:  %d\n", result.AppliedEntities)
	fmt.Printf("applied relations: %d\n", result.AppliedRelations)
	for _, rejected := range result.RejectedRelations {
		color.Red("rejected relation %s: %s", rejected.Relation.ID, rejected.Reason)
	}
	for _, warning := range result.Warnings {
		color.Yellow("warning: %s", warning)
	}
}
