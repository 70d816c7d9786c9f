// File: cmd/query.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/threatgraph/api/schemas"
	"github.com/xkilldash9x/threatgraph/internal/graph"
	"github.com/xkilldash9x/threatgraph/internal/ingest"
	"github.com/xkilldash9x/threatgraph/internal/observability"
	"github.com/xkilldash9x/threatgraph/internal/risk"
)

func newQueryCmd() *cobra.Command {
	var batchFile string

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Run search, neighbor, ranking and subgraph queries against a graph",
		Long:  `Loads an entity/relation batch from a JSON file into a fresh graph and runs the requested query against it. The session working set lives in memory; persistence is the backend's concern.`,
	}

	queryCmd.PersistentFlags().StringVar(&batchFile, "batch", "", "Path to a JSON batch file to load (required)")
	_ = queryCmd.MarkPersistentFlagRequired("batch")

	loadGraph := func() (*graph.Graph, error) {
		var batch schemas.IngestBatch
		if err := readJSONFile(batchFile, &batch); err != nil {
			return nil, err
		}
		logger := observability.GetLogger()
		g := graph.New(logger, graph.WithRemovalPolicy(removalPolicyFromConfig()))
		adapter := ingest.New(g, risk.DefaultPolicy(), logger)
		result, err := adapter.ApplyBatch(batch)
		if err != nil {
			return nil, fmt.Errorf("failed to load batch: %w", err)
		}
		printBatchResult(result)
		return g, nil
	}

	searchCmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Case-insensitive name search with deterministic ranking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph()
			if err != nil {
				return err
			}
			renderEntities(g.Search(args[0]))
			return nil
		},
	}

	var rankLimit int
	rankCmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank entities by confidence, unknown confidence last",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph()
			if err != nil {
				return err
			}
			renderEntities(g.RankByConfidence(rankLimit))
			return nil
		},
	}
	rankCmd.Flags().IntVar(&rankLimit, "limit", 0, "Maximum number of entities to return (0 = all)")

	neighborsCmd := &cobra.Command{
		Use:   "neighbors <entity-id>",
		Short: "List relations touching an entity from either side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph()
			if err != nil {
				return err
			}
			neighbors, err := g.NeighborsOf(args[0], graph.Either)
			if err != nil {
				return err
			}
			renderNeighbors(neighbors)
			return nil
		},
	}

	var maxHops int
	subgraphCmd := &cobra.Command{
		Use:   "subgraph <root-id>",
		Short: "Breadth-first subgraph expansion bounded by --hops",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph()
			if err != nil {
				return err
			}
			if cfg != nil && maxHops > cfg.Engine.MaxHops {
				maxHops = cfg.Engine.MaxHops
			}

			ctx := cmd.Context()
			if cfg != nil && cfg.Engine.QueryTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Engine.QueryTimeout)
				defer cancel()
			}

			export, err := g.Subgraph(ctx, args[0], maxHops)
			if err != nil {
				return err
			}
			renderEntities(export.Entities)
			fmt.Printf("%d relation(s) inside the subgraph\n", len(export.Relations))
			return nil
		},
	}
	subgraphCmd.Flags().IntVar(&maxHops, "hops", 2, "Maximum hop distance from the root")

	queryCmd.AddCommand(searchCmd, rankCmd, neighborsCmd, subgraphCmd)
	return queryCmd
}

func renderEntities(entities []*schemas.Entity) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Kind", "Severity", "Confidence"})
	for _, e := range entities {
		confidence := "-"
		if e.Confidence != nil {
			confidence = fmt.Sprintf("%.2f", *e.Confidence)
		}
		table.Append([]string{e.ID, e.Name, string(e.Kind), string(e.Severity), confidence})
	}
	table.Render()
}

func renderNeighbors(neighbors []graph.Neighbor) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Relation", "Type", "Source", "Target", "Neighbor"})
	for _, n := range neighbors {
		table.Append([]string{
			n.Relation.ID,
			string(n.Relation.RelationType),
			n.Relation.SourceID,
			n.Relation.TargetID,
			n.EntityID,
		})
	}
	table.Render()
	fmt.Printf("%d neighbor(s)\n", len(neighbors))
}
