package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/threatgraph/api/schemas"
)

func TestSearch(t *testing.T) {
	t.Parallel()
	g := getTestGraph(t)

	t.Run("substring match on name is case-insensitive", func(t *testing.T) {
		t.Parallel()
		results := g.Search("apt")
		require.Len(t, results, 1)
		assert.Equal(t, "APT41", results[0].Name)
	})

	t.Run("no match yields an empty result, not an error", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, g.Search("zzz"))
		assert.Empty(t, g.Search(""))
	})

	t.Run("kind filter narrows the candidates", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, g.Search("apt", schemas.KindCampaign))
		assert.Len(t, g.Search("apt", schemas.KindActor), 1)
	})

	t.Run("exact beats prefix beats substring", func(t *testing.T) {
		t.Parallel()
		g := New(nil)
		for _, e := range []schemas.Entity{
			{ID: "c", Name: "contains pipe here", Kind: schemas.KindTool},
			{ID: "b", Name: "pipe cutter", Kind: schemas.KindTool},
			{ID: "a", Name: "pipe", Kind: schemas.KindTool},
		} {
			require.NoError(t, g.Upsert(e))
		}

		results := g.Search("pipe")
		require.Len(t, results, 3)
		assert.Equal(t, "a", results[0].ID, "exact match first")
		assert.Equal(t, "b", results[1].ID, "prefix match second")
		assert.Equal(t, "c", results[2].ID, "substring match last")
	})

	t.Run("ties break on confidence then severity weight then id", func(t *testing.T) {
		t.Parallel()
		g := New(nil)
		for _, e := range []schemas.Entity{
			{ID: "d", Name: "loader", Kind: schemas.KindMalware, Severity: schemas.SeverityLow},
			{ID: "c", Name: "loader", Kind: schemas.KindMalware, Severity: schemas.SeverityHigh},
			{ID: "b", Name: "loader", Kind: schemas.KindMalware, Confidence: conf(0.4), Severity: schemas.SeverityLow},
			{ID: "a", Name: "loader", Kind: schemas.KindMalware, Confidence: conf(0.9), Severity: schemas.SeverityInfo},
		} {
			require.NoError(t, g.Upsert(e))
		}

		results := g.Search("loader")
		require.Len(t, results, 4)
		// Confident entities first (0.9 then 0.4), then the unscored ones by
		// severity weight (high before low), ids as the final tiebreak.
		assert.Equal(t, []string{"a", "b", "c", "d"}, entityIDs(results))
	})
}

func TestRankByConfidence(t *testing.T) {
	t.Parallel()
	g := getTestGraph(t)

	t.Run("sorts confidence descending with absent confidence last", func(t *testing.T) {
		t.Parallel()
		ranked := g.RankByConfidence(0)
		require.Len(t, ranked, 4)
		assert.Equal(t, []string{"actor-1", "campaign-1", "malware-1", "indicator-1"}, entityIDs(ranked))
	})

	t.Run("respects the limit", func(t *testing.T) {
		t.Parallel()
		ranked := g.RankByConfidence(2)
		require.Len(t, ranked, 2)
		assert.Equal(t, "actor-1", ranked[0].ID)
	})

	t.Run("kind filter applies before the limit", func(t *testing.T) {
		t.Parallel()
		ranked := g.RankByConfidence(1, schemas.KindMalware)
		require.Len(t, ranked, 1)
		assert.Equal(t, "malware-1", ranked[0].ID)
	})
}

func TestSubgraph(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("zero hops returns just the root", func(t *testing.T) {
		t.Parallel()
		g := getTestGraph(t)
		export, err := g.Subgraph(ctx, "actor-1", 0)
		require.NoError(t, err)
		require.Len(t, export.Entities, 1)
		assert.Equal(t, "actor-1", export.Entities[0].ID)
		assert.Empty(t, export.Relations)
	})

	t.Run("expansion is bounded by hop count", func(t *testing.T) {
		t.Parallel()
		g := getTestGraph(t)

		// actor-1 <- campaign-1 <- indicator-1: the indicator sits two hops
		// from the actor and must not appear at one hop.
		export, err := g.Subgraph(ctx, "actor-1", 1)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"actor-1", "campaign-1"}, entityIDs(export.Entities))

		export, err = g.Subgraph(ctx, "actor-1", 2)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"actor-1", "campaign-1", "malware-1", "indicator-1"}, entityIDs(export.Entities))
	})

	t.Run("included relations have both endpoints inside", func(t *testing.T) {
		t.Parallel()
		g := getTestGraph(t)
		export, err := g.Subgraph(ctx, "actor-1", 1)
		require.NoError(t, err)
		require.Len(t, export.Relations, 1)
		assert.Equal(t, "rel-1", export.Relations[0].ID)
	})

	t.Run("cycles do not duplicate entities", func(t *testing.T) {
		t.Parallel()
		g := New(nil)
		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, g.Upsert(schemas.Entity{ID: id, Name: id, Kind: schemas.KindTool}))
		}
		require.NoError(t, g.AddRelation(schemas.Relation{ID: "r1", SourceID: "a", TargetID: "b", RelationType: schemas.RelationUses}))
		require.NoError(t, g.AddRelation(schemas.Relation{ID: "r2", SourceID: "b", TargetID: "c", RelationType: schemas.RelationUses}))
		require.NoError(t, g.AddRelation(schemas.Relation{ID: "r3", SourceID: "c", TargetID: "a", RelationType: schemas.RelationUses}))

		export, err := g.Subgraph(ctx, "a", 10)
		require.NoError(t, err)
		assert.Len(t, export.Entities, 3)
		assert.Len(t, export.Relations, 3)
	})

	t.Run("unknown root yields ErrNotFound", func(t *testing.T) {
		t.Parallel()
		g := getTestGraph(t)
		_, err := g.Subgraph(ctx, "ghost", 2)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cancelled context aborts the expansion", func(t *testing.T) {
		t.Parallel()
		g := getTestGraph(t)
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := g.Subgraph(cancelled, "actor-1", 3)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExport(t *testing.T) {
	t.Parallel()
	g := getTestGraph(t)

	export := g.Export()
	assert.Len(t, export.Entities, 4)
	assert.Len(t, export.Relations, 3)
	assert.Equal(t, "actor-1", export.Entities[0].ID, "entities keep insertion order")
	assert.Equal(t, "rel-1", export.Relations[0].ID, "relations are ordered by id")
}

func entityIDs(entities []*schemas.Entity) []string {
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return ids
}
