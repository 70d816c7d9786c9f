package graph

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/threatgraph/api/schemas"
)

// Match qualities for text search, best first. Exact beats prefix beats
// substring; everything else is excluded.
const (
	matchExact     = 3
	matchPrefix    = 2
	matchSubstring = 1
	matchNone      = 0
)

// Search finds entities whose name contains the query text
// (case-insensitive), optionally restricted by kind. Ranking is
// deterministic: match quality desc, confidence desc (absent last), severity
// weight desc, id asc.
func (g *Graph) Search(text string, kindFilter ...schemas.EntityKind) []*schemas.Entity {
	needle := strings.ToLower(strings.TrimSpace(text))

	g.mu.RLock()
	defer g.mu.RUnlock()

	type scored struct {
		entity  *schemas.Entity
		quality int
	}

	matches := make([]scored, 0)
	for _, id := range g.order {
		entity := g.entities[id]
		if len(kindFilter) > 0 && !kindMatches(entity.Kind, kindFilter) {
			continue
		}
		quality := matchQuality(strings.ToLower(entity.Name), needle)
		if quality == matchNone {
			continue
		}
		matches = append(matches, scored{entity: entity, quality: quality})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.quality != b.quality {
			return a.quality > b.quality
		}
		if c := compareConfidence(a.entity.Confidence, b.entity.Confidence); c != 0 {
			return c > 0
		}
		wa := g.riskPolicy.SeverityWeight(a.entity.Severity)
		wb := g.riskPolicy.SeverityWeight(b.entity.Severity)
		if wa != wb {
			return wa > wb
		}
		return a.entity.ID < b.entity.ID
	})

	results := make([]*schemas.Entity, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.entity.Clone())
	}
	return results
}

func matchQuality(name, needle string) int {
	if needle == "" {
		return matchNone
	}
	switch {
	case name == needle:
		return matchExact
	case strings.HasPrefix(name, needle):
		return matchPrefix
	case strings.Contains(name, needle):
		return matchSubstring
	default:
		return matchNone
	}
}

// compareConfidence orders two optional confidences: higher first, absent
// last. Returns >0 when a ranks before b, <0 when after, 0 when tied.
func compareConfidence(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a > *b:
		return 1
	case *a < *b:
		return -1
	default:
		return 0
	}
}

// RankByConfidence returns entities sorted by confidence descending, with
// unknown/absent confidence last, ties broken by id ascending. A limit <= 0
// means no limit.
func (g *Graph) RankByConfidence(limit int, kindFilter ...schemas.EntityKind) []*schemas.Entity {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ranked := make([]*schemas.Entity, 0, len(g.order))
	for _, id := range g.order {
		entity := g.entities[id]
		if len(kindFilter) > 0 && !kindMatches(entity.Kind, kindFilter) {
			continue
		}
		ranked = append(ranked, entity)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if c := compareConfidence(ranked[i].Confidence, ranked[j].Confidence); c != 0 {
			return c > 0
		}
		return ranked[i].ID < ranked[j].ID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]*schemas.Entity, 0, len(ranked))
	for _, entity := range ranked {
		results = append(results, entity.Clone())
	}
	return results
}

// Subgraph expands breadth-first from rootID, bounded by maxHops. Hop zero
// returns just the root. The expansion is cycle-safe and checks the context
// between hop frontiers so a caller can cancel a large traversal. Included
// relations are exactly those whose endpoints are both inside the subgraph.
func (g *Graph) Subgraph(ctx context.Context, rootID string, maxHops int) (schemas.GraphExport, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.entities[rootID]; !ok {
		return schemas.GraphExport{}, ErrNotFound
	}
	if maxHops < 0 {
		maxHops = 0
	}

	included := make(Set)
	included.Add(rootID)
	frontier := []string{rootID}

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		select {
		case <-ctx.Done():
			g.logger.Warn("Subgraph expansion cancelled", zap.Error(ctx.Err()))
			return schemas.GraphExport{}, ctx.Err()
		default:
		}

		next := make([]string, 0)
		for _, id := range frontier {
			for relID := range g.bySource[id] {
				target := g.relations[relID].TargetID
				if !included.Contains(target) {
					included.Add(target)
					next = append(next, target)
				}
			}
			for relID := range g.byTarget[id] {
				source := g.relations[relID].SourceID
				if !included.Contains(source) {
					included.Add(source)
					next = append(next, source)
				}
			}
		}
		frontier = next
	}

	export := schemas.GraphExport{
		Entities:  make([]*schemas.Entity, 0, included.Size()),
		Relations: make([]*schemas.Relation, 0),
	}
	// Emit entities in catalog insertion order for stable rendering.
	for _, id := range g.order {
		if included.Contains(id) {
			export.Entities = append(export.Entities, g.entities[id].Clone())
		}
	}
	for id := range included {
		for relID := range g.bySource[id] {
			relation := g.relations[relID]
			if included.Contains(relation.TargetID) {
				export.Relations = append(export.Relations, relation.Clone())
			}
		}
	}
	sort.Slice(export.Relations, func(i, j int) bool {
		return export.Relations[i].ID < export.Relations[j].ID
	})

	return export, nil
}

// Export dumps the whole graph as one consistent snapshot, entities in
// insertion order and relations ordered by id.
func (g *Graph) Export() schemas.GraphExport {
	g.mu.RLock()
	defer g.mu.RUnlock()

	export := schemas.GraphExport{
		Entities:  make([]*schemas.Entity, 0, len(g.order)),
		Relations: make([]*schemas.Relation, 0, len(g.relations)),
	}
	for _, id := range g.order {
		export.Entities = append(export.Entities, g.entities[id].Clone())
	}
	for _, relation := range g.relations {
		export.Relations = append(export.Relations, relation.Clone())
	}
	sort.Slice(export.Relations, func(i, j int) bool {
		return export.Relations[i].ID < export.Relations[j].ID
	})
	return export
}
