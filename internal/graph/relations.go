package graph

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/threatgraph/api/schemas"
)

// Direction selects which edges a neighbor query follows.
type Direction int

const (
	// Either follows edges from both sides. The UI renders relations from
	// either endpoint, so this is the default.
	Either Direction = iota
	Outgoing
	Incoming
)

// Neighbor pairs a relation with the entity id on its far side.
type Neighbor struct {
	Relation *schemas.Relation
	EntityID string
}

// AddRelation indexes a directed edge. Both endpoints must already exist in
// the catalog; a missing endpoint yields ErrDanglingReference. An existing
// relation id is updated in place.
func (g *Graph) AddRelation(relation schemas.Relation) error {
	if relation.ID == "" || relation.SourceID == "" || relation.TargetID == "" {
		return fmt.Errorf("%w: relation id, source_id and target_id are required", ErrInvalidEntity)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addRelationLocked(relation)
}

// addRelationLocked assumes the write lock is held.
func (g *Graph) addRelationLocked(relation schemas.Relation) error {
	if _, ok := g.entities[relation.SourceID]; !ok {
		return fmt.Errorf("%w: source %q", ErrDanglingReference, relation.SourceID)
	}
	if _, ok := g.entities[relation.TargetID]; !ok {
		return fmt.Errorf("%w: target %q", ErrDanglingReference, relation.TargetID)
	}

	if existing, ok := g.relations[relation.ID]; ok {
		// Re-home the index entries if the endpoints moved.
		g.bySource[existing.SourceID].Remove(relation.ID)
		g.byTarget[existing.TargetID].Remove(relation.ID)
		*existing = *relation.Clone()
	} else {
		if relation.CreatedAt.IsZero() {
			relation.CreatedAt = time.Now().UTC()
		}
		g.relations[relation.ID] = relation.Clone()
	}

	g.bySource[relation.SourceID].Add(relation.ID)
	g.byTarget[relation.TargetID].Add(relation.ID)

	g.logger.Debug("Indexed relation",
		zap.String("id", relation.ID),
		zap.String("source", relation.SourceID),
		zap.String("type", string(relation.RelationType)),
		zap.String("target", relation.TargetID))
	return nil
}

// RemoveRelation drops a relation by id. Returns false when the id is absent.
func (g *Graph) RemoveRelation(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.relations[id]; !ok {
		return false
	}
	g.removeRelationLocked(id)
	return true
}

func (g *Graph) removeRelationLocked(id string) {
	relation := g.relations[id]
	if set, ok := g.bySource[relation.SourceID]; ok {
		set.Remove(id)
	}
	if set, ok := g.byTarget[relation.TargetID]; ok {
		set.Remove(id)
	}
	delete(g.relations, id)
}

// NeighborsOf lists the relations touching an entity together with the id on
// the far side of each. Runtime is proportional to the entity's degree, not
// the total edge count. Results are ordered by relation id for stable
// rendering. Returns ErrNotFound when the entity is absent.
func (g *Graph) NeighborsOf(entityID string, direction Direction) ([]Neighbor, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.entities[entityID]; !ok {
		return nil, ErrNotFound
	}

	seen := make(Set)
	neighbors := make([]Neighbor, 0)

	if direction == Either || direction == Outgoing {
		for relID := range g.bySource[entityID] {
			relation := g.relations[relID]
			seen.Add(relID)
			neighbors = append(neighbors, Neighbor{Relation: relation.Clone(), EntityID: relation.TargetID})
		}
	}
	if direction == Either || direction == Incoming {
		for relID := range g.byTarget[entityID] {
			if seen.Contains(relID) {
				continue // self-loop already reported from the outgoing side
			}
			relation := g.relations[relID]
			neighbors = append(neighbors, Neighbor{Relation: relation.Clone(), EntityID: relation.SourceID})
		}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].Relation.ID < neighbors[j].Relation.ID
	})
	return neighbors, nil
}

// RelationsBetween lists every relation connecting two entities, in both
// directions, ordered by relation id.
func (g *Graph) RelationsBetween(aID, bID string) []*schemas.Relation {
	g.mu.RLock()
	defer g.mu.RUnlock()

	results := make([]*schemas.Relation, 0)
	for relID := range g.bySource[aID] {
		relation := g.relations[relID]
		if relation.TargetID == bID {
			results = append(results, relation.Clone())
		}
	}
	if aID != bID {
		for relID := range g.bySource[bID] {
			relation := g.relations[relID]
			if relation.TargetID == aID {
				results = append(results, relation.Clone())
			}
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

// RelationCount reports the number of indexed relations.
func (g *Graph) RelationCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.relations)
}
