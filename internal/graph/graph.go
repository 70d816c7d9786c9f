// Package graph implements the in-memory threat correlation graph: a typed
// entity catalog, a dual-indexed relation index, and the read-only query
// surface consumed by the presentation layer. A single RWMutex serializes
// writers; readers always receive clones, never live pointers.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/threatgraph/api/schemas"
	"github.com/xkilldash9x/threatgraph/internal/risk"
)

var (
	// ErrNotFound signals a lookup miss. Callers treat it as a normal
	// outcome, not a failure.
	ErrNotFound = errors.New("entity not found")
	// ErrInvalidEntity signals a malformed entity (empty id or unknown kind).
	ErrInvalidEntity = errors.New("invalid entity")
	// ErrDanglingReference signals a relation endpoint absent from the catalog.
	ErrDanglingReference = errors.New("dangling relation reference")
)

// RemovalPolicy controls what happens to relations still referencing an
// entity when it is removed.
type RemovalPolicy int

const (
	// PolicyCascade deletes referencing relations along with the entity.
	PolicyCascade RemovalPolicy = iota
	// PolicyStrict refuses the removal while live references exist.
	PolicyStrict
)

// RemovalStatus is the discriminant of a RemovalOutcome.
type RemovalStatus string

const (
	Removed        RemovalStatus = "removed"
	RemoveNotFound RemovalStatus = "not_found"
	RemoveBlocked  RemovalStatus = "blocked"
)

// RemovalOutcome reports the result of removing an entity. BlockedBy carries
// the live reference count when strict mode refuses the removal.
type RemovalOutcome struct {
	Status    RemovalStatus
	BlockedBy int
}

// Set stores unique ids.
type Set map[string]struct{}

func (s Set) Add(item string)           { s[item] = struct{}{} }
func (s Set) Remove(item string)        { delete(s, item) }
func (s Set) Contains(item string) bool { _, ok := s[item]; return ok }
func (s Set) Size() int                 { return len(s) }

// Graph is the thread-safe in-memory correlation graph. It owns all Entity
// and Relation records; everything handed out is a clone.
type Graph struct {
	entities map[string]*schemas.Entity
	order    []string // insertion order of entity ids

	relations map[string]*schemas.Relation
	bySource  map[string]Set // entity id -> relation ids originating there
	byTarget  map[string]Set // entity id -> relation ids pointing there

	policy     RemovalPolicy
	riskPolicy risk.Policy
	logger     *zap.Logger
	mu         sync.RWMutex
}

// Option configures a Graph at construction time.
type Option func(*Graph)

// WithRemovalPolicy overrides the default cascade-delete removal policy.
func WithRemovalPolicy(p RemovalPolicy) Option {
	return func(g *Graph) { g.policy = p }
}

// WithRiskPolicy overrides the severity weight table used for ranking.
func WithRiskPolicy(p risk.Policy) Option {
	return func(g *Graph) { g.riskPolicy = p }
}

// New initializes an empty Graph. A nil logger falls back to a no-op.
func New(logger *zap.Logger, opts ...Option) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Graph{
		entities:   make(map[string]*schemas.Entity),
		relations:  make(map[string]*schemas.Relation),
		bySource:   make(map[string]Set),
		byTarget:   make(map[string]Set),
		policy:     PolicyCascade,
		riskPolicy: risk.DefaultPolicy(),
		logger:     logger.Named("graph"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// -- Entity Catalog --

// Upsert inserts the entity or, when the id already exists, replaces it
// in place. The id is the identity: an existing id is never duplicated.
func (g *Graph) Upsert(entity schemas.Entity) error {
	if err := validateEntity(&entity); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.upsertLocked(entity)
	return nil
}

// upsertLocked assumes the write lock is held and the entity is valid.
func (g *Graph) upsertLocked(entity schemas.Entity) {
	if existing, ok := g.entities[entity.ID]; ok {
		*existing = *entity.Clone()
		g.logger.Debug("Updated entity", zap.String("id", entity.ID))
		return
	}
	g.entities[entity.ID] = entity.Clone()
	g.order = append(g.order, entity.ID)
	g.bySource[entity.ID] = make(Set)
	g.byTarget[entity.ID] = make(Set)
	g.logger.Debug("Added entity", zap.String("id", entity.ID), zap.String("kind", string(entity.Kind)))
}

// Get retrieves an entity by id. Returns ErrNotFound on a miss.
func (g *Graph) Get(id string) (*schemas.Entity, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entity, ok := g.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entity.Clone(), nil
}

// Remove deletes an entity under the configured removal policy. Under
// cascade (the default) its relations go with it; under strict the removal
// is blocked while relations still reference it.
func (g *Graph) Remove(id string) RemovalOutcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.entities[id]; !ok {
		return RemovalOutcome{Status: RemoveNotFound}
	}

	referencing := make(Set)
	for relID := range g.bySource[id] {
		referencing.Add(relID)
	}
	for relID := range g.byTarget[id] {
		referencing.Add(relID)
	}

	if g.policy == PolicyStrict && referencing.Size() > 0 {
		g.logger.Debug("Removal blocked by live references",
			zap.String("id", id), zap.Int("references", referencing.Size()))
		return RemovalOutcome{Status: RemoveBlocked, BlockedBy: referencing.Size()}
	}

	for relID := range referencing {
		g.removeRelationLocked(relID)
	}

	delete(g.entities, id)
	delete(g.bySource, id)
	delete(g.byTarget, id)
	for i, orderedID := range g.order {
		if orderedID == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	g.logger.Debug("Removed entity", zap.String("id", id), zap.Int("cascaded_relations", referencing.Size()))
	return RemovalOutcome{Status: Removed}
}

// All returns every entity in insertion order, optionally restricted to one
// kind. The returned slice is a fresh snapshot; iterating it is restartable.
func (g *Graph) All(kindFilter ...schemas.EntityKind) []*schemas.Entity {
	g.mu.RLock()
	defer g.mu.RUnlock()

	results := make([]*schemas.Entity, 0, len(g.order))
	for _, id := range g.order {
		entity := g.entities[id]
		if len(kindFilter) > 0 && !kindMatches(entity.Kind, kindFilter) {
			continue
		}
		results = append(results, entity.Clone())
	}
	return results
}

// Len reports the number of entities in the catalog.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entities)
}

func validateEntity(entity *schemas.Entity) error {
	if entity.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEntity)
	}
	if !entity.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntity, entity.Kind)
	}
	if entity.Severity == "" {
		entity.Severity = schemas.SeverityUnknown
	} else if !entity.Severity.IsValid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidEntity, entity.Severity)
	}
	if entity.Confidence != nil && (*entity.Confidence < 0 || *entity.Confidence > 1) {
		return fmt.Errorf("%w: confidence %g out of range [0,1]", ErrInvalidEntity, *entity.Confidence)
	}
	return nil
}

func kindMatches(kind schemas.EntityKind, filter []schemas.EntityKind) bool {
	for _, k := range filter {
		if kind == k {
			return true
		}
	}
	return false
}
