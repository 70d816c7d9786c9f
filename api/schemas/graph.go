package schemas

import "time"

// -- Core Graph Models --
// These types mirror the backend wire format (snake_case keys) so batches can
// be ingested from API responses without a translation layer.

// Entity is a node in the threat correlation graph.
type Entity struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Kind EntityKind `json:"kind"`
	// Confidence is on the [0,1] scale. A nil pointer means "not assessed",
	// which is distinct from an explicit zero.
	Confidence *float64   `json:"confidence,omitempty"`
	Severity   Severity   `json:"severity"`
	FirstSeen  *time.Time `json:"first_seen,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
}

// Clone returns a deep copy so callers can never mutate catalog state through
// a returned pointer.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Confidence != nil {
		c := *e.Confidence
		clone.Confidence = &c
	}
	if e.FirstSeen != nil {
		t := *e.FirstSeen
		clone.FirstSeen = &t
	}
	if e.LastSeen != nil {
		t := *e.LastSeen
		clone.LastSeen = &t
	}
	return &clone
}

// Relation is a directed, typed edge between two entities. Storage preserves
// direction; queries may traverse it from either side.
type Relation struct {
	ID           string       `json:"id"`
	SourceID     string       `json:"source_id"`
	TargetID     string       `json:"target_id"`
	RelationType RelationType `json:"relation_type"`
	CreatedAt    time.Time    `json:"created_at,omitempty"`
}

// Clone returns a copy of the relation.
func (r *Relation) Clone() *Relation {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// -- Batch Ingestion Models --

// IngestBatch is an atomically-applied group of entities and relations,
// typically one API response worth of correlation data.
type IngestBatch struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// RejectedRelation pairs a relation that could not be applied with the reason
// it was refused.
type RejectedRelation struct {
	Relation Relation `json:"relation"`
	Reason   string   `json:"reason"`
}

// BatchResult reports the outcome of one ingestion batch. Relation failures
// are reported here per-relation rather than failing the whole batch.
type BatchResult struct {
	AppliedEntities   int                `json:"applied_entities"`
	AppliedRelations  int                `json:"applied_relations"`
	RejectedRelations []RejectedRelation `json:"rejected_relations,omitempty"`
	// Warnings carries non-fatal inconsistencies detected during ingestion,
	// e.g. a backend-supplied risk score that disagrees with the classifier.
	Warnings []string `json:"warnings,omitempty"`
}

// GraphExport is a full serializable dump of the graph, used for snapshot
// persistence and for handing a consistent view to the presentation layer.
type GraphExport struct {
	Entities  []*Entity   `json:"entities"`
	Relations []*Relation `json:"relations"`
}
