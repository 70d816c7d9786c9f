package graph

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/threatgraph/api/schemas"
)

// ApplyBatch applies one ingestion batch under a single write lock, so no
// reader ever observes a partially-applied batch.
//
// Entities are validated up front; any invalid entity rejects the whole
// batch before anything is written. Valid batches then apply in two phases,
// all entities first and relations second, so a relation may reference an
// entity introduced by the same batch. A relation whose endpoint is still
// absent is rejected individually into the result rather than failing the
// batch.
func (g *Graph) ApplyBatch(batch schemas.IngestBatch) (schemas.BatchResult, error) {
	for i := range batch.Entities {
		if err := validateEntity(&batch.Entities[i]); err != nil {
			return schemas.BatchResult{}, fmt.Errorf("entity %q: %w", batch.Entities[i].ID, err)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	result := schemas.BatchResult{}

	for _, entity := range batch.Entities {
		g.upsertLocked(entity)
		result.AppliedEntities++
	}

	for _, relation := range batch.Relations {
		if relation.SourceID == "" || relation.TargetID == "" {
			result.RejectedRelations = append(result.RejectedRelations, schemas.RejectedRelation{
				Relation: relation,
				Reason:   "relation source_id and target_id are required",
			})
			continue
		}
		if relation.ID == "" {
			// Backends may omit relation ids in a batch.
			relation.ID = uuid.NewString()
		}
		if err := g.addRelationLocked(relation); err != nil {
			result.RejectedRelations = append(result.RejectedRelations, schemas.RejectedRelation{
				Relation: relation,
				Reason:   err.Error(),
			})
			continue
		}
		result.AppliedRelations++
	}

	g.logger.Info("Applied ingestion batch",
		zap.Int("entities", result.AppliedEntities),
		zap.Int("relations", result.AppliedRelations),
		zap.Int("rejected_relations", len(result.RejectedRelations)))
	return result, nil
}
