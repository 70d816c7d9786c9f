// Package store persists graph snapshots to PostgreSQL. The in-memory graph
// is the source of truth for a session; this store lets a backend keep
// applied batches across sessions and reload them on startup.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/threatgraph/api/schemas"
)

// DBPool abstracts the pgxpool.Pool methods the store needs, so tests can
// substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the PostgreSQL-backed snapshot persistence.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

const upsertEntitySQL = `
        INSERT INTO entities (id, name, kind, confidence, severity, first_seen, last_seen)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            kind = EXCLUDED.kind,
            confidence = EXCLUDED.confidence,
            severity = EXCLUDED.severity,
            first_seen = COALESCE(entities.first_seen, EXCLUDED.first_seen),
            last_seen = EXCLUDED.last_seen;
    `

const upsertRelationSQL = `
        INSERT INTO relations (id, source_id, target_id, relation_type, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET
            source_id = EXCLUDED.source_id,
            target_id = EXCLUDED.target_id,
            relation_type = EXCLUDED.relation_type;
    `

// PersistBatch writes one applied batch inside a transaction, entities first
// and relations second, mirroring the two-phase order the in-memory engine
// uses.
func (s *Store) PersistBatch(ctx context.Context, batch schemas.IngestBatch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	for _, e := range batch.Entities {
		if _, err := tx.Exec(ctx, upsertEntitySQL,
			e.ID, e.Name, string(e.Kind), e.Confidence, string(e.Severity), e.FirstSeen, e.LastSeen); err != nil {
			return fmt.Errorf("failed to upsert entity %s: %w", e.ID, err)
		}
	}
	for _, r := range batch.Relations {
		if _, err := tx.Exec(ctx, upsertRelationSQL,
			r.ID, r.SourceID, r.TargetID, string(r.RelationType), r.CreatedAt); err != nil {
			return fmt.Errorf("failed to upsert relation %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadExport reads the full persisted snapshot, entities ordered by first
// sight and relations by id, ready to be replayed into a fresh graph as one
// batch.
func (s *Store) LoadExport(ctx context.Context) (schemas.GraphExport, error) {
	export := schemas.GraphExport{}

	rows, err := s.pool.Query(ctx, `
        SELECT id, name, kind, confidence, severity, first_seen, last_seen
        FROM entities
        ORDER BY first_seen ASC NULLS LAST, id ASC;
    `)
	if err != nil {
		return export, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e schemas.Entity
		var kind, severity string
		if err := rows.Scan(&e.ID, &e.Name, &kind, &e.Confidence, &severity, &e.FirstSeen, &e.LastSeen); err != nil {
			return export, fmt.Errorf("failed to scan entity row: %w", err)
		}
		e.Kind = schemas.EntityKind(kind)
		e.Severity = schemas.Severity(severity)
		export.Entities = append(export.Entities, &e)
	}
	if err := rows.Err(); err != nil {
		return export, fmt.Errorf("error during entity iteration: %w", err)
	}

	relRows, err := s.pool.Query(ctx, `
        SELECT id, source_id, target_id, relation_type, created_at
        FROM relations
        ORDER BY id ASC;
    `)
	if err != nil {
		return export, fmt.Errorf("failed to query relations: %w", err)
	}
	defer relRows.Close()

	for relRows.Next() {
		var r schemas.Relation
		var relationType string
		if err := relRows.Scan(&r.ID, &r.SourceID, &r.TargetID, &relationType, &r.CreatedAt); err != nil {
			return export, fmt.Errorf("failed to scan relation row: %w", err)
		}
		r.RelationType = schemas.RelationType(relationType)
		export.Relations = append(export.Relations, &r)
	}
	if err := relRows.Err(); err != nil {
		return export, fmt.Errorf("error during relation iteration: %w", err)
	}

	return export, nil
}
