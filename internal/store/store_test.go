package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/threatgraph/api/schemas"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing().WillReturnError(nil)
	store, err := New(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return store, mockPool
}

func TestNewStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPersistBatch(t *testing.T) {
	ctx := context.Background()

	confidence := 0.9
	entity := schemas.Entity{
		ID: "actor-1", Name: "APT41", Kind: schemas.KindActor,
		Confidence: &confidence, Severity: schemas.SeverityHigh,
	}
	relation := schemas.Relation{
		ID: "rel-1", SourceID: "campaign-1", TargetID: "actor-1",
		RelationType: schemas.RelationAttributedTo, CreatedAt: time.Now(),
	}

	t.Run("should persist entities then relations in one transaction", func(t *testing.T) {
		store, mockPool := newMockStore(t)

		batch := schemas.IngestBatch{
			Entities:  []schemas.Entity{entity},
			Relations: []schemas.Relation{relation},
		}

		mockPool.ExpectBegin()
		mockPool.ExpectExec(regexp.QuoteMeta(upsertEntitySQL)).
			WithArgs(entity.ID, entity.Name, string(entity.Kind), entity.Confidence, string(entity.Severity), entity.FirstSeen, entity.LastSeen).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec(regexp.QuoteMeta(upsertRelationSQL)).
			WithArgs(relation.ID, relation.SourceID, relation.TargetID, string(relation.RelationType), relation.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		require.NoError(t, store.PersistBatch(ctx, batch))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should handle transaction begin failure", func(t *testing.T) {
		store, mockPool := newMockStore(t)

		beginErr := errors.New("cannot begin tx")
		mockPool.ExpectBegin().WillReturnError(beginErr)

		err := store.PersistBatch(ctx, schemas.IngestBatch{})
		require.Error(t, err)
		assert.ErrorIs(t, err, beginErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should rollback when an entity upsert fails", func(t *testing.T) {
		store, mockPool := newMockStore(t)

		execErr := errors.New("constraint violation")
		mockPool.ExpectBegin()
		mockPool.ExpectExec(regexp.QuoteMeta(upsertEntitySQL)).
			WithArgs(entity.ID, entity.Name, string(entity.Kind), entity.Confidence, string(entity.Severity), entity.FirstSeen, entity.LastSeen).
			WillReturnError(execErr)
		mockPool.ExpectRollback()

		err := store.PersistBatch(ctx, schemas.IngestBatch{Entities: []schemas.Entity{entity}})
		require.Error(t, err)
		assert.ErrorIs(t, err, execErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestLoadExport(t *testing.T) {
	ctx := context.Background()

	t.Run("should load entities and relations", func(t *testing.T) {
		store, mockPool := newMockStore(t)

		confidence := 0.95
		now := time.Now()

		entityColumns := []string{"id", "name", "kind", "confidence", "severity", "first_seen", "last_seen"}
		entityRows := pgxmock.NewRows(entityColumns).
			AddRow("actor-1", "APT41", "actor", &confidence, "high", &now, &now)
		mockPool.ExpectQuery(`SELECT id, name, kind, confidence, severity, first_seen, last_seen\s+FROM entities`).
			WillReturnRows(entityRows)

		relationColumns := []string{"id", "source_id", "target_id", "relation_type", "created_at"}
		relationRows := pgxmock.NewRows(relationColumns).
			AddRow("rel-1", "campaign-1", "actor-1", "attributed-to", now)
		mockPool.ExpectQuery(`SELECT id, source_id, target_id, relation_type, created_at\s+FROM relations`).
			WillReturnRows(relationRows)

		export, err := store.LoadExport(ctx)
		require.NoError(t, err)
		require.Len(t, export.Entities, 1)
		assert.Equal(t, "APT41", export.Entities[0].Name)
		assert.Equal(t, schemas.KindActor, export.Entities[0].Kind)
		require.Len(t, export.Relations, 1)
		assert.Equal(t, schemas.RelationAttributedTo, export.Relations[0].RelationType)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should propagate query errors", func(t *testing.T) {
		store, mockPool := newMockStore(t)

		queryErr := errors.New("connection reset")
		mockPool.ExpectQuery(`SELECT id, name, kind`).WillReturnError(queryErr)

		_, err := store.LoadExport(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, queryErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
