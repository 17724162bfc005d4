package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vision-relay-go/internal/platform/errors"
	"vision-relay-go/internal/platform/storage/migrations"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:storage-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := Open(Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	assert.True(t, db.Migrator().HasTable(&CredentialRecord{}))
	assert.True(t, db.Migrator().HasTable(&DomainEvent{}))

	history, err := NewMigrationManager(db).GetMigrationHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "001_initial", history[0].Version)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))

	history, err := NewMigrationManager(db).GetMigrationHistory()
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

type failingMigration struct{}

func (failingMigration) Version() string       { return "999_broken" }
func (failingMigration) Description() string   { return "always fails" }
func (failingMigration) Up(db *gorm.DB) error   { return db.Exec("NOT VALID SQL").Error }
func (failingMigration) Down(db *gorm.DB) error { return nil }

func TestRunMigrations_FailureIsNotRecorded(t *testing.T) {
	db := openTestDB(t)
	manager := NewMigrationManager(db)
	manager.AddMigration(failingMigration{})

	err := manager.RunMigrations()

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindStorage))
	pending, err := manager.Pending()
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRollbackMigration(t *testing.T) {
	db := openTestDB(t)
	manager := NewMigrationManager(db)
	require.NoError(t, Migrate(db))

	err := manager.RollbackMigration("001_initial")
	assert.True(t, errors.IsKind(err, errors.KindStorage), "not registered on this manager")

	err = manager.RollbackMigration("000_missing")
	assert.True(t, errors.IsKind(err, errors.KindStorage))

	manager.AddMigration(&migrations.Migration001Initial{})
	require.NoError(t, manager.RollbackMigration("001_initial"))
	assert.False(t, db.Migrator().HasTable(&CredentialRecord{}))

	pending, err := manager.Pending()
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(openTestDB(t))

	require.NoError(t, repo.Save(ctx, "analysis:item.completed", "batch-1", map[string]any{"index": 0}))
	require.NoError(t, repo.Save(ctx, "analysis:item.failed", "batch-1", map[string]any{"index": 1}))
	require.NoError(t, repo.Save(ctx, "analysis:item.completed", "batch-2", map[string]any{"index": 0}))

	all, err := repo.List(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	batch, err := repo.List(ctx, EventFilter{BatchID: "batch-1"})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "analysis:item.failed", batch[0].EventType)
	assert.JSONEq(t, `{"index":1}`, string(batch[0].Data))

	completed, err := repo.List(ctx, EventFilter{EventType: "analysis:item.completed", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}
