package devices

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDevicesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS scanner_devices (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  device_id TEXT NOT NULL,
  label TEXT,
  last_sync_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (organization_id, device_id)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestUpsertCreatesThenRefreshes(t *testing.T) {
	db := setupDevicesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	first := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	created, err := repo.Upsert(ctx, orgID, "gate-a-01", first)
	require.NoError(t, err)
	require.NotNil(t, created)
	require.NotNil(t, created.LastSyncAt)
	assert.True(t, created.LastSyncAt.Equal(first))

	later := first.Add(2 * time.Hour)
	refreshed, err := repo.Upsert(ctx, orgID, "gate-a-01", later)
	require.NoError(t, err)
	require.NotNil(t, refreshed)
	require.NotNil(t, refreshed.LastSyncAt)
	assert.True(t, refreshed.LastSyncAt.Equal(later))

	var count int64
	require.NoError(t, db.Table("scanner_devices").
		Where("organization_id = ? AND device_id = ?", orgID, "gate-a-01").
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertScopedByOrganization(t *testing.T) {
	db := setupDevicesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orgA := uuid.New()
	orgB := uuid.New()
	now := time.Now().UTC()

	_, err := repo.Upsert(ctx, orgA, "gate-shared", now)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, orgB, "gate-shared", now)
	require.NoError(t, err)

	a, err := repo.Find(ctx, orgA, "gate-shared")
	require.NoError(t, err)
	require.NotNil(t, a)
	b, err := repo.Find(ctx, orgB, "gate-shared")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestUpsertRequiresDeviceID(t *testing.T) {
	db := setupDevicesTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Upsert(context.Background(), uuid.New(), "", time.Now())
	require.Error(t, err)
}

func TestFindMissingReturnsNil(t *testing.T) {
	db := setupDevicesTestDB(t)
	repo := NewRepository(db)

	device, err := repo.Find(context.Background(), uuid.New(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, device)
}
