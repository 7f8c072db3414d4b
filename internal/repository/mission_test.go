package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cp1-controllers/internal/common/apperror"
	"cp1-controllers/internal/database"
	"cp1-controllers/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "missions.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func record(id, scenario string, started time.Time) *models.MissionRecord {
	x, y := 1.0, 2.0
	return &models.MissionRecord{
		MissionID:      id,
		Scenario:       scenario,
		TasksTotal:     2,
		TasksCompleted: 1,
		FinalX:         &x,
		FinalY:         &y,
		StartedAt:      started,
		FinishedAt:     started.Add(time.Minute),
		Attempts: []models.WaypointAttempt{
			{Sequence: 1, Waypoint: "l4", Status: "ABORTED"},
			{Sequence: 0, Waypoint: "l2", Status: "SUCCEEDED"},
		},
	}
}

func TestSaveAndFindMission(t *testing.T) {
	repo := NewMissionRepository(testDB(t))
	ctx := context.Background()

	rec := record("m-1", "baseline_a", time.Now())
	require.NoError(t, repo.Save(ctx, rec))
	assert.NotZero(t, rec.ID)

	got, err := repo.FindByMissionID(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.TasksCompleted)
	require.Len(t, got.Attempts, 2)
	assert.Equal(t, "l2", got.Attempts[0].Waypoint)
	assert.Equal(t, "ABORTED", got.Attempts[1].Status)
	assert.Equal(t, 2.0, *got.FinalY)
}

func TestFindUnknownMission(t *testing.T) {
	repo := NewMissionRepository(testDB(t))
	_, err := repo.FindByMissionID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDuplicateMissionIDIsRejected(t *testing.T) {
	repo := NewMissionRepository(testDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, record("m-1", "baseline_a", time.Now())))
	assert.Error(t, repo.Save(ctx, record("m-1", "baseline_a", time.Now())))
}

func TestListRecentFiltersAndOrders(t *testing.T) {
	repo := NewMissionRepository(testDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, record("a1", "baseline_a", base)))
	require.NoError(t, repo.Save(ctx, record("b1", "baseline_b", base.Add(time.Hour))))
	require.NoError(t, repo.Save(ctx, record("a2", "baseline_a", base.Add(2*time.Hour))))

	all, err := repo.ListRecent(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a2", all[0].MissionID)

	onlyA, err := repo.ListRecent(ctx, "baseline_a", 1)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "a2", onlyA[0].MissionID)
}
