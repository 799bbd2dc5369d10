package jobs

import (
	"context"
	"database/sql"
	"testing"

	"github.com/komoribooks/komori/pkg/migrations"
	"github.com/komoribooks/komori/pkg/models"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestCreateAndRetrieveJob(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	libraryID := 3
	job := &models.Job{
		Type:       models.JobTypeScan,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobScanData{LibraryID: &libraryID},
	}
	require.NoError(t, svc.CreateJob(ctx, job))
	assert.NotZero(t, job.ID)
	assert.NotEmpty(t, job.Data)

	got, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.JobTypeScan, got.Type)

	data, ok := got.DataParsed.(*models.JobScanData)
	require.True(t, ok)
	require.NotNil(t, data.LibraryID)
	assert.Equal(t, libraryID, *data.LibraryID)
}

func TestRetrieveJobNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	id := 999
	_, err := svc.RetrieveJob(context.Background(), RetrieveJobOptions{ID: &id})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Job not found")
}

func TestListJobsFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	pending := &models.Job{
		Type:       models.JobTypeScan,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobScanData{},
	}
	require.NoError(t, svc.CreateJob(ctx, pending))

	claimed := &models.Job{
		Type:       models.JobTypePurge,
		Status:     models.JobStatusInProgress,
		ProcessID:  pointerutil.String("abcd1234"),
		DataParsed: &models.JobPurgeData{VolumeIDs: []int{1}},
	}
	require.NoError(t, svc.CreateJob(ctx, claimed))

	completed := &models.Job{
		Type:       models.JobTypeScan,
		Status:     models.JobStatusCompleted,
		DataParsed: &models.JobScanData{},
	}
	require.NoError(t, svc.CreateJob(ctx, completed))

	// Statuses filter.
	jobs, err := svc.ListJobs(ctx, ListJobsOptions{
		Statuses: []string{models.JobStatusPending, models.JobStatusInProgress},
	})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	// Jobs claimed by another process are excluded; unclaimed jobs stay.
	jobs, err = svc.ListJobs(ctx, ListJobsOptions{
		Statuses:           []string{models.JobStatusPending, models.JobStatusInProgress},
		ProcessIDToExclude: pointerutil.String("abcd1234"),
	})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, pending.ID, jobs[0].ID)
}

func TestUpdateJob(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	job := &models.Job{
		Type:       models.JobTypeScan,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobScanData{},
	}
	require.NoError(t, svc.CreateJob(ctx, job))

	job.Status = models.JobStatusCompleted
	job.Progress = 100
	require.NoError(t, svc.UpdateJob(ctx, job, UpdateJobOptions{
		Columns: []string{"status", "progress"},
	}))

	got, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
}
