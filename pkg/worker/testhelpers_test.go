package worker

import (
	"context"
	"database/sql"
	"testing"

	"github.com/komoribooks/komori/pkg/config"
	"github.com/komoribooks/komori/pkg/jobs"
	"github.com/komoribooks/komori/pkg/libraries"
	"github.com/komoribooks/komori/pkg/migrations"
	"github.com/komoribooks/komori/pkg/models"
	"github.com/komoribooks/komori/pkg/pagecache"
	"github.com/komoribooks/komori/pkg/series"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// testContext holds all the dependencies needed for testing the worker.
type testContext struct {
	t              *testing.T
	ctx            context.Context
	db             *bun.DB
	worker         *Worker
	libraryService *libraries.Service
	jobService     *jobs.Service
	seriesService  *series.Service
	pageCache      *pagecache.Cache
}

// newTestContext creates a new test context with an in-memory SQLite database
// and all necessary services initialized.
func newTestContext(t *testing.T) *testContext {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	libraryService := libraries.NewService(db)
	jobService := jobs.NewService(db)
	seriesService := series.NewService(db)
	pageCache := pagecache.New(t.TempDir())

	cfg := &config.Config{
		WorkerProcesses: 1,
	}
	w := &Worker{
		config:         cfg,
		log:            logger.New(),
		jobService:     jobService,
		libraryService: libraryService,
		seriesService:  seriesService,
		pageCache:      pageCache,
	}

	ctx := logger.New().WithContext(context.Background())

	tc := &testContext{
		t:              t,
		ctx:            ctx,
		db:             db,
		worker:         w,
		libraryService: libraryService,
		jobService:     jobService,
		seriesService:  seriesService,
		pageCache:      pageCache,
	}

	t.Cleanup(func() {
		db.Close()
	})

	return tc
}

// createLibrary creates a test library with the given paths and returns it.
func (tc *testContext) createLibrary(paths []string) *models.Library {
	tc.t.Helper()

	libraryPaths := make([]*models.LibraryPath, len(paths))
	for i, p := range paths {
		libraryPaths[i] = &models.LibraryPath{
			Filepath: p,
		}
	}

	library := &models.Library{
		Name:         "Test Library",
		LibraryPaths: libraryPaths,
	}

	err := tc.libraryService.CreateLibrary(tc.ctx, library)
	if err != nil {
		tc.t.Fatalf("failed to create library: %v", err)
	}
	return library
}

// createJob persists a job so that worker process functions can report
// progress against a real row.
func (tc *testContext) createJob(jobType string, data interface{}) *models.Job {
	tc.t.Helper()

	job := &models.Job{
		Type:       jobType,
		Status:     models.JobStatusPending,
		DataParsed: data,
	}
	if err := tc.jobService.CreateJob(tc.ctx, job); err != nil {
		tc.t.Fatalf("failed to create job: %v", err)
	}
	return job
}

// runScan executes a scan job for all libraries.
func (tc *testContext) runScan() error {
	job := tc.createJob(models.JobTypeScan, &models.JobScanData{})
	return tc.worker.ProcessScanJob(tc.ctx, job)
}

// listSeries returns all series in the database.
func (tc *testContext) listSeries() []*models.Series {
	tc.t.Helper()

	allSeries, err := tc.seriesService.ListSeries(tc.ctx, series.ListSeriesOptions{})
	if err != nil {
		tc.t.Fatalf("failed to list series: %v", err)
	}
	return allSeries
}

// listVolumes returns all volumes in the database.
func (tc *testContext) listVolumes() []*models.Volume {
	tc.t.Helper()

	volumes, err := tc.seriesService.ListVolumes(tc.ctx, series.ListVolumesOptions{})
	if err != nil {
		tc.t.Fatalf("failed to list volumes: %v", err)
	}
	return volumes
}
