package libraries

import (
	"context"
	"database/sql"
	"testing"
	"time"

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

func TestCreateLibraryWithPaths(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	library := &models.Library{
		Name: "Comics",
		LibraryPaths: []*models.LibraryPath{
			{Filepath: "/library/comics"},
			{Filepath: "/library/manga"},
		},
	}
	require.NoError(t, svc.CreateLibrary(ctx, library))
	assert.NotZero(t, library.ID)

	got, err := svc.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: &library.ID})
	require.NoError(t, err)
	assert.Equal(t, "Comics", got.Name)
	require.Len(t, got.LibraryPaths, 2)
	assert.Equal(t, "/library/comics", got.LibraryPaths[0].Filepath)
}

func TestRetrieveLibraryVolumeCount(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	library := &models.Library{Name: "Comics"}
	require.NoError(t, svc.CreateLibrary(ctx, library))

	s := &models.Series{LibraryID: library.ID, Name: "Series"}
	_, err := db.NewInsert().Model(s).Exec(ctx)
	require.NoError(t, err)

	volume := &models.Volume{
		LibraryID:     library.ID,
		SeriesID:      s.ID,
		Name:          "v01",
		Filepath:      "/library/v01.cbz",
		Format:        models.VolumeFormatCBZ,
		FilesizeBytes: 100,
	}
	_, err = db.NewInsert().Model(volume).Exec(ctx)
	require.NoError(t, err)

	got, err := svc.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: &library.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, got.VolumeCount)

	libraries, err := svc.ListLibraries(ctx, ListLibrariesOptions{})
	require.NoError(t, err)
	require.Len(t, libraries, 1)
	assert.Equal(t, 1, libraries[0].VolumeCount)
}

func TestListLibrariesExcludesDeleted(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	active := &models.Library{Name: "Active"}
	require.NoError(t, svc.CreateLibrary(ctx, active))

	deleted := &models.Library{Name: "Deleted"}
	require.NoError(t, svc.CreateLibrary(ctx, deleted))
	deleted.DeletedAt = pointerutil.Time(time.Now())
	require.NoError(t, svc.UpdateLibrary(ctx, deleted, UpdateLibraryOptions{
		Columns: []string{"deleted_at"},
	}))

	libraries, err := svc.ListLibraries(ctx, ListLibrariesOptions{})
	require.NoError(t, err)
	require.Len(t, libraries, 1)
	assert.Equal(t, active.ID, libraries[0].ID)

	libraries, err = svc.ListLibraries(ctx, ListLibrariesOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, libraries, 2)
}

func TestUpdateLibraryReplacesPaths(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	library := &models.Library{
		Name: "Comics",
		LibraryPaths: []*models.LibraryPath{
			{Filepath: "/library/old"},
		},
	}
	require.NoError(t, svc.CreateLibrary(ctx, library))

	library.LibraryPaths = []*models.LibraryPath{
		{Filepath: "/library/new-a"},
		{Filepath: "/library/new-b"},
	}
	require.NoError(t, svc.UpdateLibrary(ctx, library, UpdateLibraryOptions{
		UpdateLibraryPaths: true,
	}))

	got, err := svc.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: &library.ID})
	require.NoError(t, err)
	require.Len(t, got.LibraryPaths, 2)
	assert.Equal(t, "/library/new-a", got.LibraryPaths[0].Filepath)
	assert.Equal(t, "/library/new-b", got.LibraryPaths[1].Filepath)
}
