package series

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/komoribooks/komori/internal/testgen"
	"github.com/komoribooks/komori/pkg/cover"
	"github.com/komoribooks/komori/pkg/migrations"
	"github.com/komoribooks/komori/pkg/models"
	"github.com/komoribooks/komori/pkg/pagecache"
	"github.com/labstack/echo/v4"
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

func seedVolume(t *testing.T, db *bun.DB, filepath string) *models.Volume {
	t.Helper()
	ctx := context.Background()

	library := &models.Library{Name: "Test Library"}
	_, err := db.NewInsert().Model(library).Exec(ctx)
	require.NoError(t, err)

	s := &models.Series{LibraryID: library.ID, Name: "Test Series"}
	_, err = db.NewInsert().Model(s).Exec(ctx)
	require.NoError(t, err)

	volume := &models.Volume{
		LibraryID:     library.ID,
		SeriesID:      s.ID,
		Name:          "Test Series v01",
		Filepath:      filepath,
		Format:        models.VolumeFormatCBZ,
		FilesizeBytes: 1000,
		PageCount:     3,
	}
	_, err = db.NewInsert().Model(volume).Exec(ctx)
	require.NoError(t, err)

	return volume
}

func newHandler(t *testing.T, db *bun.DB) *handler {
	t.Helper()
	return &handler{
		seriesService: NewService(db),
		pageCache:     pagecache.New(t.TempDir()),
		coverFn:       cover.Get,
	}
}

func newGetContext(e *echo.Echo, target string, paramNames, paramValues []string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames(paramNames...)
	c.SetParamValues(paramValues...)
	return c, rec
}

func TestRetrieveVolumeHandler(t *testing.T) {
	db := setupTestDB(t)
	h := newHandler(t, db)
	e := echo.New()

	volume := seedVolume(t, db, "/library/test.cbz")

	c, rec := newGetContext(e, "/", []string{"id"}, []string{strconv.Itoa(volume.ID)})
	require.NoError(t, h.retrieveVolume(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Test Series v01"`)

	c, _ = newGetContext(e, "/", []string{"id"}, []string{"999"})
	err := h.retrieveVolume(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Volume not found")
}

func TestCoverHandler(t *testing.T) {
	db := setupTestDB(t)
	h := newHandler(t, db)
	e := echo.New()

	tmpDir := t.TempDir()
	cbzPath := testgen.GenerateCBZ(t, tmpDir, "volume.cbz", testgen.CBZOptions{
		Pages: []string{"001.png"},
	})
	volume := seedVolume(t, db, cbzPath)

	c, rec := newGetContext(e, "/", []string{"id"}, []string{strconv.Itoa(volume.ID)})
	require.NoError(t, h.cover(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestCoverHandlerThumbnail(t *testing.T) {
	db := setupTestDB(t)
	h := newHandler(t, db)
	e := echo.New()

	tmpDir := t.TempDir()
	cbzPath := testgen.GenerateCBZ(t, tmpDir, "volume.cbz", testgen.CBZOptions{
		Pages:       []string{"001.png"},
		ImageWidth:  640,
		ImageHeight: 640,
	})
	volume := seedVolume(t, db, cbzPath)

	c, rec := newGetContext(e, "/?thumbnail=true", []string{"id"}, []string{strconv.Itoa(volume.ID)})
	require.NoError(t, h.cover(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get(echo.HeaderContentType))
}

func TestCoverHandlerMissingArchive(t *testing.T) {
	db := setupTestDB(t)
	h := newHandler(t, db)
	e := echo.New()

	volume := seedVolume(t, db, "/nowhere/missing.cbz")

	c, _ := newGetContext(e, "/", []string{"id"}, []string{strconv.Itoa(volume.ID)})
	err := h.cover(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cover not found")
}

func TestPageHandler(t *testing.T) {
	db := setupTestDB(t)
	h := newHandler(t, db)
	e := echo.New()

	tmpDir := t.TempDir()
	cbzPath := testgen.GenerateCBZ(t, tmpDir, "volume.cbz", testgen.CBZOptions{
		Pages: []string{"001.png", "002.png"},
	})
	volume := seedVolume(t, db, cbzPath)

	id := strconv.Itoa(volume.ID)

	c, rec := newGetContext(e, "/", []string{"id", "page"}, []string{id, "0"})
	require.NoError(t, h.page(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.Bytes())

	// Out of range page.
	c, _ = newGetContext(e, "/", []string{"id", "page"}, []string{id, "5"})
	err := h.page(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Page not found")
}
