package series

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/komoribooks/komori/pkg/errcodes"
	"github.com/komoribooks/komori/pkg/models"
	"github.com/komoribooks/komori/pkg/pagecache"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	seriesService *Service
	pageCache     *pagecache.Cache

	// coverFn is swapped out in tests.
	coverFn func(ctx context.Context, archivePath string, thumbnail bool) []byte
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListSeriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	series, total, err := h.seriesService.ListSeriesWithTotal(ctx, ListSeriesOptions{
		Limit:     &params.Limit,
		Offset:    &params.Offset,
		LibraryID: params.LibraryID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Series []*models.Series `json:"series"`
		Total  int              `json:"total"`
	}{series, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	series, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, series))
}

func (h *handler) retrieveVolume(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Volume")
	}

	volume, err := h.seriesService.RetrieveVolume(ctx, RetrieveVolumeOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, volume))
}

func (h *handler) cover(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Volume")
	}

	// Bind params.
	params := RetrieveCoverQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	volume, err := h.seriesService.RetrieveVolume(ctx, RetrieveVolumeOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	data := h.coverFn(ctx, volume.Filepath, params.Thumbnail)
	if len(data) == 0 {
		return errcodes.NotFound("Cover")
	}

	// Thumbnails are re-encoded, so the stored MIME type only applies to the
	// full-size cover. Sniff the bytes instead of trusting either.
	mime := mimetype.Detect(data).String()

	return errors.WithStack(c.Blob(http.StatusOK, mime, data))
}

func (h *handler) page(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Volume")
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		return errcodes.NotFound("Page")
	}

	volume, err := h.seriesService.RetrieveVolume(ctx, RetrieveVolumeOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err := h.pageCache.EnsureExtracted(ctx, volume.ID, volume.Filepath); err != nil {
		log.Err(err).Error("failed to extract volume for page read")
		return errcodes.NotFound("Page")
	}

	path, mime, err := h.pageCache.PagePath(volume.ID, page)
	if err != nil {
		return errcodes.NotFound("Page")
	}

	c.Response().Header().Set(echo.HeaderContentType, mime)
	return errors.WithStack(c.File(path))
}
