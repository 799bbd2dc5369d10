package libraries

import (
	"net/http"
	"strconv"
	"time"

	"github.com/komoribooks/komori/pkg/errcodes"
	"github.com/komoribooks/komori/pkg/jobs"
	"github.com/komoribooks/komori/pkg/models"
	"github.com/komoribooks/komori/pkg/series"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
)

type handler struct {
	libraryService *Service
	seriesService  *series.Service
	jobService     *jobs.Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	library := &models.Library{
		Name:         params.Name,
		LibraryPaths: make([]*models.LibraryPath, 0, len(params.LibraryPaths)),
	}
	for _, path := range params.LibraryPaths {
		library.LibraryPaths = append(library.LibraryPaths, &models.LibraryPath{
			Filepath: path,
		})
	}

	err := h.libraryService.CreateLibrary(ctx, library)
	if err != nil {
		return errors.WithStack(err)
	}

	// Trigger a scan job for the new library.
	scanJob := &models.Job{
		Type:       models.JobTypeScan,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobScanData{LibraryID: &library.ID},
	}
	if err := h.jobService.CreateJob(ctx, scanJob); err != nil {
		// Log the error but don't fail the library creation.
		log := logger.FromContext(ctx)
		log.Err(err).Error("failed to create scan job after library creation")
	}

	library, err = h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &library.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListLibrariesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	libraries, total, err := h.libraryService.ListLibrariesWithTotal(ctx, ListLibrariesOptions{
		Limit:          &params.Limit,
		Offset:         &params.Offset,
		IncludeDeleted: params.Deleted,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Libraries []*models.Library `json:"libraries"`
		Total     int               `json:"total"`
	}{libraries, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	// Bind params.
	params := UpdateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the library.
	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateLibraryOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != library.Name {
		library.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.LibraryPaths != nil {
		library.LibraryPaths = make([]*models.LibraryPath, 0, len(params.LibraryPaths))
		for _, path := range params.LibraryPaths {
			library.LibraryPaths = append(library.LibraryPaths, &models.LibraryPath{
				Filepath: path,
			})
		}
		opts.UpdateLibraryPaths = true
	}

	deleting := params.Deleted != nil && *params.Deleted && library.DeletedAt == nil
	if params.Deleted != nil && (*params.Deleted && library.DeletedAt == nil || !*params.Deleted && library.DeletedAt != nil) {
		if *params.Deleted {
			library.DeletedAt = pointerutil.Time(time.Now())
		} else {
			library.DeletedAt = nil
		}
		opts.Columns = append(opts.Columns, "deleted_at")
	}

	// Update the model.
	err = h.libraryService.UpdateLibrary(ctx, library, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	if deleting {
		// The library's extraction directories are now stale; purge them in
		// the background.
		if err := h.enqueuePurge(c, library.ID); err != nil {
			log := logger.FromContext(ctx)
			log.Err(err).Error("failed to create purge job after library delete")
		}
	}

	// Reload the model.
	library, err = h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) enqueuePurge(c echo.Context, libraryID int) error {
	ctx := c.Request().Context()

	volumes, err := h.seriesService.ListVolumes(ctx, series.ListVolumesOptions{
		LibraryID: &libraryID,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if len(volumes) == 0 {
		return nil
	}

	volumeIDs := make([]int, 0, len(volumes))
	for _, volume := range volumes {
		volumeIDs = append(volumeIDs, volume.ID)
	}

	purgeJob := &models.Job{
		Type:       models.JobTypePurge,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobPurgeData{VolumeIDs: volumeIDs},
	}
	return errors.WithStack(h.jobService.CreateJob(ctx, purgeJob))
}
