package worker

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/komoribooks/komori/pkg/archive"
	"github.com/komoribooks/komori/pkg/cover"
	"github.com/komoribooks/komori/pkg/errcodes"
	"github.com/komoribooks/komori/pkg/jobs"
	"github.com/komoribooks/komori/pkg/libraries"
	"github.com/komoribooks/komori/pkg/models"
	"github.com/komoribooks/komori/pkg/series"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

var formatsByExtension = map[string]string{
	".cbz": models.VolumeFormatCBZ,
	".zip": models.VolumeFormatCBZ,
	".cbr": models.VolumeFormatCBR,
	".rar": models.VolumeFormatCBR,
}

func (w *Worker) ProcessScanJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)
	log.Info("processing scan job")

	if data, ok := job.DataParsed.(*models.JobScanData); ok && data != nil && data.LibraryID != nil {
		library, err := w.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{
			ID: data.LibraryID,
		})
		if err != nil {
			return errors.WithStack(err)
		}
		return errors.WithStack(w.scanLibrary(ctx, job, library))
	}

	allLibraries, err := w.libraryService.ListLibraries(ctx, libraries.ListLibrariesOptions{})
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("processing libraries", logger.Data{"count": len(allLibraries)})

	for _, library := range allLibraries {
		if err := w.scanLibrary(ctx, job, library); err != nil {
			return errors.WithStack(err)
		}
	}

	log.Info("finished scan job")
	return nil
}

func (w *Worker) scanLibrary(ctx context.Context, job *models.Job, library *models.Library) error {
	log := logger.FromContext(ctx).Data(logger.Data{"library_id": library.ID})
	log.Info("processing library")

	type scanTarget struct {
		path string
		root string
	}
	targets := make([]scanTarget, 0)

	// Go through all the library paths to find all the archive files first, so
	// that the total is known before any real work starts and job progress can
	// be reported accurately.
	for _, libraryPath := range library.LibraryPaths {
		log := log.Data(logger.Data{"library_path_id": libraryPath.ID, "library_path": libraryPath.Filepath})
		log.Info("processing library path")
		err := filepath.WalkDir(libraryPath.Filepath, func(path string, info fs.DirEntry, err error) error {
			if err != nil {
				return errors.WithStack(err)
			}
			if info.IsDir() {
				// We don't do anything explicitly to directories.
				return nil
			}
			if !archive.IsArchiveExtension(path) {
				// We're only looking for certain files right now.
				return nil
			}
			if !archive.IsArchive(path) {
				// Files can carry any extension, so the contents are sniffed
				// against what the extension claims; mismatches are skipped.
				log.Warn("file contents don't match its archive extension", logger.Data{"path": path})
				return nil
			}

			targets = append(targets, scanTarget{path: path, root: libraryPath.Filepath})

			return nil
		})
		if err != nil {
			return errors.WithStack(err)
		}
	}

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if err := w.scanFile(ctx, target.path, target.root, library.ID); err != nil {
			return errors.WithStack(err)
		}

		progress := (i + 1) * 100 / len(targets)
		if progress != job.Progress {
			job.Progress = progress
			err := w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{
				Columns: []string{"progress"},
			})
			if err != nil {
				return errors.WithStack(err)
			}
		}
	}

	// TODO: remove volumes whose files no longer exist on disk.

	return nil
}

func (w *Worker) scanFile(ctx context.Context, path, rootPath string, libraryID int) error {
	log := logger.FromContext(ctx).Data(logger.Data{"path": path})
	log.Info("processing file")

	stats, err := os.Stat(path)
	if err != nil {
		return errors.WithStack(err)
	}
	size := stats.Size()

	// Check if this file already exists based on its filepath.
	existingVolume, err := w.seriesService.RetrieveVolume(ctx, series.RetrieveVolumeOptions{
		Filepath:  &path,
		LibraryID: &libraryID,
	})
	if err != nil && !errors.Is(err, errcodes.NotFound("Volume")) {
		return errors.WithStack(err)
	}
	if existingVolume != nil && existingVolume.FilesizeBytes == size {
		log.Info("volume already exists", logger.Data{"volume_id": existingVolume.ID})
		return nil
	}

	pageCount := archive.CountPages(ctx, path)
	coverMimeType := w.coverMimeType(ctx, path)

	if existingVolume != nil {
		// The file changed on disk. Refresh the stored metadata and drop any
		// extraction directory, since its pages no longer match the archive.
		log.Info("volume changed; updating", logger.Data{"volume_id": existingVolume.ID, "filesize": size})
		existingVolume.FilesizeBytes = size
		existingVolume.PageCount = pageCount
		existingVolume.CoverMimeType = coverMimeType

		err := w.seriesService.UpdateVolume(ctx, existingVolume, series.UpdateVolumeOptions{
			Columns: []string{"filesize_bytes", "page_count", "cover_mime_type"},
		})
		if err != nil {
			return errors.WithStack(err)
		}

		return errors.WithStack(w.pageCache.Purge(ctx, existingVolume.ID))
	}

	seriesName := seriesNameForPath(path, rootPath)
	volumeSeries, err := w.seriesService.FindOrCreateSeries(ctx, seriesName, libraryID)
	if err != nil {
		return errors.WithStack(err)
	}

	name := volumeNameForPath(path)
	log.Info("creating volume", logger.Data{"name": name, "series_id": volumeSeries.ID, "filesize": size})
	volume := &models.Volume{
		LibraryID:     libraryID,
		SeriesID:      volumeSeries.ID,
		Name:          name,
		Number:        extractVolumeNumber(name),
		Filepath:      path,
		Format:        formatsByExtension[filepath.Ext(path)],
		FilesizeBytes: size,
		PageCount:     pageCount,
		CoverMimeType: coverMimeType,
	}
	err = w.seriesService.CreateVolume(ctx, volume)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// coverMimeType returns the MIME type of the page that would be served as the
// volume's cover, or nil when the archive has no usable image.
func (w *Worker) coverMimeType(ctx context.Context, path string) *string {
	log := logger.FromContext(ctx)

	a, err := archive.Open(path)
	if err != nil {
		log.Err(err).Warn("can't open archive to find cover", logger.Data{"path": path})
		return nil
	}
	defer a.Close()

	entry := cover.SelectCover(a.Entries())
	if entry == nil {
		return nil
	}

	mime := archive.MimeTypeForImage(entry.Name)
	return &mime
}
