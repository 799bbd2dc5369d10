package cover

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/komoribooks/komori/pkg/archive"
	"github.com/robinjoseph08/golib/logger"
)

// maxImageSize is the maximum size for a single cover image (100 MB). This
// prevents decompression bombs from consuming excessive memory.
const maxImageSize = 100 * 1024 * 1024

// SelectCover picks the representative entry for an archive, or returns nil
// when the archive holds no usable image. Selection order: an entry named
// "folder" (extension stripped, case-insensitive) anywhere in the archive,
// else the first image entry by ascending in-archive path. Pure function so
// the rule is testable without real archive files.
func SelectCover(entries []archive.Entry) *archive.Entry {
	for i, entry := range entries {
		if !archive.IsImageFile(entry.Name) {
			continue
		}
		base := strings.TrimSuffix(entry.Name, path.Ext(entry.Name))
		if strings.EqualFold(base, "folder") {
			return &entries[i]
		}
	}

	images := archive.ImageEntries(entries)
	if len(images) == 0 {
		return nil
	}
	return &images[0]
}

// Get returns the cover image bytes for the archive at path, downscaled to a
// thumbnail when requested. Every failure degrades to an empty result with a
// log entry; a single unreadable archive must not abort a library-wide scan.
func Get(ctx context.Context, archivePath string, thumbnail bool) []byte {
	log := logger.FromContext(ctx).Data(logger.Data{"path": archivePath})

	if archivePath == "" || !archive.IsArchive(archivePath) {
		log.Error("get cover: not a readable archive")
		return nil
	}

	a, err := archive.Open(archivePath)
	if err != nil {
		log.Err(err).Error("get cover: open error")
		return nil
	}
	defer a.Close()

	entry := SelectCover(a.Entries())
	if entry == nil {
		log.Debug("get cover: archive has no image entries")
		return nil
	}

	r, err := entry.Open()
	if err != nil {
		log.Err(err).Error("get cover: entry open error")
		return nil
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxImageSize))
	if err != nil {
		log.Err(err).Error("get cover: entry read error")
		return nil
	}

	if !thumbnail {
		return data
	}

	thumb, err := Thumbnail(data)
	if err != nil {
		// Corrupt image data; return the full original bytes rather than
		// failing the whole call.
		log.Err(err).Error("get cover: thumbnail error; returning original")
		return data
	}
	return thumb
}
