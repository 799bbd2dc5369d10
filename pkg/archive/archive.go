package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/robinjoseph08/golib/logger"
)

// formatMimeTypes maps the recognized archive extensions to the mime types we
// expect their contents to sniff as. Files can carry any extension, so both
// checks have to pass before we treat a path as an archive.
var formatMimeTypes = map[string]map[string]struct{}{
	".cbz": {"application/zip": {}},
	".zip": {"application/zip": {}},
	".cbr": {"application/x-rar-compressed": {}, "application/vnd.rar": {}},
	".rar": {"application/x-rar-compressed": {}, "application/vnd.rar": {}},
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// Entry is a logical file inside an archive. Path is the full in-archive
// path; the underlying container gives no ordering guarantee, so callers that
// need "first image" semantics sort by Path.
type Entry struct {
	Name string
	Path string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Archive is an opened archive file. Entries stay valid until Close.
type Archive struct {
	entries []Entry
	closer  io.Closer
}

func (a *Archive) Entries() []Entry {
	return a.entries
}

func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// IsImageFile reports whether the name classifies as a page image. This is
// the single classification rule shared by page counting, cover selection,
// and page serving.
func IsImageFile(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsArchiveExtension reports whether the name carries a recognized archive
// extension, without touching the file. Callers that walk large trees use
// this as a cheap pre-filter before the content sniff in IsArchive.
func IsArchiveExtension(name string) bool {
	_, ok := formatMimeTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsArchive reports whether path exists and passes the archive format sniff:
// a recognized extension backed by the matching content magic.
func IsArchive(path string) bool {
	expected, ok := formatMimeTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return false
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	_, ok = expected[mtype.String()]
	return ok
}

// Open opens an archive read-only and enumerates its entries. Directories are
// skipped. The caller must Close the returned Archive.
func Open(path string) (*Archive, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbr", ".rar":
		return openRar(path)
	default:
		return openZip(path)
	}
}

// CountPages returns the number of image entries in the archive at path. Any
// failure degrades to 0 with an error log so a single unreadable archive
// can't abort a library-wide scan.
func CountPages(ctx context.Context, path string) int {
	log := logger.FromContext(ctx).Data(logger.Data{"path": path})

	if !IsArchive(path) {
		log.Error("count pages: not a readable archive")
		return 0
	}

	a, err := Open(path)
	if err != nil {
		log.Err(err).Error("count pages: open error")
		return 0
	}
	defer a.Close()

	count := 0
	for _, entry := range a.entries {
		if IsImageFile(entry.Path) {
			count++
		}
	}
	return count
}

// ImageEntries filters entries down to page images and sorts them by full
// in-archive path ascending.
func ImageEntries(entries []Entry) []Entry {
	images := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if IsImageFile(entry.Path) {
			images = append(images, entry)
		}
	}
	sort.Slice(images, func(i, j int) bool {
		return images[i].Path < images[j].Path
	})
	return images
}

// MimeTypeForImage returns the MIME type for an image file name based on its
// extension.
func MimeTypeForImage(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
