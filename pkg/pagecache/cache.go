package pagecache

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/komoribooks/komori/pkg/archive"
	"github.com/komoribooks/komori/pkg/extract"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// Cache owns the extraction directory tree under dir. Directories are created
// lazily on the first page read of a volume, reused across reads, and removed
// only through Purge. No other component writes into them.
type Cache struct {
	dir string

	// Per-volume mutexes so concurrent readers of the same volume can't race
	// to extract into the same directory, while unrelated volumes extract in
	// parallel. Purge takes the same lock, so it never deletes underneath an
	// in-flight extraction.
	locks sync.Map // map[int]*sync.Mutex

	// extractFn is swapped out in tests.
	extractFn func(ctx context.Context, archivePath, extractPath string)
}

func New(dir string) *Cache {
	return &Cache{
		dir:       dir,
		extractFn: extract.Extract,
	}
}

// VolumeDir maps a volume ID to its extraction directory. Pure function of
// the identifier, not of the archive contents.
func (c *Cache) VolumeDir(volumeID int) string {
	return filepath.Join(c.dir, "volumes", strconv.Itoa(volumeID))
}

// lock acquires the volume's mutex. Purge drops mutexes from the table so it
// doesn't grow with every volume ever read, so after locking we have to check
// the entry is still current and retry if it was dropped underneath us.
func (c *Cache) lock(volumeID int) *sync.Mutex {
	for {
		entry, _ := c.locks.LoadOrStore(volumeID, &sync.Mutex{})
		mu := entry.(*sync.Mutex)
		mu.Lock()
		if current, ok := c.locks.Load(volumeID); ok && current == entry {
			return mu
		}
		mu.Unlock()
	}
}

// EnsureExtracted returns the volume's extraction directory, extracting the
// archive first if the directory doesn't exist yet. At most one extraction
// runs per volume; concurrent callers block until it finishes and then all
// observe the same completed directory.
func (c *Cache) EnsureExtracted(ctx context.Context, volumeID int, archivePath string) (string, error) {
	mu := c.lock(volumeID)
	defer mu.Unlock()

	dir := c.VolumeDir(volumeID)
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}

	c.extractFn(ctx, archivePath, dir)

	if _, err := os.Stat(dir); err != nil {
		// Extraction failed soft (missing/corrupt archive); surface it to the
		// caller since there is nothing to serve.
		return "", errors.Errorf("extraction produced no directory for volume %d", volumeID)
	}

	return dir, nil
}

// PagePath returns the path and MIME type of a 0-indexed page inside a
// volume's extraction directory. Pages are the directory's image files sorted
// by name.
func (c *Cache) PagePath(volumeID, page int) (string, string, error) {
	dir := c.VolumeDir(volumeID)

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", errors.WithStack(err)
	}

	pages := make([]string, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() || !archive.IsImageFile(entry.Name()) {
			continue
		}
		pages = append(pages, entry.Name())
	}
	sort.Strings(pages)

	if page < 0 || page >= len(pages) {
		return "", "", errors.Errorf("page %d out of range (0-%d)", page, len(pages)-1)
	}

	name := pages[page]
	return filepath.Join(dir, name), archive.MimeTypeForImage(name), nil
}

// Purge removes the extraction directories for the given volumes. Deletion is
// synchronous and idempotent: a missing directory is not an error, and the
// directories are gone before Purge returns.
func (c *Cache) Purge(ctx context.Context, volumeIDs ...int) error {
	log := logger.FromContext(ctx)

	for _, volumeID := range volumeIDs {
		mu := c.lock(volumeID)
		err := os.RemoveAll(c.VolumeDir(volumeID))
		if err == nil {
			// The volume is gone; drop its mutex so the table stays bounded on
			// long-lived servers.
			c.locks.Delete(volumeID)
		}
		mu.Unlock()
		if err != nil {
			return errors.WithStack(err)
		}
		log.Debug("purged extraction directory", logger.Data{"volume_id": volumeID})
	}

	return nil
}
