package extract

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/komoribooks/komori/pkg/archive"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// maxEntrySize caps a single decompressed entry (1 GB) to bound the damage a
// decompression bomb can do to the cache volume.
const maxEntrySize = 1024 * 1024 * 1024

// NeedsFlattening reports whether an archive's contents are nested under a
// directory prefix instead of sitting at the root: the first enumerated entry
// has no file extension, or any entry path contains a separator (forward
// slash per the zip convention, backslash from Windows-built archives).
// Downstream page ordering depends on files sitting directly under the
// extraction root, so flattened layout is corrected after extraction.
func NeedsFlattening(entries []archive.Entry) bool {
	if len(entries) == 0 {
		return false
	}
	if filepath.Ext(entries[0].Path) == "" {
		return true
	}
	for _, entry := range entries {
		if strings.ContainsAny(entry.Path, `/\`) {
			return true
		}
	}
	return false
}

// Extract unpacks the archive at archivePath into extractPath, flattening
// nested layouts afterwards. All failure modes are soft: invalid archives,
// already-present extraction directories, and empty archives log and return.
// A corrupt entry is skipped rather than aborting the remaining entries.
func Extract(ctx context.Context, archivePath, extractPath string) {
	log := logger.FromContext(ctx).Data(logger.Data{"path": archivePath, "extract_path": extractPath})

	if !archive.IsArchive(archivePath) {
		log.Error("extract: not a readable archive")
		return
	}

	if _, err := os.Stat(extractPath); err == nil {
		// Extraction is cached by directory presence.
		log.Debug("extract: directory already exists; skipping")
		return
	}

	a, err := archive.Open(archivePath)
	if err != nil {
		log.Err(err).Error("extract: open error")
		return
	}
	defer a.Close()

	entries := a.Entries()
	needsFlattening := NeedsFlattening(entries)
	if len(entries) == 0 && !needsFlattening {
		log.Debug("extract: archive has no files; skipping")
		return
	}

	start := time.Now()
	if err := extractAll(entries, extractPath); err != nil {
		// A partial directory would read as a completed extraction, so remove
		// it and let a later request retry.
		os.RemoveAll(extractPath)
		log.Err(err).Error("extract: extraction error")
		return
	}
	log.Debug("extract: finished", logger.Data{"duration_ms": time.Since(start).Milliseconds(), "entry_count": len(entries)})

	if needsFlattening {
		start = time.Now()
		if err := flatten(extractPath); err != nil {
			log.Err(err).Error("extract: flatten error")
			return
		}
		log.Info("extract: flattened nested archive layout", logger.Data{"duration_ms": time.Since(start).Milliseconds()})
	}
}

func extractAll(entries []archive.Entry, extractPath string) error {
	if err := os.MkdirAll(extractPath, 0755); err != nil {
		return errors.WithStack(err)
	}

	root, err := filepath.Abs(extractPath)
	if err != nil {
		return errors.WithStack(err)
	}

	for _, entry := range entries {
		target, err := safeTarget(root, entry.Path)
		if err != nil {
			// Path escapes the extraction root; never write it.
			return errors.WithStack(err)
		}
		if err := extractEntry(entry, target); err != nil {
			// Skip the corrupt entry, keep the rest of the archive.
			continue
		}
	}

	return nil
}

// safeTarget joins an in-archive path onto root, rejecting paths that would
// escape the extraction directory.
func safeTarget(root, entryPath string) (string, error) {
	cleaned := filepath.FromSlash(strings.ReplaceAll(entryPath, `\`, "/"))
	target := filepath.Join(root, cleaned)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", errors.Errorf("entry path %q escapes extraction root", entryPath)
	}
	return target, nil
}

func extractEntry(entry archive.Entry, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.WithStack(err)
	}

	r, err := entry.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer r.Close()

	out, err := os.Create(target)
	if err != nil {
		return errors.WithStack(err)
	}
	defer out.Close()

	_, err = io.Copy(out, io.LimitReader(r, maxEntrySize))
	if err != nil {
		os.Remove(target)
		return errors.WithStack(err)
	}

	return nil
}
