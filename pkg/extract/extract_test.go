package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/komoribooks/komori/internal/testgen"
	"github.com/komoribooks/komori/pkg/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsFlattening(t *testing.T) {
	assert.False(t, NeedsFlattening(nil))
	assert.False(t, NeedsFlattening([]archive.Entry{
		{Path: "001.png"},
		{Path: "002.png"},
	}))

	// Directory entry enumerated first.
	assert.True(t, NeedsFlattening([]archive.Entry{
		{Path: "Chapter 1"},
		{Path: "Chapter 1/001.png"},
	}))

	// Forward-slash separators anywhere, even when the first entry carries an
	// extension (zip readers skip directory entries).
	assert.True(t, NeedsFlattening([]archive.Entry{
		{Path: "Comic Vol 1/001.jpg"},
		{Path: "Comic Vol 1/002.jpg"},
	}))

	// Backslash separators anywhere.
	assert.True(t, NeedsFlattening([]archive.Entry{
		{Path: "001.png"},
		{Path: `ch1\002.png`},
	}))
}

func TestExtract(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	cbzPath := testgen.GenerateCBZ(t, tmpDir, "volume.cbz", testgen.CBZOptions{
		Pages: []string{"001.png", "002.png"},
	})

	extractPath := filepath.Join(tmpDir, "extracted")
	Extract(ctx, cbzPath, extractPath)

	assert.True(t, testgen.FileExists(filepath.Join(extractPath, "001.png")))
	assert.True(t, testgen.FileExists(filepath.Join(extractPath, "002.png")))
}

func TestExtractIdempotent(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	cbzPath := testgen.GenerateCBZ(t, tmpDir, "volume.cbz", testgen.CBZOptions{
		Pages: []string{"001.png", "002.png"},
	})

	extractPath := filepath.Join(tmpDir, "extracted")
	Extract(ctx, cbzPath, extractPath)

	// A second call must not re-extract into an existing directory.
	removed := filepath.Join(extractPath, "002.png")
	require.NoError(t, os.Remove(removed))

	Extract(ctx, cbzPath, extractPath)
	assert.False(t, testgen.FileExists(removed))
}

func TestExtractFlattens(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	cbzPath := testgen.GenerateCBZ(t, tmpDir, "volume.cbz", testgen.CBZOptions{
		Pages: []string{`ch1\001.png`, `ch1\002.png`},
	})

	extractPath := filepath.Join(tmpDir, "extracted")
	Extract(ctx, cbzPath, extractPath)

	assert.True(t, testgen.FileExists(filepath.Join(extractPath, "001.png")))
	assert.True(t, testgen.FileExists(filepath.Join(extractPath, "002.png")))
	assert.False(t, testgen.FileExists(filepath.Join(extractPath, "ch1")))
}

func TestExtractFlattensForwardSlashLayout(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	cbzPath := testgen.GenerateCBZ(t, tmpDir, "volume.cbz", testgen.CBZOptions{
		Pages: []string{"Comic Vol 1/001.png", "Comic Vol 1/002.png"},
	})

	extractPath := filepath.Join(tmpDir, "extracted")
	Extract(ctx, cbzPath, extractPath)

	assert.True(t, testgen.FileExists(filepath.Join(extractPath, "001.png")))
	assert.True(t, testgen.FileExists(filepath.Join(extractPath, "002.png")))
	assert.False(t, testgen.FileExists(filepath.Join(extractPath, "Comic Vol 1")))
}

func TestExtractFlattenCollisions(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	cbzPath := testgen.GenerateCBZ(t, tmpDir, "volume.cbz", testgen.CBZOptions{
		Pages: []string{`a\001.png`, `b\001.png`},
	})

	extractPath := filepath.Join(tmpDir, "extracted")
	Extract(ctx, cbzPath, extractPath)

	assert.True(t, testgen.FileExists(filepath.Join(extractPath, "001.png")))
	assert.True(t, testgen.FileExists(filepath.Join(extractPath, "001_1.png")))
}

func TestExtractEmptyArchive(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	cbzPath := testgen.GenerateCBZ(t, tmpDir, "empty.cbz", testgen.CBZOptions{
		Pages: []string{},
	})

	extractPath := filepath.Join(tmpDir, "extracted")
	Extract(ctx, cbzPath, extractPath)

	// No directory is created for an archive with no files, so a later call
	// can retry.
	assert.False(t, testgen.FileExists(extractPath))
}

func TestExtractUnreadableArchive(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	extractPath := filepath.Join(tmpDir, "extracted")
	Extract(ctx, tmpDir+"/missing.cbz", extractPath)
	assert.False(t, testgen.FileExists(extractPath))

	fakePath := testgen.WriteFile(t, tmpDir, "fake.cbz", []byte("not a zip"))
	Extract(ctx, fakePath, extractPath)
	assert.False(t, testgen.FileExists(extractPath))
}

func TestExtractRejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	cbzPath := testgen.GenerateCBZ(t, tmpDir, "evil.cbz", testgen.CBZOptions{
		Pages: []string{"../evil.png", "001.png"},
	})

	extractPath := filepath.Join(tmpDir, "nested", "extracted")
	Extract(ctx, cbzPath, extractPath)

	// Nothing may be written outside the extraction root, and the aborted
	// extraction must not leave a directory behind.
	assert.False(t, testgen.FileExists(filepath.Join(tmpDir, "nested", "evil.png")))
	assert.False(t, testgen.FileExists(extractPath))
}

func TestUniqueFilepath(t *testing.T) {
	tmpDir := t.TempDir()

	existing := testgen.WriteFile(t, tmpDir, "001.png", []byte("a"))
	assert.Equal(t, filepath.Join(tmpDir, "001_1.png"), uniqueFilepath(existing))

	testgen.WriteFile(t, tmpDir, "001_1.png", []byte("b"))
	assert.Equal(t, filepath.Join(tmpDir, "001_2.png"), uniqueFilepath(existing))
}
