package archive

import (
	"archive/zip"
	"os"
	"path"

	"github.com/pkg/errors"
)

func openZip(p string) (*Archive, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	stats, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.WithStack(err)
	}

	zipReader, err := zip.NewReader(f, stats.Size())
	if err != nil {
		f.Close()
		return nil, errors.WithStack(err)
	}

	entries := make([]Entry, 0, len(zipReader.File))
	for _, file := range zipReader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, Entry{
			Name: path.Base(file.Name),
			Path: file.Name,
			Size: int64(file.UncompressedSize64),
			Open: file.Open,
		})
	}

	return &Archive{entries: entries, closer: f}, nil
}
