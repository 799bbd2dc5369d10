package archive

import (
	"io"
	"path"

	"github.com/nwaples/rardecode/v2"
	"github.com/pkg/errors"
)

func openRar(p string) (*Archive, error) {
	r, err := rardecode.OpenReader(p)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	entries := make([]Entry, 0)
	for {
		header, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if header.IsDir {
			continue
		}
		entries = append(entries, Entry{
			Name: path.Base(header.Name),
			Path: header.Name,
			Size: header.UnPackedSize,
			Open: openRarEntry(p, header.Name),
		})
	}

	// rar decoding is sequential, so entries reopen the archive and seek to
	// their header on demand instead of holding a shared handle.
	return &Archive{entries: entries}, nil
}

func openRarEntry(archivePath, entryPath string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		r, err := rardecode.OpenReader(archivePath)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		for {
			header, err := r.Next()
			if err != nil {
				r.Close()
				if errors.Is(err, io.EOF) {
					return nil, errors.Errorf("entry %q not found in %s", entryPath, archivePath)
				}
				return nil, errors.WithStack(err)
			}
			if header.Name == entryPath {
				return &rarEntryReader{Reader: r, closer: r}, nil
			}
		}
	}
}

// rarEntryReader reads the current rar entry and closes the whole archive
// when the caller is done with it.
type rarEntryReader struct {
	io.Reader
	closer io.Closer
}

func (r *rarEntryReader) Close() error {
	return r.closer.Close()
}
