package worker

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	// "v12", "vol. 3", "Volume 04", "#7"
	volumeMarkerRE = regexp.MustCompile(`(?i)(?:\bv(?:ol(?:ume)?)?\.?\s*|#)(\d+(?:\.\d+)?)`)
	// trailing number, e.g. "One Piece 103"
	trailingNumberRE = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*$`)
)

// volumeNameForPath returns the display name of a volume, which is its
// filename without the extension.
func volumeNameForPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// seriesNameForPath derives the series name from the directory containing the
// archive. Archives sitting directly in the library path root get their own
// single-volume series named after the file.
func seriesNameForPath(path, rootPath string) string {
	dir := filepath.Dir(path)
	if filepath.Clean(dir) == filepath.Clean(rootPath) {
		return volumeNameForPath(path)
	}
	return filepath.Base(dir)
}

// extractVolumeNumber parses a volume number out of a volume name. Explicit
// markers like "v12" or "vol. 3" win over a bare trailing number. Returns nil
// when the name has no parseable number.
func extractVolumeNumber(name string) *float64 {
	for _, re := range []*regexp.Regexp{volumeMarkerRE, trailingNumberRE} {
		matches := re.FindStringSubmatch(name)
		if len(matches) < 2 {
			continue
		}
		n, err := strconv.ParseFloat(matches[1], 64)
		if err != nil {
			continue
		}
		return &n
	}
	return nil
}
