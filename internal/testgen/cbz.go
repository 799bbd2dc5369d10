package testgen

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// GenerateCBZ creates a valid CBZ file at the specified path with the given
// options. Entry names are written exactly as given, so nested paths like
// "pages/001.png" produce nested archives.
func GenerateCBZ(t *testing.T, dir, filename string, opts CBZOptions) string {
	t.Helper()

	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create CBZ file: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	pages := opts.Pages
	if pages == nil {
		pages = []string{"000.png", "001.png", "002.png"}
	}
	imageFormat := opts.ImageFormat
	if imageFormat == "" {
		imageFormat = "png"
	}
	mimeType := "image/png"
	if imageFormat == "jpeg" || imageFormat == "jpg" {
		mimeType = "image/jpeg"
	}

	for _, name := range pages {
		imgData := GenerateImage(t, mimeType, opts.ImageWidth, opts.ImageHeight)
		if err := writeZipFile(zw, name, imgData); err != nil {
			t.Fatalf("failed to write page %s: %v", name, err)
		}
	}

	for name, data := range opts.ExtraFiles {
		if err := writeZipFile(zw, name, data); err != nil {
			t.Fatalf("failed to write extra file %s: %v", name, err)
		}
	}

	return path
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// GenerateImage encodes a solid color image of the given dimensions.
// Dimensions default to 100x100 when zero.
func GenerateImage(t *testing.T, mimeType string, width, height int) []byte {
	t.Helper()

	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 100
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	blue := color.RGBA{0, 100, 200, 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, blue)
		}
	}

	var buf bytes.Buffer
	switch mimeType {
	case "image/jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			t.Fatalf("failed to encode JPEG: %v", err)
		}
	default: // image/png
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("failed to encode PNG: %v", err)
		}
	}

	return buf.Bytes()
}
