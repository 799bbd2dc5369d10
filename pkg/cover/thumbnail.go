package cover

import (
	"bytes"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ThumbnailSize is the target for the longer dimension of generated
// thumbnails.
const ThumbnailSize = 320

const thumbnailJPEGQuality = 85

// Thumbnail decodes image data, scales it so the longer dimension is
// ThumbnailSize (never upscaling), and re-encodes it as JPEG.
func Thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	longer := width
	if height > width {
		longer = height
	}

	if longer > ThumbnailSize {
		ratio := float64(ThumbnailSize) / float64(longer)
		newWidth := int(float64(width) * ratio)
		newHeight := int(float64(height) * ratio)
		if newWidth < 1 {
			newWidth = 1
		}
		if newHeight < 1 {
			newHeight = 1
		}

		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbnailJPEGQuality})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return buf.Bytes(), nil
}
