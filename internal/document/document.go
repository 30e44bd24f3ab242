// Package document holds the in-memory model of one photographed identity
// card: the decoded image, the normalized region layout used to cut fields
// out of it, and the OCR results gathered for those fields.
package document

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	dErrors "idintake/pkg/domain-errors"
)

// Image is a decoded document photo. It lives for a single attempt and is
// never persisted.
type Image struct {
	Image  image.Image
	Width  int
	Height int
	Format string
}

// Decode reads any supported raster format. Decoding is the only hard
// failure in the image half of the pipeline.
func Decode(raw []byte) (Image, error) {
	if len(raw) == 0 {
		return Image{}, dErrors.New(dErrors.CodeBadRequest, "image is empty")
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Image{}, dErrors.Wrap(err, dErrors.CodeUnprocessable, "could not decode image")
	}
	return FromImage(img, format), nil
}

// FromImage wraps an already decoded image.
func FromImage(img image.Image, format string) Image {
	b := img.Bounds()
	return Image{Image: img, Width: b.Dx(), Height: b.Dy(), Format: format}
}

func (i Image) String() string {
	return fmt.Sprintf("%s %dx%d", i.Format, i.Width, i.Height)
}
