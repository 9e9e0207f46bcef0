package utils

import (
	"bytes"
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// ResizeLogo decodes any supported image and re-encodes it as a PNG no wider
// than maxWidth, preserving aspect ratio.
func ResizeLogo(data []byte, maxWidth int) ([]byte, error) {
	if maxWidth <= 0 {
		return nil, errors.New("maxWidth must be positive")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
