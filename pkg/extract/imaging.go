package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"smartaset/pkg/domain"
)

// JPEGQuality matches the 0.8 quality used for every still sent to the model.
const JPEGQuality = 80

// toJPEG decodes a raster produced by an external tool and re-encodes it as JPEG.
func toJPEG(raster []byte) (domain.ImagePart, error) {
	img, _, err := image.Decode(bytes.NewReader(raster))
	if err != nil {
		return domain.ImagePart{}, fmt.Errorf("decode raster: %w", err)
	}
	return encodeJPEG(img)
}

func encodeJPEG(img image.Image) (domain.ImagePart, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return domain.ImagePart{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return domain.ImagePart{MimeType: "image/jpeg", Data: buf.Bytes()}, nil
}
