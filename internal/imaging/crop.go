package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

// CropResult contains the cropped image data
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropROI extracts box from img, optionally scaling it, and returns it as a
// base64 PNG. box is relative to the image origin and must lie inside it.
func CropROI(img image.Image, box geometry.Box, scale float64) (*CropResult, error) {
	bounds := img.Bounds()
	if box.Empty() {
		return nil, fmt.Errorf("invalid crop region %+v: width and height must be positive", box)
	}
	rect := box.Rect().Add(bounds.Min)
	if !rect.In(bounds) {
		return nil, fmt.Errorf("crop region %+v outside image bounds %dx%d", box, bounds.Dx(), bounds.Dy())
	}

	cropped := imaging.Crop(img, rect)
	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	encoded, err := EncodePNGBase64(cropped)
	if err != nil {
		return nil, err
	}
	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// EncodePNGBase64 encodes img as PNG and returns it base64 (standard alphabet).
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
