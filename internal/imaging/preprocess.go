package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// PreprocessOptions controls OCR preprocessing.
type PreprocessOptions struct {
	// BlurSigma is the Gaussian blur sigma applied before thresholding.
	// Zero or negative skips the blur.
	BlurSigma float64

	// Invert flips the binarized image, for light text on a dark background.
	Invert bool
}

// Preprocess binarizes img for OCR: grayscale, optional blur, a global Otsu
// threshold, and optional inversion. The output has the same size as img
// with its origin at (0, 0); img is not modified.
func Preprocess(img image.Image, opts PreprocessOptions) image.Image {
	gray := imaging.Grayscale(img)
	if opts.BlurSigma > 0 {
		gray = imaging.Blur(gray, opts.BlurSigma)
	}

	level := OtsuLevel(imaging.Histogram(gray))
	bin := segment.Threshold(gray, thresholdFor(level))
	if opts.Invert {
		return imaging.Invert(bin)
	}
	return bin
}

// OtsuLevel picks the gray level that maximizes between-class variance of a
// normalized luminance histogram. Pixels at or below the level form the dark
// class.
func OtsuLevel(hist [256]float64) uint8 {
	var total, sum float64
	for i, p := range hist {
		total += p
		sum += float64(i) * p
	}

	var wB, sumB, best float64
	level := 0
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF <= 1e-12 {
			break
		}
		sumB += float64(t) * hist[t]
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			level = t
		}
	}
	return uint8(level)
}

// thresholdFor converts an Otsu level to the bild threshold, which sends
// pixels >= threshold to white.
func thresholdFor(level uint8) uint8 {
	if level == 255 {
		return 255
	}
	return level + 1
}
