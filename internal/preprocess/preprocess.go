// Package preprocess implements the image enhancement pipeline that runs
// before text recognition. All transforms are pure: the input image is never
// mutated and every call returns a freshly allocated buffer.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"

	"github.com/disintegration/imaging"
)

// Level is a named preprocessing intensity tier.
type Level string

const (
	// LevelNone returns a defensive copy of the input, untouched.
	LevelNone Level = "none"
	// LevelLight applies grayscale and a mild contrast boost.
	LevelLight Level = "light"
	// LevelStandard runs the full pipeline with balanced parameters.
	LevelStandard Level = "standard"
	// LevelAggressive runs the full pipeline with strong parameters plus
	// adaptive binarization. May introduce artifacts on clean scans.
	LevelAggressive Level = "aggressive"
)

// ParseLevel maps a config string onto a Level, defaulting to standard.
func ParseLevel(raw string) Level {
	switch Level(raw) {
	case LevelNone, LevelLight, LevelStandard, LevelAggressive:
		return Level(raw)
	}
	return LevelStandard
}

// Maximum image resolution for preprocessing (to control memory usage).
const (
	maxImageWidth  = 1920
	maxImageHeight = 1080
)

const (
	contrastFactorLight      = 1.2
	contrastFactorStandard   = 1.5
	contrastFactorAggressive = 2.0

	brightnessOffsetStandard   = 10
	brightnessOffsetAggressive = 20

	sharpenAmountStandard   = 1.5
	sharpenAmountAggressive = 2.5

	binarizeThresholdMargin = 20
	binarizeThresholdFloor  = 100
)

// Preprocess enhances img for OCR at the given intensity level. Any failure
// inside the pipeline is recovered and a copy of the original image is
// returned instead; preprocessing must never abort recognition.
func Preprocess(img image.Image, level Level) (out *image.NRGBA) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("preprocess: pipeline failed (%v), returning original image", r)
			out = imaging.Clone(img)
		}
	}()

	if level == LevelNone {
		return imaging.Clone(img)
	}

	resized := resizeIfNeeded(img)

	switch level {
	case LevelLight:
		out = adjustContrast(grayscale(resized), contrastFactorLight)
	case LevelStandard:
		out = sharpen(
			adjustBrightness(
				adjustContrast(grayscale(resized), contrastFactorStandard),
				brightnessOffsetStandard),
			sharpenAmountStandard)
	case LevelAggressive:
		out = binarize(
			sharpen(
				adjustBrightness(
					adjustContrast(grayscale(resized), contrastFactorAggressive),
					brightnessOffsetAggressive),
				sharpenAmountAggressive))
	default:
		panic(fmt.Sprintf("unknown preprocessing level %q", level))
	}
	return out
}

// resizeIfNeeded downscales img to fit within maxImageWidth x maxImageHeight,
// preserving aspect ratio. Images already inside the bound pass through
// unchanged; downscaling never upscales.
func resizeIfNeeded(img image.Image) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxImageWidth && height <= maxImageHeight {
		return img
	}

	scale := math.Min(
		float64(maxImageWidth)/float64(width),
		float64(maxImageHeight)/float64(height),
	)
	newWidth := int(math.Round(float64(width) * scale))
	newHeight := int(math.Round(float64(height) * scale))

	return imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
}

// grayscale desaturates the image; output channels satisfy R = G = B.
func grayscale(img image.Image) *image.NRGBA {
	return imaging.Grayscale(img)
}

// adjustContrast scales each channel: out = clamp(in * factor).
func adjustContrast(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampU8(float64(c.R) * factor),
			G: clampU8(float64(c.G) * factor),
			B: clampU8(float64(c.B) * factor),
			A: c.A,
		}
	})
}

// adjustBrightness shifts each channel: out = clamp(in + offset).
func adjustBrightness(img image.Image, offset float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampU8(float64(c.R) + offset),
			G: clampU8(float64(c.G) + offset),
			B: clampU8(float64(c.B) + offset),
			A: c.A,
		}
	})
}

// sharpen applies a linear mid-tone contrast boost approximating an unsharp
// mask: out = clamp(in * (1 + amount) - amount * 128).
func sharpen(img image.Image, amount float64) *image.NRGBA {
	factor := 1 + amount
	bias := amount * 128
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampU8(float64(c.R)*factor - bias),
			G: clampU8(float64(c.G)*factor - bias),
			B: clampU8(float64(c.B)*factor - bias),
			A: c.A,
		}
	})
}

// binarize reduces the image to pure black and white using a global
// threshold derived from the mean brightness: threshold = max(mean - 20, 100).
func binarize(img *image.NRGBA) *image.NRGBA {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return imaging.Clone(img)
	}

	var total int64
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			p := row[x*4 : x*4+3]
			total += int64((int(p[0]) + int(p[1]) + int(p[2])) / 3)
		}
	}
	mean := int(total / int64(width*height))

	threshold := mean - binarizeThresholdMargin
	if threshold < binarizeThresholdFloor {
		threshold = binarizeThresholdFloor
	}

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		brightness := (int(c.R) + int(c.G) + int(c.B)) / 3
		if brightness > threshold {
			return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
		}
		return color.NRGBA{R: 0, G: 0, B: 0, A: c.A}
	})
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
