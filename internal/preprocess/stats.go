package preprocess

import "image"

// Stats summarizes the brightness distribution of an image. Used for
// debugging preprocessing behavior on difficult captures.
type Stats struct {
	Width          int
	Height         int
	MeanBrightness float64
	MinBrightness  int
	MaxBrightness  int
	ContrastRange  int
}

// ImageStats samples every 10th pixel and reports brightness statistics.
func ImageStats(img image.Image) Stats {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var total int64
	var samples int64
	minBrightness := 255
	maxBrightness := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y += 10 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 10 {
			r, g, b, _ := img.At(x, y).RGBA()
			brightness := int((r>>8 + g>>8 + b>>8) / 3)

			total += int64(brightness)
			samples++
			if brightness < minBrightness {
				minBrightness = brightness
			}
			if brightness > maxBrightness {
				maxBrightness = brightness
			}
		}
	}

	mean := 0.0
	if samples > 0 {
		mean = float64(total) / float64(samples)
	}

	return Stats{
		Width:          width,
		Height:         height,
		MeanBrightness: mean,
		MinBrightness:  minBrightness,
		MaxBrightness:  maxBrightness,
		ContrastRange:  maxBrightness - minBrightness,
	}
}
