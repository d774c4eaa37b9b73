package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"github.com/golang/freetype"
	"golang.org/x/image/font/gofont/goregular"
)

// gradientImage builds a deterministic image spanning the full brightness
// range: a pure gray ramp in the top half, a colored ramp in the bottom.
func gradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(x * 255 / (width - 1))
			c := color.NRGBA{R: v, G: v, B: v, A: 255}
			if y >= height/2 {
				c = color.NRGBA{R: v, G: 255 - v, B: v / 2, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func uniformImage(width, height int, v uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.NRGBA{R: v, G: v, B: v, A: 255}}, image.Point{}, draw.Src)
	return img
}

// textImage renders dark text onto a white background, approximating a
// captured note page.
func textImage(t *testing.T, text string) *image.NRGBA {
	t.Helper()

	img := uniformImage(240, 80, 255)

	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		t.Fatalf("parse font: %v", err)
	}

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(f)
	c.SetFontSize(48)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.Black)

	if _, err := c.DrawString(text, freetype.Pt(16, 60)); err != nil {
		t.Fatalf("draw string: %v", err)
	}
	return img
}

func TestNoneReturnsDefensiveCopy(t *testing.T) {
	src := gradientImage(64, 48)
	out := Preprocess(src, LevelNone)

	if !bytes.Equal(out.Pix, src.Pix) {
		t.Fatalf("NONE level must be pixel-identical to the input")
	}

	out.Pix[0] ^= 0xFF
	if out.Pix[0] == src.Pix[0] {
		t.Fatalf("NONE level must return a copy, not the input's storage")
	}
}

func TestOutputWithinBounds(t *testing.T) {
	src := gradientImage(4001, 2000)

	for _, level := range []Level{LevelLight, LevelStandard, LevelAggressive} {
		out := Preprocess(src, level)
		b := out.Bounds()
		if b.Dx() > 1920 || b.Dy() > 1080 {
			t.Fatalf("level %s: output %dx%d exceeds 1920x1080", level, b.Dx(), b.Dy())
		}

		wantHeight := math.Round(2000 * float64(b.Dx()) / 4001)
		if math.Abs(float64(b.Dy())-wantHeight) > 1 {
			t.Fatalf("level %s: aspect ratio not preserved, got %dx%d", level, b.Dx(), b.Dy())
		}
	}
}

func TestDownscaleNeverUpscales(t *testing.T) {
	src := gradientImage(100, 50)
	out := Preprocess(src, LevelLight)
	if b := out.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("small image was resized to %dx%d", b.Dx(), b.Dy())
	}
}

func TestAggressiveOutputIsBinary(t *testing.T) {
	out := Preprocess(gradientImage(120, 90), LevelAggressive)

	var black, white int
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := out.NRGBAAt(x, y)
			if c.R != c.G || c.G != c.B {
				t.Fatalf("pixel (%d,%d) is not gray: %+v", x, y, c)
			}
			switch c.R {
			case 0:
				black++
			case 255:
				white++
			default:
				t.Fatalf("pixel (%d,%d) is neither pure black nor pure white: %+v", x, y, c)
			}
		}
	}
	if black == 0 || white == 0 {
		t.Fatalf("expected both black and white pixels, got black=%d white=%d", black, white)
	}
}

func TestDeterministicOutput(t *testing.T) {
	src := gradientImage(200, 150)
	for _, level := range []Level{LevelNone, LevelLight, LevelStandard, LevelAggressive} {
		first := Preprocess(src, level)
		second := Preprocess(src, level)
		if !bytes.Equal(first.Pix, second.Pix) {
			t.Fatalf("level %s: repeated runs differ", level)
		}
	}
}

func TestLightContrastFormula(t *testing.T) {
	// A uniform mid-gray desaturates to itself, so LIGHT reduces to the
	// contrast stage alone: 100 * 1.2 = 120.
	out := Preprocess(uniformImage(10, 10, 100), LevelLight)
	c := out.NRGBAAt(5, 5)
	if c.R != 120 || c.G != 120 || c.B != 120 {
		t.Fatalf("expected 120 per channel, got %+v", c)
	}
	if c.A != 255 {
		t.Fatalf("alpha must be untouched, got %d", c.A)
	}
}

func TestRenderedTextSurvivesBinarization(t *testing.T) {
	out := Preprocess(textImage(t, "OCR"), LevelAggressive)

	var black int
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if out.NRGBAAt(x, y).R == 0 {
				black++
			}
		}
	}
	if black == 0 {
		t.Fatalf("text strokes were lost during binarization")
	}
	if black > b.Dx()*b.Dy()/2 {
		t.Fatalf("background was not kept white: %d of %d pixels black", black, b.Dx()*b.Dy())
	}
}

func TestUnknownLevelFallsBackToCopy(t *testing.T) {
	src := gradientImage(32, 32)
	out := Preprocess(src, Level("bogus"))
	if !bytes.Equal(out.Pix, src.Pix) {
		t.Fatalf("pipeline failure must return a copy of the original image")
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("aggressive"); got != LevelAggressive {
		t.Fatalf("expected aggressive, got %s", got)
	}
	if got := ParseLevel(""); got != LevelStandard {
		t.Fatalf("expected standard fallback, got %s", got)
	}
}

func TestImageStats(t *testing.T) {
	stats := ImageStats(uniformImage(100, 100, 200))
	if stats.MeanBrightness != 200 {
		t.Fatalf("expected mean 200, got %f", stats.MeanBrightness)
	}
	if stats.ContrastRange != 0 {
		t.Fatalf("uniform image must have zero contrast range, got %d", stats.ContrastRange)
	}
	if stats.Width != 100 || stats.Height != 100 {
		t.Fatalf("unexpected dimensions %dx%d", stats.Width, stats.Height)
	}
}
