package tesseract

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownscaleWithinBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	got := downscale(img, 1000)
	assert.Same(t, image.Image(img), got)
}

func TestDownscaleDisabled(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4000, 3000))
	got := downscale(img, 0)
	assert.Same(t, image.Image(img), got)
}

func TestDownscaleLandscape(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4000, 2000))
	got := downscale(img, 1000)
	assert.Equal(t, 1000, got.Bounds().Dx())
	assert.Equal(t, 500, got.Bounds().Dy())
}

func TestDownscalePortrait(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1500, 3000))
	got := downscale(img, 600)
	assert.Equal(t, 300, got.Bounds().Dx())
	assert.Equal(t, 600, got.Bounds().Dy())
}

func TestRectToQuadClockwise(t *testing.T) {
	q := rectToQuad(image.Rect(10, 20, 110, 60))
	assert.Equal(t, [2]float64{10, 20}, q[0])
	assert.Equal(t, [2]float64{110, 20}, q[1])
	assert.Equal(t, [2]float64{110, 60}, q[2])
	assert.Equal(t, [2]float64{10, 60}, q[3])
}
