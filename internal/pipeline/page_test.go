package pipeline

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge/ocrworker/internal/domain/model"
	"github.com/pageforge/ocrworker/internal/engine"
)

type stubEngine struct {
	calls   int
	results [][]engine.Region
	errs    []error
}

func (s *stubEngine) Name() string                     { return "stub" }
func (s *stubEngine) Version() string                  { return "0.0.0" }
func (s *stubEngine) Warmup(ctx context.Context) error { return nil }
func (s *stubEngine) Close() error                     { return nil }

func (s *stubEngine) DetectAndRecognize(ctx context.Context, img image.Image, opts engine.Options) ([]engine.Region, error) {
	i := s.calls
	s.calls++
	var res []engine.Region
	var err error
	if i < len(s.results) {
		res = s.results[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return res, err
}

func box(x, y, w, h float64) model.BBox {
	return model.BBox{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
}

func testImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 100, 100))
}

func TestProcessPageReadingOrder(t *testing.T) {
	eng := &stubEngine{results: [][]engine.Region{{
		{Text: "Next", Confidence: 0.9, Box: box(0, 40, 40, 10)},
		{Text: "World", Confidence: 0.95, Box: box(60, 12, 50, 10)},
		{Text: "Hello", Confidence: 0.92, Box: box(0, 10, 50, 10)},
	}}}

	res, err := ProcessPage(context.Background(), eng, testImage(), 1, PageOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Hello World\nNext", res.FullText)
	require.Len(t, res.TextBlocks, 3)
	assert.Equal(t, "Hello", res.TextBlocks[0].Text)
	assert.Equal(t, "World", res.TextBlocks[1].Text)
	assert.Equal(t, "Next", res.TextBlocks[2].Text)
	assert.Equal(t, 1, res.PageNumber)
	assert.Nil(t, res.RawRegions)
}

func TestProcessPageConfidenceFloor(t *testing.T) {
	eng := &stubEngine{results: [][]engine.Region{{
		{Text: "keep", Confidence: 0.8, Box: box(0, 10, 40, 10)},
		{Text: "drop", Confidence: 0.3, Box: box(50, 10, 40, 10)},
	}}}

	res, err := ProcessPage(context.Background(), eng, testImage(), 2, PageOptions{ConfidenceFloor: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "keep", res.FullText)
	require.Len(t, res.TextBlocks, 1)
}

func TestProcessPageRetriesEngineErrors(t *testing.T) {
	eng := &stubEngine{
		errs: []error{
			&model.EngineError{Err: errors.New("transient")},
			&model.EngineError{Err: errors.New("transient")},
			nil,
		},
		results: [][]engine.Region{nil, nil, {
			{Text: "ok", Confidence: 1, Box: box(0, 0, 10, 10)},
		}},
	}

	res, err := ProcessPage(context.Background(), eng, testImage(), 1, PageOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, eng.calls)
	assert.Equal(t, "ok", res.FullText)
}

func TestProcessPageExhaustedRetries(t *testing.T) {
	engineErr := &model.EngineError{Err: errors.New("model crashed")}
	eng := &stubEngine{errs: []error{engineErr, engineErr, engineErr, engineErr}}

	_, err := ProcessPage(context.Background(), eng, testImage(), 4, PageOptions{})
	require.Error(t, err)
	assert.True(t, model.IsPageScoped(err))
	assert.Equal(t, 3, eng.calls)
}

func TestProcessPageNonEngineErrorNotRetried(t *testing.T) {
	eng := &stubEngine{errs: []error{errors.New("broken image")}}

	_, err := ProcessPage(context.Background(), eng, testImage(), 1, PageOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, eng.calls)
}

func TestProcessPageEmptyPage(t *testing.T) {
	eng := &stubEngine{results: [][]engine.Region{{}}}

	res, err := ProcessPage(context.Background(), eng, testImage(), 1, PageOptions{})
	require.NoError(t, err)
	assert.Equal(t, "", res.FullText)
	assert.Empty(t, res.TextBlocks)
}

func TestProcessPageVerboseCarriesRawRegions(t *testing.T) {
	eng := &stubEngine{results: [][]engine.Region{{
		{Text: "low", Confidence: 0.1, Box: box(0, 0, 10, 10)},
	}}}

	res, err := ProcessPage(context.Background(), eng, testImage(), 1, PageOptions{
		ConfidenceFloor: 0.5,
		IncludeRaw:      true,
	})
	require.NoError(t, err)
	assert.Empty(t, res.TextBlocks)
	assert.JSONEq(t, `[{"text":"low","confidence":0.1,"bounding_box":[[0,0],[10,0],[10,10],[0,10]]}]`, string(res.RawRegions))
}

func TestOrderRegionsBaselineWobble(t *testing.T) {
	regions := []engine.Region{
		{Text: "b", Box: box(50, 13, 30, 10)},
		{Text: "a", Box: box(0, 10, 30, 10)},
		{Text: "c", Box: box(90, 11, 30, 10)},
	}
	bands := orderRegions(regions)
	require.Len(t, bands, 1)
	assert.Equal(t, "a", bands[0][0].Text)
	assert.Equal(t, "b", bands[0][1].Text)
	assert.Equal(t, "c", bands[0][2].Text)
}

func TestOrderRegionsBandBoundary(t *testing.T) {
	// Median height 10, tolerance 5. Centers must differ by strictly less
	// than the tolerance to share a band.
	sameBand := orderRegions([]engine.Region{
		{Text: "a", Box: box(0, 10, 30, 10)},
		{Text: "b", Box: box(50, 14, 30, 10)},
	})
	require.Len(t, sameBand, 1)

	// Centers exactly half the median height apart split into two bands.
	split := orderRegions([]engine.Region{
		{Text: "a", Box: box(0, 10, 30, 10)},
		{Text: "b", Box: box(50, 15, 30, 10)},
	})
	require.Len(t, split, 2)
	assert.Equal(t, "a", split[0][0].Text)
	assert.Equal(t, "b", split[1][0].Text)
}
