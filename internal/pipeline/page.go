// Package pipeline turns a rendered page image into a structured page result:
// recognition, confidence filtering, and reading-order assembly.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/pageforge/ocrworker/internal/domain/model"
	"github.com/pageforge/ocrworker/internal/engine"
)

const defaultEngineRetries = 2

// PageOptions tune a single page run.
type PageOptions struct {
	Engine engine.Options
	// ConfidenceFloor discards recognized regions scoring below it after
	// recognition. Zero keeps everything.
	ConfidenceFloor float64
	// EngineRetries is how many additional recognition attempts a page gets
	// after an engine failure. Negative disables retries; zero uses the
	// default.
	EngineRetries int
	// IncludeRaw carries the unprocessed engine regions in the result for
	// the verbose output format.
	IncludeRaw bool
}

type rawRegion struct {
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Box        model.BBox `json:"bounding_box"`
}

// ProcessPage recognizes img and assembles the regions into reading order.
// Engine failures are retried a small fixed number of times; a page that
// still fails comes back as a page-scoped error.
func ProcessPage(ctx context.Context, eng engine.Engine, img image.Image, pageNum int, opts PageOptions) (model.PageResult, error) {
	retries := opts.EngineRetries
	if retries == 0 {
		retries = defaultEngineRetries
	}
	if retries < 0 {
		retries = 0
	}

	var regions []engine.Region
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		regions, err = eng.DetectAndRecognize(ctx, img, opts.Engine)
		if err == nil {
			break
		}
		var engErr *model.EngineError
		if !errors.As(err, &engErr) || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return model.PageResult{}, fmt.Errorf("page %d: %w", pageNum, err)
	}

	result := model.PageResult{PageNumber: pageNum}
	if opts.IncludeRaw {
		raws := make([]rawRegion, len(regions))
		for i, r := range regions {
			raws[i] = rawRegion{Text: r.Text, Confidence: r.Confidence, Box: r.Box}
		}
		raw, err := json.Marshal(raws)
		if err != nil {
			return model.PageResult{}, fmt.Errorf("page %d: marshal raw regions: %w", pageNum, err)
		}
		result.RawRegions = raw
	}

	kept := regions[:0:0]
	for _, r := range regions {
		if r.Confidence >= opts.ConfidenceFloor {
			kept = append(kept, r)
		}
	}

	ordered := orderRegions(kept)
	lines := make([]string, 0, len(ordered))
	for _, band := range ordered {
		words := make([]string, 0, len(band))
		for _, r := range band {
			result.TextBlocks = append(result.TextBlocks, model.TextBlock{
				Text:       r.Text,
				Confidence: r.Confidence,
				BBox:       r.Box,
			})
			words = append(words, r.Text)
		}
		lines = append(lines, strings.Join(words, " "))
	}
	result.FullText = strings.Join(lines, "\n")
	return result, nil
}

// orderRegions groups regions into horizontal bands and sorts each band left
// to right. Two regions share a band when their vertical centers differ by
// strictly less than half the median region height, so slight baseline
// wobble does not split a line.
func orderRegions(regions []engine.Region) [][]engine.Region {
	if len(regions) == 0 {
		return nil
	}
	sorted := make([]engine.Region, len(regions))
	copy(sorted, regions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return centerY(sorted[i].Box) < centerY(sorted[j].Box)
	})

	tolerance := medianHeight(sorted) / 2

	var bands [][]engine.Region
	var bandAnchor float64
	for _, r := range sorted {
		cy := centerY(r.Box)
		if len(bands) == 0 || cy-bandAnchor >= tolerance {
			bands = append(bands, []engine.Region{r})
			bandAnchor = cy
			continue
		}
		last := len(bands) - 1
		bands[last] = append(bands[last], r)
	}
	for _, band := range bands {
		sort.SliceStable(band, func(i, j int) bool {
			return minX(band[i].Box) < minX(band[j].Box)
		})
	}
	return bands
}

func centerY(b model.BBox) float64 {
	return (b[0][1] + b[1][1] + b[2][1] + b[3][1]) / 4
}

func minX(b model.BBox) float64 {
	min := b[0][0]
	for _, p := range b[1:] {
		if p[0] < min {
			min = p[0]
		}
	}
	return min
}

func height(b model.BBox) float64 {
	minY, maxY := b[0][1], b[0][1]
	for _, p := range b[1:] {
		if p[1] < minY {
			minY = p[1]
		}
		if p[1] > maxY {
			maxY = p[1]
		}
	}
	return maxY - minY
}

func medianHeight(regions []engine.Region) float64 {
	heights := make([]float64, len(regions))
	for i, r := range regions {
		heights[i] = height(r.Box)
	}
	sort.Float64s(heights)
	mid := len(heights) / 2
	if len(heights)%2 == 1 {
		return heights[mid]
	}
	return (heights[mid-1] + heights[mid]) / 2
}
