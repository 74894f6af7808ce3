package model

import (
	"encoding/json"
	"sort"
)

// Quality is a coarse classification of a document result derived from
// aggregate recognition confidence.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Quality thresholds over average text-block confidence.
const (
	qualityHighFloor   = 0.85
	qualityMediumFloor = 0.6
)

// BBox is a quadrilateral bounding box in image pixel space: four (x, y)
// corner points ordered clockwise from top-left.
type BBox [4][2]float64

// TextBlock is one recognized text region on a page.
type TextBlock struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// PageResult is the structured recognition output for a single page. It lives
// in memory only for the duration of one job and is discarded after assembly
// into the persisted DocumentResult.
type PageResult struct {
	PageNumber int         `json:"page_number"`
	TextBlocks []TextBlock `json:"text_blocks"`
	FullText   string      `json:"full_text"`

	// RawRegions carries the unfiltered engine output and is populated only
	// when the verbose output format is selected.
	RawRegions json.RawMessage `json:"raw_regions,omitempty"`
}

// ResultMetadata describes how a DocumentResult was produced.
type ResultMetadata struct {
	EngineName       string `json:"engine_name"`
	EngineVersion    string `json:"engine_version"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
	TotalPages       int    `json:"total_pages"`
	FailedPages      []int  `json:"failed_pages"`
}

// DocumentResult is the persisted output artifact written to object storage.
// Its field names and nesting are a durable contract with downstream
// consumers; changes require an engine version bump.
type DocumentResult struct {
	OwnerID  string         `json:"owner_identifier"`
	Pages    []PageResult   `json:"pages"`
	Metadata ResultMetadata `json:"metadata"`
	Quality  Quality        `json:"quality"`
}

// ClassifyQuality derives the coarse quality label from the average
// confidence across all successful text blocks and the presence of failed
// pages. Failed pages cap the label at medium, and also lift an otherwise
// empty result to medium: partial loss outranks an empty-but-complete scan.
func ClassifyQuality(pages []PageResult, failedPages []int) Quality {
	var sum float64
	var n int
	for _, p := range pages {
		for _, b := range p.TextBlocks {
			sum += b.Confidence
			n++
		}
	}
	var avg float64
	if n > 0 {
		avg = sum / float64(n)
	}
	switch {
	case n > 0 && avg >= qualityHighFloor && len(failedPages) == 0:
		return QualityHigh
	case (n > 0 && avg >= qualityMediumFloor) || len(failedPages) > 0:
		return QualityMedium
	default:
		return QualityLow
	}
}

// SortPages orders page results in ascending page-number order. Assembly
// order is deterministic regardless of recognition completion order.
func SortPages(pages []PageResult) {
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].PageNumber < pages[j].PageNumber
	})
}
