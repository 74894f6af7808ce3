package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pagesWithConfidences(confs ...float64) []PageResult {
	blocks := make([]TextBlock, 0, len(confs))
	for _, c := range confs {
		blocks = append(blocks, TextBlock{Text: "word", Confidence: c})
	}
	return []PageResult{{PageNumber: 1, TextBlocks: blocks}}
}

func TestClassifyQuality(t *testing.T) {
	tests := []struct {
		name        string
		pages       []PageResult
		failedPages []int
		want        Quality
	}{
		{
			name:  "high confidence no failures",
			pages: pagesWithConfidences(0.9, 0.95, 0.88),
			want:  QualityHigh,
		},
		{
			name:        "high confidence with failed page drops to medium",
			pages:       pagesWithConfidences(0.9, 0.95),
			failedPages: []int{3},
			want:        QualityMedium,
		},
		{
			name:  "medium confidence",
			pages: pagesWithConfidences(0.7, 0.65),
			want:  QualityMedium,
		},
		{
			name:        "low confidence with failed pages still medium",
			pages:       pagesWithConfidences(0.2),
			failedPages: []int{2},
			want:        QualityMedium,
		},
		{
			name:  "low confidence",
			pages: pagesWithConfidences(0.3, 0.4),
			want:  QualityLow,
		},
		{
			name:  "no text blocks at all",
			pages: []PageResult{{PageNumber: 1}},
			want:  QualityLow,
		},
		{
			name:        "no text blocks but failed pages still medium",
			pages:       []PageResult{{PageNumber: 1}},
			failedPages: []int{2},
			want:        QualityMedium,
		},
		{
			name: "boundary exactly at high floor",
			// avg 0.85 meets the high floor
			pages: pagesWithConfidences(0.85),
			want:  QualityHigh,
		},
		{
			name:  "boundary exactly at medium floor",
			pages: pagesWithConfidences(0.6),
			want:  QualityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyQuality(tt.pages, tt.failedPages))
		})
	}
}

func TestSortPages(t *testing.T) {
	pages := []PageResult{
		{PageNumber: 3},
		{PageNumber: 1},
		{PageNumber: 2},
	}

	SortPages(pages)

	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Equal(t, 3, pages[2].PageNumber)
}

// The result artifact shape is a contract with downstream consumers; the JSON
// field names must not drift.
func TestDocumentResult_JSONContract(t *testing.T) {
	result := DocumentResult{
		OwnerID: "acme-corp",
		Pages: []PageResult{
			{
				PageNumber: 1,
				TextBlocks: []TextBlock{
					{
						Text:       "Invoice",
						Confidence: 0.97,
						BBox:       BBox{{10, 10}, {90, 10}, {90, 30}, {10, 30}},
					},
				},
				FullText: "Invoice",
			},
		},
		Metadata: ResultMetadata{
			EngineName:       "tesseract",
			EngineVersion:    "5.3.0",
			ProcessingTimeMS: 1250,
			TotalPages:       2,
			FailedPages:      []int{2},
		},
		Quality: QualityMedium,
	}

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "acme-corp", decoded["owner_identifier"])
	assert.Equal(t, "medium", decoded["quality"])
	assert.Contains(t, decoded, "pages")
	assert.Contains(t, decoded, "metadata")

	meta, ok := decoded["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tesseract", meta["engine_name"])
	assert.Equal(t, "5.3.0", meta["engine_version"])
	assert.EqualValues(t, 2, meta["total_pages"])

	page, ok := decoded["pages"].([]any)[0].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, page["page_number"])
	assert.Equal(t, "Invoice", page["full_text"])
	assert.NotContains(t, page, "raw_regions", "raw_regions is omitted unless verbose output is selected")
}
