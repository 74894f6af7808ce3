// Package raster turns document bytes into page images for recognition.
package raster

import (
	"context"
	"image"
)

// Rasterizer renders pages of a document to images. Page numbers are 1-based.
// Implementations must be safe for concurrent use across pages and jobs.
type Rasterizer interface {
	// PageCount reports how many pages doc contains. A corrupt or empty
	// document returns an error.
	PageCount(ctx context.Context, doc []byte) (int, error)
	// RenderPage renders one page of doc at the given DPI. Failures are
	// scoped to that page.
	RenderPage(ctx context.Context, doc []byte, page int, dpi int) (image.Image, error)
}
