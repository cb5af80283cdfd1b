package extract

import (
	"context"
	"time"
)

// DocumentExtract is the raw material for one inference request: full text
// plus a PNG raster of every page.
type DocumentExtract struct {
	Text       string
	Pages      int
	PageImages [][]byte // PNG bytes, one per page, in page order
	Duration   time.Duration
	Warnings   []string
}

// Extractor turns a source document into text and page images.
type Extractor interface {
	Extract(ctx context.Context, path string) (DocumentExtract, error)
}
