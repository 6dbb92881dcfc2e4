// Package extract defines the text source adapter boundary: everything the
// pipeline knows about turning an uploaded artifact into raw text.
package extract

import "context"

// Extraction methods reported on a result.
const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
)

// TextResult is the adapter output for one document. Text may be empty; an
// empty OCR result is not an error.
type TextResult struct {
	Text   string
	Method string
	Pages  int
	// PreviewPath points at a cached raster of the first page when one was
	// produced. Display-only; not part of the extraction contract.
	PreviewPath string
	Warnings    []string
}

// TextExtractor obtains raw text from the artifact stored at path.
// Implementations surface capability failures as errors and never retry.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextResult, error)
}
