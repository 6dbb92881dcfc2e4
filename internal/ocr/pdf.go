package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"billscan/internal/common"
	"billscan/internal/extract"
)

// extractPDF first tries the embedded selectable text layer of the first
// page; when that is empty or whitespace-only the page is rasterized and
// routed through tesseract.
func (e *Extractor) extractPDF(ctx context.Context, path string) (extract.TextResult, error) {
	var warns []string

	text, err := firstPageText(path)
	if err != nil {
		// Not fatal: plenty of scanned PDFs trip the pure-Go reader.
		// pdftotext gets a second chance before we rasterize.
		warns = append(warns, fmt.Sprintf("pdf text layer: %v", err))
		text, err = e.pdfToText(ctx, path)
		if err != nil {
			warns = append(warns, fmt.Sprintf("pdftotext: %v", err))
			text = ""
		}
	}

	if strings.TrimSpace(text) != "" {
		return extract.TextResult{
			Text:     Normalize(text),
			Method:   extract.MethodPDFText,
			Pages:    1,
			Warnings: warns,
		}, nil
	}

	// No text layer; rasterize the first page and OCR the raster.
	raster, err := e.rasterFirstPage(ctx, path)
	if err != nil {
		return extract.TextResult{Warnings: warns},
			common.NewExtractionError("rasterize pdf", err)
	}

	txt, err := e.tesseractOCR(ctx, raster)
	if err != nil {
		return extract.TextResult{PreviewPath: raster, Warnings: warns},
			common.NewExtractionError("ocr pdf raster", err)
	}
	return extract.TextResult{
		Text:        Normalize(txt),
		Method:      extract.MethodPDFOCR,
		Pages:       1,
		PreviewPath: raster,
		Warnings:    warns,
	}, nil
}

// firstPageText reads the embedded text layer of page one.
func firstPageText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	if r.NumPage() == 0 {
		return "", nil
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page 1: %w", err)
	}
	return text, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, error) {
	// pdftotext -f 1 -l 1 -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext,
		"-f", "1", "-l", "1", "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// rasterFirstPage renders page one as PNG into the artifact cache dir and
// returns its path. The raster doubles as the display preview.
func (e *Extractor) rasterFirstPage(ctx context.Context, path string) (string, error) {
	if err := os.MkdirAll(e.cfg.ArtifactCacheDir, 0o755); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(e.cfg.ArtifactCacheDir, base)

	// pdftoppm -f 1 -l 1 -r <dpi> -png <in.pdf> <prefix>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", "1", "-l", "1", "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, truncate(string(errb), 512))
	}

	// pdftoppm names output prefix-1.png (zero padding varies by page count)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no images")
	}
	return matches[0], nil
}
