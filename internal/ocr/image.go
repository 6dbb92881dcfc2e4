package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"billscan/internal/common"
	"billscan/internal/extract"
)

// extractImage enhances the image for OCR and runs tesseract over the
// enhanced copy. The raw OCR output is returned even if empty.
func (e *Extractor) extractImage(ctx context.Context, path string) (extract.TextResult, error) {
	var warns []string

	ocrInput := path
	if enhanced, err := e.enhanceForOCR(path); err != nil {
		// OCR the original rather than failing the document.
		warns = append(warns, fmt.Sprintf("enhance image: %v", err))
	} else {
		ocrInput = enhanced
		defer func() { _ = os.Remove(enhanced) }()
	}

	txt, err := e.tesseractOCR(ctx, ocrInput)
	if err != nil {
		return extract.TextResult{Warnings: warns},
			common.NewExtractionError("ocr image", err)
	}

	return extract.TextResult{
		Text:     Normalize(txt),
		Method:   extract.MethodImageOCR,
		Pages:    1,
		Warnings: warns,
	}, nil
}

// enhanceForOCR applies grayscale/contrast/sharpen passes that help
// tesseract on photographed bills. Writes a sibling temp file and returns
// its path.
func (e *Extractor) enhanceForOCR(path string) (string, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)

	if err := os.MkdirAll(e.cfg.ArtifactCacheDir, 0o755); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(e.cfg.ArtifactCacheDir, base+".ocr.png")
	if err := imaging.Save(img, out); err != nil {
		return "", fmt.Errorf("save enhanced image: %w", err)
	}
	return out, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.TesseractLang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
