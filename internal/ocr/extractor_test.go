package ocr

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"billscan/internal/common"
	"billscan/internal/extract"
)

// stubRunner fakes the external binaries; it records which were invoked.
type stubRunner struct {
	fn    func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)
	calls []string
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	return s.fn(ctx, name, args...)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	e := NewExtractorWithRunner(Config{}, &stubRunner{}, nil)

	_, err := e.Extract(context.Background(), "notes.txt")
	if err == nil {
		t.Fatal("Extract() should error on unsupported extension")
	}
	if !errors.Is(err, common.ErrExtraction) {
		t.Errorf("error = %v, want extraction class", err)
	}
}

func TestExtract_ImageOCR(t *testing.T) {
	dir := t.TempDir()
	// not a decodable image, so enhancement degrades to OCR of the original
	path := writeFile(t, dir, "bill.png", "not really a png")

	runner := &stubRunner{fn: func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		if name != "tesseract" {
			t.Errorf("unexpected command %q", name)
		}
		if args[0] != path {
			t.Errorf("tesseract input = %q, want %q", args[0], path)
		}
		return []byte("Pizza Hut\r\nTotal: 450.00\n\n\n\n| | |\n"), nil, nil
	}}
	e := NewExtractorWithRunner(Config{ArtifactCacheDir: dir}, runner, nil)

	res, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Method != extract.MethodImageOCR {
		t.Errorf("Method = %q, want %q", res.Method, extract.MethodImageOCR)
	}
	if want := "Pizza Hut\nTotal: 450.00"; res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
	if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0], "enhance image") {
		t.Errorf("Warnings = %v, want enhance warning", res.Warnings)
	}
}

func TestExtract_ImageEnhancedBeforeOCR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	if err := imaging.Save(imaging.New(8, 8, color.White), path); err != nil {
		t.Fatal(err)
	}

	var ocrInput string
	runner := &stubRunner{fn: func(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
		ocrInput = args[0]
		return []byte("Total: 9.00"), nil, nil
	}}
	e := NewExtractorWithRunner(Config{ArtifactCacheDir: dir}, runner, nil)

	res, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.HasSuffix(ocrInput, ".ocr.png") {
		t.Errorf("tesseract ran on %q, want the enhanced copy", ocrInput)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}
	// the enhanced copy is cleaned up after OCR
	if _, err := os.Stat(ocrInput); !os.IsNotExist(err) {
		t.Errorf("enhanced copy %q not removed", ocrInput)
	}
}

func TestExtract_PDFTextViaPdftotext(t *testing.T) {
	dir := t.TempDir()
	// invalid PDF trips the in-process reader; pdftotext is the fallback
	path := writeFile(t, dir, "invoice.pdf", "%PDF-garbage")

	runner := &stubRunner{fn: func(_ context.Context, name string, _ ...string) ([]byte, []byte, error) {
		if name != "pdftotext" {
			t.Errorf("unexpected command %q", name)
		}
		return []byte("Invoice No: 7\nTotal: 10.00\n"), nil, nil
	}}
	e := NewExtractorWithRunner(Config{ArtifactCacheDir: dir}, runner, nil)

	res, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Method != extract.MethodPDFText {
		t.Errorf("Method = %q, want %q", res.Method, extract.MethodPDFText)
	}
	if !strings.Contains(res.Text, "Total: 10.00") {
		t.Errorf("Text = %q", res.Text)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a text-layer warning")
	}
}

func TestExtract_PDFRasterFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scan.pdf", "%PDF-garbage")

	runner := &stubRunner{}
	runner.fn = func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte("   \n"), nil, nil // whitespace-only text layer
		case "pdftoppm":
			prefix := args[len(args)-1]
			if err := os.WriteFile(prefix+"-1.png", []byte("png"), 0o644); err != nil {
				t.Fatal(err)
			}
			return nil, nil, nil
		case "tesseract":
			if !strings.HasSuffix(args[0], "-1.png") {
				t.Errorf("tesseract input = %q, want the raster", args[0])
			}
			return []byte("Scanned Total: 88.00"), nil, nil
		default:
			t.Fatalf("unexpected command %q", name)
			return nil, nil, nil
		}
	}
	e := NewExtractorWithRunner(Config{ArtifactCacheDir: dir}, runner, nil)

	res, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Method != extract.MethodPDFOCR {
		t.Errorf("Method = %q, want %q", res.Method, extract.MethodPDFOCR)
	}
	if res.PreviewPath == "" {
		t.Error("PreviewPath should carry the raster path")
	}
	if res.Text != "Scanned Total: 88.00" {
		t.Errorf("Text = %q", res.Text)
	}
	want := []string{"pdftotext", "pdftoppm", "tesseract"}
	if len(runner.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", runner.calls, want)
	}
	for i := range want {
		if runner.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, runner.calls[i], want[i])
		}
	}
}

func TestExtract_PDFRasterProducesNothing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scan.pdf", "%PDF-garbage")

	runner := &stubRunner{fn: func(_ context.Context, name string, _ ...string) ([]byte, []byte, error) {
		return nil, nil, nil // pdftotext empty; pdftoppm writes no file
	}}
	e := NewExtractorWithRunner(Config{ArtifactCacheDir: dir}, runner, nil)

	_, err := e.Extract(context.Background(), path)
	if !errors.Is(err, common.ErrExtraction) {
		t.Errorf("error = %v, want extraction class", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb", "a\nb"},
		{"box noise line dropped", "a\n| | |\nb", "a\n\nb"},
		{"blank runs collapse", "a\n\n\n\nb", "a\n\nb"},
		{"trailing space trimmed", "a  \nb\t", "a\nb"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
