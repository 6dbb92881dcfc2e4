package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"billscan/internal/category"
	"billscan/internal/common"
	"billscan/internal/enrich"
	"billscan/internal/entity"
	"billscan/internal/extract"
	"billscan/internal/ledger"
	"billscan/internal/parse"
	"billscan/internal/pipeline"
	"billscan/internal/repository"
	"billscan/internal/rules"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedExtractor struct {
	res extract.TextResult
	err error
}

func (f fixedExtractor) Extract(context.Context, string) (extract.TextResult, error) {
	return f.res, f.err
}

func newTestServer(t *testing.T, tx extract.TextExtractor, store repository.Store) *Server {
	t.Helper()
	compiled, err := rules.Default().Compile()
	if err != nil {
		t.Fatal(err)
	}

	cfg := &common.Config{}
	cfg.Server.Addr = ":0"
	cfg.Server.MaxUploadBytes = 1 << 20
	cfg.Server.ShutdownTimeout = time.Second
	cfg.OCR.ArtifactCacheDir = t.TempDir()

	proc := pipeline.NewProcessor(nil, tx,
		parse.NewParser(compiled, nil),
		category.NewCategorizer(compiled, nil),
		enrich.Disabled{})
	return New(cfg, proc, ledger.NewSession(), store, compiled, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func uploadRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestScanDocument(t *testing.T) {
	tx := fixedExtractor{res: extract.TextResult{
		Text:   "Restaurant ABC\nPizza 250.00\nTotal: 250.00\nDate: 12/05/2024",
		Method: extract.MethodImageOCR,
	}}
	s := newTestServer(t, tx, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, uploadRequest(t, "bill.png", []byte("fake image bytes")))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	rec, ok := body["record"].(map[string]any)
	if !ok {
		t.Fatalf("no record in response: %v", body)
	}
	if rec["file_name"] != "bill.png" {
		t.Errorf("file_name = %v", rec["file_name"])
	}
	if rec["vendor"] != "UNKNOWN" {
		t.Errorf("vendor = %v, want UNKNOWN", rec["vendor"])
	}
	if rec["invoice_no"] != "Not found" {
		t.Errorf("invoice_no = %v, want Not found", rec["invoice_no"])
	}
	if rec["category"] != "Food" {
		t.Errorf("category = %v, want Food", rec["category"])
	}
	if body["method"] != string(extract.MethodImageOCR) {
		t.Errorf("method = %v", body["method"])
	}

	// scanning never appends to the ledger
	if got := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/records", nil); got.Code == http.StatusOK {
		if decodeBody(t, got)["count"].(float64) != 0 {
			t.Error("scan appended to the ledger")
		}
	}
}

func TestScanDocument_Rejections(t *testing.T) {
	s := newTestServer(t, fixedExtractor{}, nil)

	t.Run("missing file field", func(t *testing.T) {
		w := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/documents", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, uploadRequest(t, "notes.txt", []byte("text")))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestScanDocument_ExtractionFailure(t *testing.T) {
	tx := fixedExtractor{err: common.NewExtractionError("ocr image", nil)}
	s := newTestServer(t, tx, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, uploadRequest(t, "bill.png", []byte("junk")))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if decodeBody(t, w)["stage"] != "extraction" {
		t.Errorf("stage = %v, want extraction", decodeBody(t, w)["stage"])
	}
}

func TestConfirmRecord(t *testing.T) {
	s := newTestServer(t, fixedExtractor{}, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/records", map[string]any{
		"file_name":    "bill.png",
		"vendor":       "Pizza Hut",
		"date":         "2024-05-12",
		"total_amount": "250.00",
		"currency":     "INR",
		"category":     "Food",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	rec := decodeBody(t, w)["record"].(map[string]any)
	if rec["vendor"] != "Pizza Hut" || rec["category"] != "Food" {
		t.Errorf("record = %v", rec)
	}
	// empty invoice_no falls back to the documented default
	if rec["invoice_no"] != entity.InvoiceNumberNotFound {
		t.Errorf("invoice_no = %v, want Not found", rec["invoice_no"])
	}

	list := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/records", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	if decodeBody(t, list)["count"].(float64) != 1 {
		t.Error("confirmed record missing from ledger")
	}
}

func TestConfirmRecord_Rejections(t *testing.T) {
	s := newTestServer(t, fixedExtractor{}, nil)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing category", map[string]any{"file_name": "a.png"}},
		{"unknown category", map[string]any{"file_name": "a.png", "category": "Groceries"}},
		{"lowercase category", map[string]any{"file_name": "a.png", "category": "food"}},
		{"bad date", map[string]any{"file_name": "a.png", "category": "Food", "date": "12/05/2024"}},
		{"negative amount", map[string]any{"file_name": "a.png", "category": "Food", "total_amount": "-5"}},
		{"non-decimal amount", map[string]any{"file_name": "a.png", "category": "Food", "total_amount": "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/records", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}

	// nothing slipped into the ledger
	list := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/records", nil)
	if decodeBody(t, list)["count"].(float64) != 0 {
		t.Error("rejected confirms reached the ledger")
	}
}

func TestConfirmRecord_DuplicateHash(t *testing.T) {
	store, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "billscan.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	s := newTestServer(t, fixedExtractor{}, store)

	body := map[string]any{
		"file_name":    "bill.png",
		"category":     "Food",
		"content_hash": "deadbeef",
	}
	if w := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/records", body); w.Code != http.StatusCreated {
		t.Fatalf("first confirm status = %d, body %s", w.Code, w.Body.String())
	}
	w := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/records", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("second confirm status = %d, want 409", w.Code)
	}
	if s.session.Len() != 1 {
		t.Errorf("session length = %d, want 1", s.session.Len())
	}
}

func TestSummaryEndpoint(t *testing.T) {
	s := newTestServer(t, fixedExtractor{}, nil)

	for _, r := range []map[string]any{
		{"file_name": "a.png", "category": "Food", "total_amount": "250.00"},
		{"file_name": "b.png", "category": "Travel", "total_amount": "120.50"},
		{"file_name": "c.png", "category": "Food"}, // no amount
	} {
		if w := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/records", r); w.Code != http.StatusCreated {
			t.Fatalf("confirm failed: %s", w.Body.String())
		}
	}

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/records/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	sum := decodeBody(t, w)
	if sum["count"].(float64) != 3 || sum["with_amount"].(float64) != 2 {
		t.Errorf("count/with_amount = %v/%v", sum["count"], sum["with_amount"])
	}
	if sum["total"] != "370.5" {
		t.Errorf("total = %v, want 370.5", sum["total"])
	}
	byCat := sum["by_category"].([]any)
	if len(byCat) != 2 {
		t.Fatalf("by_category = %v", byCat)
	}
}

func TestExportEndpoints(t *testing.T) {
	s := newTestServer(t, fixedExtractor{}, nil)
	if w := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/records", map[string]any{
		"file_name": "a.png", "category": "Food", "total_amount": "10",
	}); w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}

	csvResp := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/records/export.csv", nil)
	if csvResp.Code != http.StatusOK {
		t.Fatalf("csv status = %d", csvResp.Code)
	}
	if !strings.Contains(csvResp.Header().Get("Content-Disposition"), "billscan.csv") {
		t.Errorf("csv disposition = %q", csvResp.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(csvResp.Body.String(), "file_name,") {
		t.Errorf("csv body = %q", csvResp.Body.String())
	}

	xlsxResp := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/records/export.xlsx", nil)
	if xlsxResp.Code != http.StatusOK {
		t.Fatalf("xlsx status = %d", xlsxResp.Code)
	}
	if xlsxResp.Body.Len() == 0 {
		t.Error("xlsx body empty")
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, fixedExtractor{}, nil)
	w := doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if decodeBody(t, w)["status"] != "ok" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestListRecords_NewestFirst(t *testing.T) {
	s := newTestServer(t, fixedExtractor{}, nil)
	for _, name := range []string{"first.png", "second.png"} {
		if w := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/records", map[string]any{
			"file_name": name, "category": "Food",
		}); w.Code != http.StatusCreated {
			t.Fatal(w.Body.String())
		}
	}

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/records", nil)
	recs := decodeBody(t, w)["records"].([]any)
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].(map[string]any)["file_name"] != "second.png" {
		t.Error("records not newest first")
	}
}
