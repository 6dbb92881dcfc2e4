package server

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"billscan/constants"
	"billscan/internal/common"
	"billscan/internal/entity"
	"billscan/internal/export"
	"billscan/internal/ledger"
)

// scanDocument accepts one multipart upload, runs the pipeline and returns
// the draft record for review. Nothing is appended to the ledger here.
func (s *Server) scanDocument(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, common.NewAppError("UPLOAD_ERROR", "multipart field 'file' is required", common.ErrInvalidInput))
		return
	}
	if fh.Size > s.cfg.Server.MaxUploadBytes {
		s.fail(c, common.NewAppError("UPLOAD_ERROR",
			fmt.Sprintf("file exceeds %d bytes", s.cfg.Server.MaxUploadBytes), common.ErrInvalidInput))
		return
	}

	ext := constants.NormalizeExt(filepath.Ext(fh.Filename))
	format := constants.MapExtToFormat(ext)
	if format == "" {
		s.fail(c, common.NewAppError("UPLOAD_ERROR",
			fmt.Sprintf("unsupported file type %q", ext), common.ErrInvalidInput))
		return
	}

	src, err := fh.Open()
	if err != nil {
		s.fail(c, common.NewAppError("UPLOAD_ERROR", "open upload", err))
		return
	}
	defer func() { _ = src.Close() }()

	var buf bytes.Buffer
	hasher := sha256.New()
	if _, err := buf.ReadFrom(io.TeeReader(src, hasher)); err != nil {
		s.fail(c, common.NewAppError("UPLOAD_ERROR", "read upload", err))
		return
	}

	uploadDir := filepath.Join(s.cfg.OCR.ArtifactCacheDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		s.fail(c, common.NewAppError("UPLOAD_ERROR", "create upload dir", err))
		return
	}
	docID := uuid.New()
	path := filepath.Join(uploadDir, docID.String()+"."+ext)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		s.fail(c, common.NewAppError("UPLOAD_ERROR", "store upload", err))
		return
	}

	doc := &entity.SourceDocument{
		ID:          docID,
		Name:        fh.Filename,
		Format:      format,
		Path:        path,
		ContentHash: hasher.Sum(nil),
		FileSize:    fh.Size,
		UploadedAt:  time.Now().UTC(),
	}

	rec, res, err := s.proc.Process(c.Request.Context(), doc)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record":   rec,
		"method":   res.Method,
		"preview":  res.PreviewPath,
		"warnings": res.Warnings,
	})
}

// confirmRequest is the reviewed (possibly user-edited) draft sent back for
// saving. Currency is the one user-confirmable enum.
type confirmRequest struct {
	SourceName    string `json:"file_name" binding:"required"`
	Vendor        string `json:"vendor"`
	InvoiceNumber string `json:"invoice_no"`
	Date          string `json:"date"`
	TotalAmount   string `json:"total_amount"`
	Currency      string `json:"currency"`
	Category      string `json:"category" binding:"required"`
	Summary       string `json:"summary"`
	RawText       string `json:"extracted_text"`
	ContentHash   string `json:"content_hash"`
}

// confirmRecord appends a reviewed record to the session ledger and, when a
// store is configured, persists it. The store write happens first so a
// failed write leaves the session ledger untouched.
func (s *Server) confirmRecord(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, common.NewAppError("CONFIRM_ERROR", "invalid body: "+err.Error(), common.ErrInvalidInput))
		return
	}

	if !s.rules.IsKnown(req.Category) {
		s.fail(c, common.NewAppError("CONFIRM_ERROR",
			fmt.Sprintf("unknown category %q", req.Category), common.ErrInvalidInput))
		return
	}

	rec := entity.InvoiceRecord{
		ID:            uuid.New(),
		SourceName:    req.SourceName,
		Vendor:        req.Vendor,
		InvoiceNumber: req.InvoiceNumber,
		Currency:      constants.CanonicalizeCurrency(req.Currency),
		Category:      constants.Category(req.Category),
		Summary:       req.Summary,
		RawText:       req.RawText,
		ContentHash:   req.ContentHash,
		IngestedAt:    time.Now().UTC(),
	}
	if rec.Vendor == "" {
		rec.Vendor = entity.VendorUnknown
	}
	if rec.InvoiceNumber == "" {
		rec.InvoiceNumber = entity.InvoiceNumberNotFound
	}

	rec.Date = rec.IngestedAt
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			s.fail(c, common.NewAppError("CONFIRM_ERROR", "date must be YYYY-MM-DD", common.ErrInvalidInput))
			return
		}
		rec.Date = d
	}

	if req.TotalAmount != "" {
		amt, err := decimal.NewFromString(req.TotalAmount)
		if err != nil || amt.IsNegative() {
			s.fail(c, common.NewAppError("CONFIRM_ERROR", "total_amount must be a non-negative decimal", common.ErrInvalidInput))
			return
		}
		rec.TotalAmount = &amt
	}

	var storeID int64
	if s.store != nil {
		if rec.ContentHash != "" {
			dup, err := s.store.ExistsByHash(c.Request.Context(), rec.ContentHash)
			if err != nil {
				s.fail(c, err)
				return
			}
			if dup {
				c.JSON(http.StatusConflict, gin.H{
					"stage": "persistence",
					"error": "a record with this content hash already exists",
				})
				return
			}
		}
		id, err := s.store.SaveRecord(c.Request.Context(), &rec)
		if err != nil {
			s.fail(c, err)
			return
		}
		storeID = id
	}

	s.session.Append(rec)
	s.logger.Info("record confirmed",
		"file_name", rec.SourceName,
		"category", string(rec.Category),
		"store_id", storeID,
	)
	c.JSON(http.StatusCreated, gin.H{"id": storeID, "record": rec})
}

func (s *Server) listRecords(c *gin.Context) {
	recs, err := s.currentRecords(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
}

func (s *Server) summarizeRecords(c *gin.Context) {
	recs, err := s.currentRecords(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger.Aggregate(recs))
}

func (s *Server) exportCSV(c *gin.Context) {
	recs, err := s.currentRecords(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, recs); err != nil {
		s.fail(c, common.NewAppError("EXPORT_ERROR", "write csv", err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="billscan.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (s *Server) exportXLSX(c *gin.Context) {
	recs, err := s.currentRecords(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	b, err := export.WriteXLSX(recs, s.logger)
	if err != nil {
		s.fail(c, common.NewAppError("EXPORT_ERROR", "write xlsx", err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="billscan.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", b)
}

func (s *Server) health(c *gin.Context) {
	if s.store != nil {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// currentRecords reads from the store when configured, else from the
// session ledger (most recent first either way).
func (s *Server) currentRecords(c *gin.Context) ([]entity.InvoiceRecord, error) {
	if s.store != nil {
		return s.store.ListRecords(c.Request.Context())
	}
	recs := s.session.Records()
	// session keeps append order; flip for recency
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}
