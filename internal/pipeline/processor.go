// Package pipeline coordinates the per-document flow: text source adapter,
// field extraction, categorization, enrichment. One document is processed
// fully before the next is accepted; there is no queue and no cancellation
// of an in-flight OCR call.
package pipeline

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"billscan/internal/category"
	"billscan/internal/enrich"
	"billscan/internal/entity"
	"billscan/internal/extract"
	"billscan/internal/parse"
)

// Processor wires the stages for one session. The only state it carries is
// configuration; accumulation happens in the session ledger.
type Processor struct {
	Logger      *slog.Logger
	Extractor   extract.TextExtractor
	Parser      *parse.Parser
	Categorizer *category.Categorizer
	Summarizer  enrich.Summarizer

	// Now supplies the ingestion timestamp; tests pin it.
	Now func() time.Time
}

func NewProcessor(logger *slog.Logger, tx extract.TextExtractor, p *parse.Parser,
	c *category.Categorizer, s enrich.Summarizer) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if s == nil {
		s = enrich.Disabled{}
	}
	return &Processor{
		Logger:      logger,
		Extractor:   tx,
		Parser:      p,
		Categorizer: c,
		Summarizer:  s,
		Now:         time.Now,
	}
}

// Process runs the linear pipeline for one document and returns the draft
// record. An extraction failure aborts this document only; nothing is
// appended anywhere on failure. A missing field is not a failure.
func (p *Processor) Process(ctx context.Context, doc *entity.SourceDocument) (entity.InvoiceRecord, extract.TextResult, error) {
	start := p.Now()

	res, err := p.Extractor.Extract(ctx, doc.Path)
	if err != nil {
		p.Logger.Error("pipeline.extract.failed", "doc", doc.Name, "error", err)
		return entity.InvoiceRecord{}, res, err
	}
	p.Logger.Info("pipeline.extract.ok",
		"doc", doc.Name,
		"method", res.Method,
		"text_bytes", len(res.Text),
		"warnings", len(res.Warnings),
	)

	ingestedAt := p.Now()
	fields := p.Parser.Parse(res.Text, ingestedAt)
	cat := p.Categorizer.Categorize(res.Text)

	rec := entity.InvoiceRecord{
		ID:            uuid.New(),
		SourceName:    doc.Name,
		Vendor:        fields.Vendor,
		InvoiceNumber: fields.InvoiceNumber,
		Date:          fields.Date,
		TotalAmount:   fields.TotalAmount,
		Currency:      fields.Currency,
		Category:      cat,
		RawText:       res.Text,
		ContentHash:   hex.EncodeToString(doc.ContentHash),
		IngestedAt:    ingestedAt,
	}

	sum := p.Summarizer.Summarize(ctx, res.Text)
	switch {
	case !sum.Unavailable:
		rec.Summary = sum.Text
	case !sum.Disabled:
		// a failed attempt degrades to a visible placeholder; a disabled
		// summarizer leaves the field empty
		rec.Summary = "summary unavailable: " + sum.Reason
	}

	p.Logger.Info("pipeline.processed",
		"doc", doc.Name,
		"vendor", rec.Vendor,
		"invoice_no", rec.InvoiceNumber,
		"has_amount", rec.HasAmount(),
		"category", string(rec.Category),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, res, nil
}
