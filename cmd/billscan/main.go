// billscan scans a directory of invoice images/PDFs through the same
// pipeline the daemon uses, prints a category summary and writes a CSV.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"billscan/constants"
	"billscan/internal/category"
	"billscan/internal/common"
	"billscan/internal/entity"
	"billscan/internal/export"
	"billscan/internal/ledger"
	"billscan/internal/ocr"
	"billscan/internal/parse"
	"billscan/internal/pipeline"
	"billscan/internal/rules"
)

func main() {
	dir := flag.String("dir", "", "directory of invoices to scan (required)")
	out := flag.String("out", "billscan.csv", "CSV output path")
	xlsxOut := flag.String("xlsx", "", "optional XLSX output path")
	rulesPath := flag.String("rules", "", "optional ruleset YAML")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: billscan -dir <directory> [-out report.csv]")
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}
	cfg := common.LoadConfig()

	rs := rules.Default()
	if *rulesPath != "" {
		loaded, err := rules.Load(*rulesPath)
		if err != nil {
			logger.Error("load ruleset", "path", *rulesPath, "error", err)
			os.Exit(1)
		}
		rs = loaded
	}
	rs.OverrideDefaultCurrency(cfg.Rules.DefaultCurrency)
	compiled, err := rs.Compile()
	if err != nil {
		logger.Error("compile ruleset", "error", err)
		os.Exit(1)
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:        cfg.OCR.Pdftotext,
		Pdftoppm:         cfg.OCR.Pdftoppm,
		Tesseract:        cfg.OCR.Tesseract,
		TesseractLang:    cfg.OCR.TesseractLang,
		DPI:              cfg.OCR.DPI,
		ArtifactCacheDir: cfg.OCR.ArtifactCacheDir,
	}, logger)

	proc := pipeline.NewProcessor(
		logger,
		extractor,
		parse.NewParser(compiled, logger),
		category.NewCategorizer(compiled, logger),
		nil,
	)

	ctx := context.Background()
	session := ledger.NewSession()
	var failed int

	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !constants.IsAllowedExt(filepath.Ext(path)) {
			return nil
		}

		doc, err := documentFor(path)
		if err != nil {
			logger.Error("skipping file", "path", path, "error", err)
			failed++
			return nil
		}

		rec, _, err := proc.Process(ctx, doc)
		if err != nil {
			// one bad document never aborts the batch
			logger.Error("processing failed", "path", path, "error", err)
			failed++
			return nil
		}
		session.Append(rec)
		return nil
	})
	if err != nil {
		logger.Error("walk directory", "dir", *dir, "error", err)
		os.Exit(1)
	}

	records := session.Records()
	printSummary(records, failed)

	f, err := os.Create(*out)
	if err != nil {
		logger.Error("create csv", "path", *out, "error", err)
		os.Exit(1)
	}
	defer func() { _ = f.Close() }()
	if err := export.WriteCSV(f, records); err != nil {
		logger.Error("write csv", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("csv written", "path", *out, "records", len(records))

	if *xlsxOut != "" {
		b, err := export.WriteXLSX(records, logger)
		if err != nil {
			logger.Error("write xlsx", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxOut, b, 0o644); err != nil {
			logger.Error("write xlsx file", "path", *xlsxOut, "error", err)
			os.Exit(1)
		}
		logger.Info("xlsx written", "path", *xlsxOut)
	}
}

func documentFor(path string) (*entity.SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return &entity.SourceDocument{
		ID:          uuid.New(),
		Name:        filepath.Base(path),
		Format:      constants.MapExtToFormat(filepath.Ext(path)),
		Path:        path,
		ContentHash: sum[:],
		FileSize:    int64(len(data)),
		UploadedAt:  time.Now().UTC(),
	}, nil
}

func printSummary(records []entity.InvoiceRecord, failed int) {
	sum := ledger.Aggregate(records)

	fmt.Printf("processed %d documents (%d failed)\n", len(records)+failed, failed)
	fmt.Printf("records with amount: %d\n", sum.WithAmount)
	fmt.Printf("grand total: %s\n", sum.Total.String())
	if sum.Mean != nil {
		fmt.Printf("mean amount: %s\n", sum.Mean.String())
	} else {
		fmt.Println("mean amount: no data")
	}
	if len(sum.ByCategory) > 0 {
		fmt.Println("by category:")
		for _, g := range sum.ByCategory {
			fmt.Printf("  %-16s %s\n", g.Label, g.Total.String())
		}
	}
}
