package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"billscan/internal/category"
	"billscan/internal/common"
	"billscan/internal/enrich"
	"billscan/internal/ledger"
	"billscan/internal/ocr"
	"billscan/internal/parse"
	"billscan/internal/pipeline"
	"billscan/internal/repository"
	"billscan/internal/rules"
	"billscan/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Rules
	rs := rules.Default()
	if cfg.Rules.Path != "" {
		loaded, err := rules.Load(cfg.Rules.Path)
		if err != nil {
			logger.Error("load ruleset", "path", cfg.Rules.Path, "error", err)
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

	// Store: Postgres when DB_URL is set, SQLite otherwise.
	var store repository.Store
	if cfg.Database.PostgresDSN != "" {
		store, err = repository.OpenPostgres(ctx, repository.PostgresConfig{
			DSN:         cfg.Database.PostgresDSN,
			MaxConns:    cfg.Database.MaxConns,
			DialTimeout: cfg.Database.DialTimeout,
		}, logger)
	} else {
		store, err = repository.OpenSQLite(cfg.Database.SQLitePath, logger)
	}
	if err != nil {
		logger.Error("open ledger store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	if err := store.Ping(ctx); err != nil {
		logger.Error("ledger store health check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("ledger store healthy")

	// Capabilities
	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:        cfg.OCR.Pdftotext,
		Pdftoppm:         cfg.OCR.Pdftoppm,
		Tesseract:        cfg.OCR.Tesseract,
		TesseractLang:    cfg.OCR.TesseractLang,
		DPI:              cfg.OCR.DPI,
		ArtifactCacheDir: cfg.OCR.ArtifactCacheDir,
	}, logger)

	var summarizer enrich.Summarizer = enrich.Disabled{}
	if cfg.Enrich.APIKey != "" {
		summarizer = enrich.NewClient(enrich.Config{
			BaseURL:     cfg.Enrich.BaseURL,
			APIKey:      cfg.Enrich.APIKey,
			Model:       cfg.Enrich.Model,
			Temperature: cfg.Enrich.Temperature,
			Timeout:     cfg.Enrich.Timeout,
		}, logger)
	}

	proc := pipeline.NewProcessor(
		logger,
		extractor,
		parse.NewParser(compiled, logger),
		category.NewCategorizer(compiled, logger),
		summarizer,
	)

	srv := server.New(cfg, proc, ledger.NewSession(), store, compiled, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
