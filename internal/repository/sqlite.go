package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"billscan/internal/common"
	"billscan/internal/entity"
)

// SQLiteStore is the default single-process ledger store.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens or creates the database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func OpenSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logger.Info("sqlite store ready", "path", dbPath)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS invoice_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_uid TEXT NOT NULL,
		file_name TEXT NOT NULL,
		vendor TEXT NOT NULL,
		invoice_no TEXT NOT NULL,
		tx_date TEXT NOT NULL,
		total_amount TEXT,
		currency TEXT NOT NULL,
		category TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		raw_text TEXT NOT NULL,
		content_hash TEXT NOT NULL DEFAULT '',
		ingested_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoice_records_hash ON invoice_records(content_hash);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) SaveRecord(ctx context.Context, rec *entity.InvoiceRecord) (int64, error) {
	txDate, total, ingested := packRecord(rec)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO invoice_records
		 (record_uid, file_name, vendor, invoice_no, tx_date, total_amount,
		  currency, category, summary, raw_text, content_hash, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.SourceName, rec.Vendor, rec.InvoiceNumber, txDate, total,
		string(rec.Currency), string(rec.Category), rec.Summary, rec.RawText,
		rec.ContentHash, ingested,
	)
	if err != nil {
		s.logger.Error("sqlite insert failed", "file_name", rec.SourceName, "error", err)
		return 0, common.NewPersistenceError("insert record", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, common.NewPersistenceError("last insert id", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context) ([]entity.InvoiceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_uid, file_name, vendor, invoice_no, tx_date, total_amount,
		        currency, category, summary, raw_text, content_hash, ingested_at
		 FROM invoice_records ORDER BY id DESC`)
	if err != nil {
		return nil, common.NewPersistenceError("query records", err)
	}
	defer rows.Close()

	var out []entity.InvoiceRecord
	for rows.Next() {
		var uid, fileName, vendor, invoiceNo, txDate string
		var total *string
		var currency, category, summary, rawText, hash, ingested string
		if err := rows.Scan(&uid, &fileName, &vendor, &invoiceNo, &txDate, &total,
			&currency, &category, &summary, &rawText, &hash, &ingested); err != nil {
			return nil, common.NewPersistenceError("scan record", err)
		}
		rec, err := buildRecord(uid, fileName, vendor, invoiceNo, txDate, total,
			currency, category, summary, rawText, hash, ingested)
		if err != nil {
			return nil, common.NewPersistenceError("decode record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("iterate records", err)
	}
	return out, nil
}

func (s *SQLiteStore) ExistsByHash(ctx context.Context, hashHex string) (bool, error) {
	if hashHex == "" {
		return false, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM invoice_records WHERE content_hash = ?`, hashHex).Scan(&n)
	if err != nil {
		return false, common.NewPersistenceError("hash lookup", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
