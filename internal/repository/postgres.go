package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"billscan/internal/common"
	"billscan/internal/entity"
)

// PostgresConfig mirrors the subset of pool tuning the daemon exposes.
type PostgresConfig struct {
	DSN         string
	MaxConns    int32
	DialTimeout time.Duration
}

// PostgresStore backs the ledger with Postgres for multi-process
// deployments; concurrent writers are serialized at the database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool and ensures the schema exists.
func OpenPostgres(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to postgres")

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse postgres dsn", "error", err)
		return nil, common.NewPersistenceError("parse dsn", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "billscan"

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		return nil, common.NewPersistenceError("connect", err)
	}

	s := &PostgresStore{pool: pool, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("postgres store ready")
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS invoice_records (
		id BIGSERIAL PRIMARY KEY,
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
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return common.NewPersistenceError("initialize schema", err)
	}
	return nil
}

func (s *PostgresStore) SaveRecord(ctx context.Context, rec *entity.InvoiceRecord) (int64, error) {
	txDate, total, ingested := packRecord(rec)

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO invoice_records
		 (record_uid, file_name, vendor, invoice_no, tx_date, total_amount,
		  currency, category, summary, raw_text, content_hash, ingested_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		rec.ID.String(), rec.SourceName, rec.Vendor, rec.InvoiceNumber, txDate, total,
		string(rec.Currency), string(rec.Category), rec.Summary, rec.RawText,
		rec.ContentHash, ingested,
	).Scan(&id)
	if err != nil {
		s.logger.Error("postgres insert failed", "file_name", rec.SourceName, "error", err)
		return 0, common.NewPersistenceError("insert record", err)
	}
	return id, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context) ([]entity.InvoiceRecord, error) {
	rows, err := s.pool.Query(ctx,
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

func (s *PostgresStore) ExistsByHash(ctx context.Context, hashHex string) (bool, error) {
	if hashHex == "" {
		return false, nil
	}
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM invoice_records WHERE content_hash = $1`, hashHex).Scan(&n)
	if err != nil {
		return false, common.NewPersistenceError("hash lookup", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
