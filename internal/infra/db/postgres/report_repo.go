package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	domain "github.com/bryanwahyu/formc-review/internal/domain/reports"
)

const schema = `
CREATE TABLE IF NOT EXISTS formc_reports (
  id              TEXT        PRIMARY KEY,
  issuer_name     TEXT        NOT NULL,
  file_name       TEXT        NOT NULL,
  success         BOOLEAN     NOT NULL,
  total_pages     INTEGER     NOT NULL DEFAULT 0,
  model_used      TEXT        NOT NULL DEFAULT '',
  truncated       BOOLEAN     NOT NULL DEFAULT FALSE,
  raw_analysis    TEXT        NOT NULL,
  structured_json JSONB       NOT NULL,
  archive_url     TEXT        NOT NULL DEFAULT '',
  error           TEXT        NOT NULL,
  created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_formc_reports_created ON formc_reports (created_at DESC);`

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// EnsureSchema creates the reports table if it is missing.
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return eris.Wrap(err, "postgres: ensure schema")
}

// Save inserts or updates a report record
func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO formc_reports
  (id, issuer_name, file_name, success, total_pages, model_used, truncated,
   raw_analysis, structured_json, archive_url, error, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  success=EXCLUDED.success,
  model_used=EXCLUDED.model_used,
  raw_analysis=EXCLUDED.raw_analysis,
  structured_json=EXCLUDED.structured_json,
  archive_url=EXCLUDED.archive_url,
  error=EXCLUDED.error;
`
	structured, err := encodeStructured(rep.Structured)
	if err != nil {
		return err
	}
	createdAt := rep.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, q,
		rep.ID, rep.IssuerName, stringOrDash(rep.FileName), rep.Success, rep.TotalPages,
		rep.ModelUsed, rep.Truncated, rep.RawAnalysis, structured, rep.ArchiveURL, rep.Error, createdAt,
	)
	return eris.Wrapf(err, "postgres: save report %s", rep.ID)
}

const selectColumns = `SELECT id, issuer_name, file_name, success, total_pages, model_used, truncated,
       raw_analysis, structured_json, archive_url, error, created_at
FROM formc_reports`

func (r *ReportRepository) Get(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id=$1`, id)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(domain.ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", id)
	}
	return rep, nil
}

// Paginate returns a page of reports ordered by created_at desc
func (r *ReportRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Report, error) {
	limit, offset := domain.PageBounds(page, pageSize)
	rows, err := r.db.QueryContext(ctx, selectColumns+`
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: paginate reports")
	}
	defer rows.Close()

	out := []*domain.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func scanReport(s interface{ Scan(dest ...any) error }) (*domain.Report, error) {
	var (
		rep        domain.Report
		structured []byte
	)
	if err := s.Scan(&rep.ID, &rep.IssuerName, &rep.FileName, &rep.Success, &rep.TotalPages,
		&rep.ModelUsed, &rep.Truncated, &rep.RawAnalysis, &structured, &rep.ArchiveURL,
		&rep.Error, &rep.CreatedAt); err != nil {
		return nil, err
	}
	st, err := decodeStructured(structured, rep.RawAnalysis)
	if err != nil {
		return nil, err
	}
	rep.Structured = st
	return &rep, nil
}
