package mysql

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
  id              VARCHAR(64)  NOT NULL PRIMARY KEY,
  issuer_name     VARCHAR(255) NOT NULL,
  file_name       VARCHAR(255) NOT NULL,
  success         BOOLEAN      NOT NULL,
  total_pages     INT          NOT NULL DEFAULT 0,
  model_used      VARCHAR(128) NOT NULL DEFAULT '',
  truncated       BOOLEAN      NOT NULL DEFAULT FALSE,
  raw_analysis    LONGTEXT     NOT NULL,
  structured_json JSON         NOT NULL,
  archive_url     VARCHAR(1024) NOT NULL DEFAULT '',
  error           TEXT         NOT NULL,
  created_at      DATETIME(6)  NOT NULL,
  KEY idx_formc_reports_created (created_at)
)`

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// EnsureSchema creates the reports table if it is missing.
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return eris.Wrap(err, "mysql: ensure schema")
}

// Save inserts or replaces a report record
func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO formc_reports
  (id, issuer_name, file_name, success, total_pages, model_used, truncated,
   raw_analysis, structured_json, archive_url, error, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  success=VALUES(success), model_used=VALUES(model_used), raw_analysis=VALUES(raw_analysis),
  structured_json=VALUES(structured_json), archive_url=VALUES(archive_url), error=VALUES(error);
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
	return eris.Wrapf(err, "mysql: save report %s", rep.ID)
}

const selectColumns = `SELECT id, issuer_name, file_name, success, total_pages, model_used, truncated,
       raw_analysis, structured_json, archive_url, error, created_at
FROM formc_reports`

// Get returns domain.ErrNotFound when no row matches.
func (r *ReportRepository) Get(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id=?`, id)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(domain.ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "mysql: get report %s", id)
	}
	return rep, nil
}

// Paginate returns a page of reports ordered by created_at desc
func (r *ReportRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Report, error) {
	limit, offset := domain.PageBounds(page, pageSize)
	rows, err := r.db.QueryContext(ctx, selectColumns+`
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "mysql: paginate reports")
	}
	defer rows.Close()

	out := []*domain.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, eris.Wrap(err, "mysql: scan report")
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*domain.Report, error) {
	var (
		rep        domain.Report
		structured string
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
