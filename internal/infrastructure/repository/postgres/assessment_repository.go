package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

type AssessmentRepository struct {
	db *sql.DB
}

func NewAssessmentRepository(db *sql.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AssessmentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS assessments (
	id TEXT PRIMARY KEY,
	company TEXT NOT NULL,
	industry TEXT NOT NULL,
	lang TEXT NOT NULL DEFAULT 'en',
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	options JSONB NOT NULL DEFAULT '{}'::jsonb,
	inputs JSONB NOT NULL DEFAULT '{}'::jsonb,
	result_json JSONB,
	report_md TEXT NOT NULL DEFAULT '',
	ai_md TEXT NOT NULL DEFAULT '',
	storage_path TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_status ON assessments(status);
CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AssessmentRepository) Create(ctx context.Context, rec *domain.AssessmentRecord) error {
	optionsJSON, err := json.Marshal(rec.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	inputs := rec.Inputs
	if inputs == nil {
		inputs = map[domain.DatasetKind]string{}
	}
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO assessments (
	id, company, industry, lang, status, error_message, options, inputs, storage_path, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		rec.ID, rec.Company, rec.Industry, rec.Lang, string(rec.Status), rec.Error,
		optionsJSON, inputsJSON, rec.StoragePath, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, company, industry, lang, status, error_message, options, inputs, result_json, report_md, ai_md, storage_path, created_at, updated_at
FROM assessments
WHERE id = $1
`, id)

	var rec domain.AssessmentRecord
	var status string
	var optionsRaw, inputsRaw, resultRaw []byte

	err := row.Scan(
		&rec.ID, &rec.Company, &rec.Industry, &rec.Lang, &status, &rec.Error,
		&optionsRaw, &inputsRaw, &resultRaw, &rec.ReportMD, &rec.AIMD, &rec.StoragePath,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAssessmentNotFound, "get assessment", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan assessment: %w", err)
	}

	if err := json.Unmarshal(optionsRaw, &rec.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if err := json.Unmarshal(inputsRaw, &rec.Inputs); err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}
	if len(resultRaw) > 0 {
		rec.Result = json.RawMessage(resultRaw)
	}
	rec.Status = domain.AssessmentStatus(status)
	return &rec, nil
}

func (r *AssessmentRepository) UpdateStatus(ctx context.Context, id string, status domain.AssessmentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE assessments
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update assessment status: %w", err)
	}
	return requireAffected(res, "update assessment status", id)
}

func (r *AssessmentRepository) SaveResult(ctx context.Context, id string, result domain.AssessmentResult) error {
	var resultJSON any
	if len(result.Result) > 0 {
		if !json.Valid(result.Result) {
			return domain.WrapError(domain.ErrInvalidInput, "save assessment result", errors.New("result is not valid json"))
		}
		resultJSON = []byte(result.Result)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE assessments
SET result_json = $2, report_md = $3, ai_md = $4, updated_at = $5
WHERE id = $1
`, id, resultJSON, result.ReportMD, result.AIMD, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save assessment result: %w", err)
	}
	return requireAffected(res, "save assessment result", id)
}

func requireAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrAssessmentNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
