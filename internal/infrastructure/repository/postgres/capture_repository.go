// Package postgres persists captures and the entities derived from them.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/dash-voice/internal/core/domain"
)

type CaptureRepository struct {
	db *sql.DB
}

func NewCaptureRepository(db *sql.DB) *CaptureRepository {
	return &CaptureRepository{db: db}
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

func (r *CaptureRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS captures (
	id TEXT PRIMARY KEY,
	transcript TEXT NOT NULL,
	mode TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	summary TEXT NOT NULL DEFAULT '',
	proposed_action TEXT NOT NULL DEFAULT '',
	structured_data JSONB NOT NULL DEFAULT '{}'::jsonb,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_captures_status ON captures(status);
CREATE INDEX IF NOT EXISTS idx_captures_created_at ON captures(created_at DESC);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	capture_id TEXT REFERENCES captures(id),
	title TEXT NOT NULL,
	due_date DATE,
	priority TEXT NOT NULL DEFAULT 'medium',
	project TEXT,
	status TEXT NOT NULL DEFAULT 'todo',
	recurrence TEXT,
	recurrence_end DATE,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_capture_id ON tasks(capture_id);

CREATE TABLE IF NOT EXISTS reflections (
	id TEXT PRIMARY KEY,
	capture_id TEXT REFERENCES captures(id),
	summary TEXT NOT NULL,
	mood TEXT,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_reflections_created_at ON reflections(created_at DESC);

CREATE TABLE IF NOT EXISTS goals (
	id TEXT PRIMARY KEY,
	capture_id TEXT REFERENCES captures(id),
	title TEXT NOT NULL,
	timeframe TEXT,
	measurable TEXT,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_goals_status ON goals(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CaptureRepository) CreateCapture(ctx context.Context, capture *domain.Capture) error {
	dataJSON, err := marshalStructuredData(capture.StructuredData)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO captures (
	id, transcript, mode, confidence, summary, proposed_action, structured_data, status, created_at, updated_at, deleted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		capture.ID, capture.Transcript, string(capture.Mode), capture.Confidence, capture.Summary,
		capture.ProposedAction, dataJSON, string(capture.Status), capture.CreatedAt, capture.UpdatedAt, capture.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}
	return nil
}

func (r *CaptureRepository) ListCaptures(ctx context.Context, status domain.CaptureStatus) ([]domain.Capture, error) {
	query := `
SELECT id, transcript, mode, confidence, summary, proposed_action, structured_data, status, created_at, updated_at, deleted_at
FROM captures
WHERE deleted_at IS NULL
`
	args := []any{}
	if status != "" {
		query += "AND status = $1\n"
		args = append(args, string(status))
	}
	query += "ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Capture, 0)
	for rows.Next() {
		capture, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, capture)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captures: %w", err)
	}
	return out, nil
}

func (r *CaptureRepository) GetCaptureByID(ctx context.Context, id string) (*domain.Capture, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, transcript, mode, confidence, summary, proposed_action, structured_data, status, created_at, updated_at, deleted_at
FROM captures
WHERE id = $1 AND deleted_at IS NULL
`, id)

	capture, err := scanCapture(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCaptureNotFound, "get capture", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get capture by id: %w", err)
	}
	return &capture, nil
}

// AcceptCapture flips a pending capture to accepted and inserts the derived
// entities in one transaction. The status guard on the UPDATE makes the
// transition single-shot: a second accept or an accept after reject matches
// zero rows and is reported as a conflict.
func (r *CaptureRepository) AcceptCapture(ctx context.Context, capture *domain.Capture, batch domain.EntityBatch) error {
	dataJSON, err := marshalStructuredData(capture.StructuredData)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accept tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
UPDATE captures
SET status = $2, structured_data = $3, updated_at = $4
WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
`, capture.ID, string(domain.CaptureStatusAccepted), dataJSON, capture.UpdatedAt)
	if err != nil {
		return fmt.Errorf("accept capture: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("accept capture rows affected: %w", err)
	}
	if affected == 0 {
		return r.decisionConflict(ctx, tx, "accept capture", capture.ID)
	}

	for i := range batch.Tasks {
		if err := insertTask(ctx, tx, &batch.Tasks[i]); err != nil {
			return err
		}
	}
	for i := range batch.Reflections {
		if err := insertReflection(ctx, tx, &batch.Reflections[i]); err != nil {
			return err
		}
	}
	for i := range batch.Goals {
		if err := insertGoal(ctx, tx, &batch.Goals[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accept tx: %w", err)
	}
	return nil
}

func (r *CaptureRepository) RejectCapture(ctx context.Context, id string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE captures
SET status = $2, updated_at = $3
WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
`, id, string(domain.CaptureStatusRejected), updatedAt)
	if err != nil {
		return fmt.Errorf("reject capture: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject capture rows affected: %w", err)
	}
	if affected == 0 {
		return r.decisionConflict(ctx, r.db, "reject capture", id)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// decisionConflict distinguishes a missing capture from one that was already
// decided, after a guarded UPDATE matched zero rows.
func (r *CaptureRepository) decisionConflict(ctx context.Context, q querier, operation, id string) error {
	var status string
	err := q.QueryRowContext(ctx, `SELECT status FROM captures WHERE id = $1 AND deleted_at IS NULL`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrCaptureNotFound, operation, fmt.Errorf("id=%s", id))
	}
	if err != nil {
		return fmt.Errorf("%s status check: %w", operation, err)
	}
	return domain.WrapError(domain.ErrConflict, operation, fmt.Errorf("capture already %s", status))
}

func insertTask(ctx context.Context, tx *sql.Tx, task *domain.Task) error {
	var recurrence *string
	if task.Recurrence != nil {
		s := string(*task.Recurrence)
		recurrence = &s
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO tasks (
	id, capture_id, title, due_date, priority, project, status, recurrence, recurrence_end, sort_order, created_at, updated_at, deleted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		task.ID, task.CaptureID, task.Title, task.DueDate, string(task.Priority), task.Project,
		string(task.Status), recurrence, task.RecurrenceEnd, task.SortOrder, task.CreatedAt, task.UpdatedAt, task.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func insertReflection(ctx context.Context, tx *sql.Tx, reflection *domain.Reflection) error {
	tagsJSON, err := json.Marshal(reflection.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO reflections (
	id, capture_id, summary, mood, tags, created_at, updated_at, deleted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		reflection.ID, reflection.CaptureID, reflection.Summary, reflection.Mood, tagsJSON,
		reflection.CreatedAt, reflection.UpdatedAt, reflection.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reflection: %w", err)
	}
	return nil
}

func insertGoal(ctx context.Context, tx *sql.Tx, goal *domain.Goal) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO goals (
	id, capture_id, title, timeframe, measurable, status, created_at, updated_at, deleted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		goal.ID, goal.CaptureID, goal.Title, goal.Timeframe, goal.Measurable, string(goal.Status),
		goal.CreatedAt, goal.UpdatedAt, goal.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCapture(row rowScanner) (domain.Capture, error) {
	var capture domain.Capture
	var mode, status string
	var dataRaw []byte

	err := row.Scan(
		&capture.ID,
		&capture.Transcript,
		&mode,
		&capture.Confidence,
		&capture.Summary,
		&capture.ProposedAction,
		&dataRaw,
		&status,
		&capture.CreatedAt,
		&capture.UpdatedAt,
		&capture.DeletedAt,
	)
	if err != nil {
		return domain.Capture{}, err
	}

	if len(dataRaw) > 0 {
		if err := json.Unmarshal(dataRaw, &capture.StructuredData); err != nil {
			return domain.Capture{}, fmt.Errorf("unmarshal structured data: %w", err)
		}
	}
	if capture.StructuredData == nil {
		capture.StructuredData = map[string]any{}
	}
	capture.Mode = domain.Mode(mode)
	capture.Status = domain.CaptureStatus(status)
	return capture, nil
}

func marshalStructuredData(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal structured data: %w", err)
	}
	return raw, nil
}
