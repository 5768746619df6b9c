package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/dash-voice/internal/core/domain"
)

type GoalRepository struct {
	db *sql.DB
}

func NewGoalRepository(db *sql.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func (r *GoalRepository) ListGoals(ctx context.Context) ([]domain.Goal, error) {
	const query = `
SELECT id, capture_id, title, timeframe, measurable, status, created_at, updated_at, deleted_at
FROM goals
WHERE deleted_at IS NULL
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Goal, 0)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}

func (r *GoalRepository) UpdateGoal(ctx context.Context, id string, patch domain.GoalPatch) (*domain.Goal, error) {
	if patch.Empty() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update goal", errors.New("empty patch"))
	}

	set := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Timeframe != nil {
		add("timeframe", *patch.Timeframe)
	}
	if patch.Measurable != nil {
		add("measurable", *patch.Measurable)
	}

	query := fmt.Sprintf(`
UPDATE goals
SET %s
WHERE id = $1 AND deleted_at IS NULL
RETURNING id, capture_id, title, timeframe, measurable, status, created_at, updated_at, deleted_at
`, strings.Join(set, ", "))

	goal, err := scanGoal(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrEntityNotFound, "update goal", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("update goal: %w", err)
	}
	return &goal, nil
}

func scanGoal(row rowScanner) (domain.Goal, error) {
	var goal domain.Goal
	var status string

	err := row.Scan(
		&goal.ID,
		&goal.CaptureID,
		&goal.Title,
		&goal.Timeframe,
		&goal.Measurable,
		&status,
		&goal.CreatedAt,
		&goal.UpdatedAt,
		&goal.DeletedAt,
	)
	if err != nil {
		return domain.Goal{}, err
	}
	goal.Status = domain.GoalStatus(status)
	return goal, nil
}
