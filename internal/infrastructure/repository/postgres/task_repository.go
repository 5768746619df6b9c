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

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) ListTasks(ctx context.Context) ([]domain.Task, error) {
	const query = `
SELECT id, capture_id, title, due_date, priority, project, status, recurrence, recurrence_end, sort_order, created_at, updated_at, deleted_at
FROM tasks
WHERE deleted_at IS NULL
ORDER BY sort_order ASC, created_at DESC
`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

func (r *TaskRepository) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if patch.Empty() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update task", errors.New("empty patch"))
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
	if patch.Priority != nil {
		add("priority", string(*patch.Priority))
	}
	if patch.DueDate != nil {
		add("due_date", *patch.DueDate)
	}
	if patch.Project != nil {
		add("project", *patch.Project)
	}
	if patch.SortOrder != nil {
		add("sort_order", *patch.SortOrder)
	}

	query := fmt.Sprintf(`
UPDATE tasks
SET %s
WHERE id = $1 AND deleted_at IS NULL
RETURNING id, capture_id, title, due_date, priority, project, status, recurrence, recurrence_end, sort_order, created_at, updated_at, deleted_at
`, strings.Join(set, ", "))

	task, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrEntityNotFound, "update task", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &task, nil
}

func scanTask(row rowScanner) (domain.Task, error) {
	var task domain.Task
	var priority, status string
	var recurrence sql.NullString

	err := row.Scan(
		&task.ID,
		&task.CaptureID,
		&task.Title,
		&task.DueDate,
		&priority,
		&task.Project,
		&status,
		&recurrence,
		&task.RecurrenceEnd,
		&task.SortOrder,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.DeletedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}

	task.Priority = domain.TaskPriority(priority)
	task.Status = domain.TaskStatus(status)
	if recurrence.Valid {
		r := domain.Recurrence(recurrence.String)
		task.Recurrence = &r
	}
	return task, nil
}
