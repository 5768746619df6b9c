package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/dash-voice/internal/core/domain"
)

type ReflectionRepository struct {
	db *sql.DB
}

func NewReflectionRepository(db *sql.DB) *ReflectionRepository {
	return &ReflectionRepository{db: db}
}

func (r *ReflectionRepository) ListReflections(ctx context.Context) ([]domain.Reflection, error) {
	const query = `
SELECT id, capture_id, summary, mood, tags, created_at, updated_at, deleted_at
FROM reflections
WHERE deleted_at IS NULL
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reflections: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Reflection, 0)
	for rows.Next() {
		var reflection domain.Reflection
		var tagsRaw []byte
		err := rows.Scan(
			&reflection.ID,
			&reflection.CaptureID,
			&reflection.Summary,
			&reflection.Mood,
			&tagsRaw,
			&reflection.CreatedAt,
			&reflection.UpdatedAt,
			&reflection.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reflection: %w", err)
		}
		if len(tagsRaw) > 0 {
			if err := json.Unmarshal(tagsRaw, &reflection.Tags); err != nil {
				return nil, fmt.Errorf("unmarshal tags: %w", err)
			}
		}
		if reflection.Tags == nil {
			reflection.Tags = []string{}
		}
		out = append(out, reflection)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reflections: %w", err)
	}
	return out, nil
}
