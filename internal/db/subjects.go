package db

import (
	"context"
	"fmt"
)

type Subject struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (d *DB) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT id, name, color FROM subjects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Color); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// SubjectExists reports whether an id refers to a seeded subject.
func (d *DB) SubjectExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := d.sql.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM subjects WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query subject: %w", err)
	}
	return exists, nil
}
