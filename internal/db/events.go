package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Event is one calendar entry (test, deadline, school event) for one student.
type Event struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const eventColumns = "id, user_id, title, description, date, type, color, created_at, updated_at"

func scanEvent(row *sql.Row) (*Event, error) {
	var ev Event
	err := row.Scan(&ev.ID, &ev.UserID, &ev.Title, &ev.Description, &ev.Date,
		&ev.Type, &ev.Color, &ev.CreatedAt, &ev.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &ev, nil
}

func (d *DB) ListEvents(ctx context.Context, owner int64) ([]Event, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE user_id = ? ORDER BY date", owner)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Title, &ev.Description, &ev.Date,
			&ev.Type, &ev.Color, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (d *DB) CreateEvent(ctx context.Context, owner int64, title, description, date, typ, color string) (*Event, error) {
	res, err := d.sql.ExecContext(ctx,
		"INSERT INTO events (user_id, title, description, date, type, color) VALUES (?, ?, ?, ?, ?, ?)",
		owner, title, description, date, typ, color)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, _ := res.LastInsertId()
	return scanEvent(d.sql.QueryRow("SELECT "+eventColumns+" FROM events WHERE id = ?", id))
}

func (d *DB) UpdateEvent(ctx context.Context, owner, id int64, title, description, date, typ, color string) (*Event, error) {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, date = ?, type = ?, color = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		title, description, date, typ, color, id, owner)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return scanEvent(d.sql.QueryRow("SELECT "+eventColumns+" FROM events WHERE id = ?", id))
}

func (d *DB) DeleteEvent(ctx context.Context, owner, id int64) error {
	res, err := d.sql.ExecContext(ctx,
		"DELETE FROM events WHERE id = ? AND user_id = ?", id, owner)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
