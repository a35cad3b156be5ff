package db

import (
	"context"
	"database/sql"
	"fmt"

	"gakushu/internal/stats"
)

const recordColumns = `r.id, r.user_id, r.study_date, COALESCE(r.subject_id, 0),
	COALESCE(s.name, ''), COALESCE(s.color, ''), r.hours, r.minutes, r.memo, r.created_at`

const recordFrom = ` FROM study_records r LEFT JOIN subjects s ON s.id = r.subject_id `

func scanSessions(rows *sql.Rows) ([]stats.Session, error) {
	defer rows.Close()
	var sessions []stats.Session
	for rows.Next() {
		var sess stats.Session
		if err := rows.Scan(&sess.ID, &sess.OwnerID, &sess.StudyDate, &sess.SubjectID,
			&sess.SubjectName, &sess.SubjectColor, &sess.Hours, &sess.Minutes,
			&sess.Memo, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SessionsOn implements stats.Store.
func (d *DB) SessionsOn(ctx context.Context, owner int64, date string) ([]stats.Session, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+recordColumns+recordFrom+
			"WHERE r.user_id = ? AND r.study_date = ? ORDER BY r.created_at",
		owner, date)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return scanSessions(rows)
}

// SessionsBetween implements stats.Store. Both bounds are inclusive.
func (d *DB) SessionsBetween(ctx context.Context, owner int64, start, end string) ([]stats.Session, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+recordColumns+recordFrom+
			"WHERE r.user_id = ? AND r.study_date >= ? AND r.study_date <= ? "+
			"ORDER BY r.study_date, r.created_at",
		owner, start, end)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return scanSessions(rows)
}

// StudyDates implements stats.Store.
func (d *DB) StudyDates(ctx context.Context, owner int64) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT DISTINCT study_date FROM study_records WHERE user_id = ? ORDER BY study_date DESC",
		owner)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}

// RecentSessions implements stats.Store.
func (d *DB) RecentSessions(ctx context.Context, owner int64, limit int) ([]stats.Session, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+recordColumns+recordFrom+
			"WHERE r.user_id = ? ORDER BY r.study_date DESC, r.created_at DESC LIMIT ?",
		owner, limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return scanSessions(rows)
}

// CreateRecord inserts a study record and returns it with subject fields
// joined in.
func (d *DB) CreateRecord(ctx context.Context, owner int64, date string, subjectID int64, hours, minutes int, memo string) (*stats.Session, error) {
	var subject any
	if subjectID != 0 {
		subject = subjectID
	}
	res, err := d.sql.ExecContext(ctx,
		"INSERT INTO study_records (user_id, study_date, subject_id, hours, minutes, memo) VALUES (?, ?, ?, ?, ?, ?)",
		owner, date, subject, hours, minutes, memo)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	id, _ := res.LastInsertId()
	return d.GetRecord(ctx, owner, id)
}

func (d *DB) GetRecord(ctx context.Context, owner, id int64) (*stats.Session, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+recordColumns+recordFrom+"WHERE r.id = ? AND r.user_id = ?", id, owner)
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}
	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrNotFound
	}
	return &sessions[0], nil
}

// UpdateRecord rewrites an existing record. Scoped to the owner so one
// student can never edit another's rows.
func (d *DB) UpdateRecord(ctx context.Context, owner, id int64, date string, subjectID int64, hours, minutes int, memo string) (*stats.Session, error) {
	var subject any
	if subjectID != 0 {
		subject = subjectID
	}
	res, err := d.sql.ExecContext(ctx,
		"UPDATE study_records SET study_date = ?, subject_id = ?, hours = ?, minutes = ?, memo = ? WHERE id = ? AND user_id = ?",
		date, subject, hours, minutes, memo, id, owner)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return d.GetRecord(ctx, owner, id)
}

func (d *DB) DeleteRecord(ctx context.Context, owner, id int64) error {
	res, err := d.sql.ExecContext(ctx,
		"DELETE FROM study_records WHERE id = ? AND user_id = ?", id, owner)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
