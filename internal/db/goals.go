package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gakushu/internal/stats"
)

const (
	MinDailyGoalMinutes = 15
	MaxDailyGoalMinutes = 720
)

// ErrInvalidGoal is returned for goal writes outside [15, 720] minutes.
var ErrInvalidGoal = errors.New("daily goal must be between 15 and 720 minutes")

// DailyGoalMinutes implements stats.Store. A student with no stored goal gets
// the default; absence is not an error.
func (d *DB) DailyGoalMinutes(ctx context.Context, owner int64) (int, error) {
	var minutes int
	err := d.sql.QueryRowContext(ctx,
		"SELECT daily_goal_minutes FROM user_goals WHERE user_id = ?", owner).Scan(&minutes)
	if err == sql.ErrNoRows {
		return stats.DefaultDailyGoalMinutes, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query goal: %w", err)
	}
	return minutes, nil
}

// SetDailyGoal validates and upserts the goal for one student.
func (d *DB) SetDailyGoal(ctx context.Context, owner int64, minutes int) error {
	if minutes < MinDailyGoalMinutes || minutes > MaxDailyGoalMinutes {
		return ErrInvalidGoal
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO user_goals (user_id, daily_goal_minutes) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			daily_goal_minutes = excluded.daily_goal_minutes,
			updated_at = CURRENT_TIMESTAMP`,
		owner, minutes)
	if err != nil {
		return fmt.Errorf("upsert goal: %w", err)
	}
	return nil
}
