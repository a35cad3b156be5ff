// Package stats computes per-student study statistics: daily and period
// aggregates, subject breakdowns, a 7-day series, streak counting, and the
// combined dashboard snapshot. It only reads; all sessions are created and
// edited elsewhere.
package stats

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultDailyGoalMinutes is used when a student never set a goal.
	DefaultDailyGoalMinutes = 120

	recentLimit = 5
	dateFormat  = "2006-01-02"
)

// Session is one logged block of study time for one subject on one date.
// StudyDate is a plain YYYY-MM-DD calendar date; CreatedAt only breaks ties
// when ordering by recency.
type Session struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"-"`
	StudyDate    string    `json:"studyDate"`
	SubjectID    int64     `json:"subjectId"`
	SubjectName  string    `json:"subjectName,omitempty"`
	SubjectColor string    `json:"subjectColor,omitempty"`
	Hours        int       `json:"hours"`
	Minutes      int       `json:"minutes"`
	Memo         string    `json:"memo,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TotalMinutes is the combined duration of the session.
func (s Session) TotalMinutes() int {
	return s.Hours*60 + s.Minutes
}

// Store is the read interface the engine needs. Dates are YYYY-MM-DD strings
// and all range bounds are inclusive. Implementations must scope every query
// to the given owner.
type Store interface {
	// SessionsOn returns all sessions for one calendar date.
	SessionsOn(ctx context.Context, owner int64, date string) ([]Session, error)
	// SessionsBetween returns all sessions with start <= study_date <= end,
	// ordered by study date then creation time.
	SessionsBetween(ctx context.Context, owner int64, start, end string) ([]Session, error)
	// StudyDates returns the distinct study dates for the owner, newest first.
	StudyDates(ctx context.Context, owner int64) ([]string, error)
	// RecentSessions returns up to limit sessions ordered by
	// (study_date DESC, created_at DESC).
	RecentSessions(ctx context.Context, owner int64, limit int) ([]Session, error)
	// DailyGoalMinutes returns the owner's daily goal, or
	// DefaultDailyGoalMinutes when none was ever set.
	DailyGoalMinutes(ctx context.Context, owner int64) (int, error)
}

// DayStats aggregates one calendar date.
type DayStats struct {
	TotalMinutes int `json:"totalMinutes"`
	RecordCount  int `json:"recordCount"`
	SubjectCount int `json:"subjectCount"`
}

// PeriodStats aggregates an inclusive date range. MostStudiedSubject is the
// subject id with the largest summed duration, nil when the range is empty.
// Ties go to whichever subject was encountered first in store order; the
// tie-break is arbitrary and not part of the contract.
type PeriodStats struct {
	TotalMinutes       int    `json:"totalMinutes"`
	RecordCount        int    `json:"recordCount"`
	StudyDays          int    `json:"studyDays"`
	MostStudiedSubject *int64 `json:"mostStudiedSubject"`
}

// SubjectStats is one row of a per-subject breakdown.
type SubjectStats struct {
	SubjectID    int64  `json:"subjectId"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	TotalMinutes int    `json:"totalMinutes"`
	RecordCount  int    `json:"recordCount"`
}

// SeriesPoint is one day of the weekly chart. DayOfWeek is 0 for Monday
// through 6 for Sunday.
type SeriesPoint struct {
	Date         string `json:"date"`
	DayOfWeek    int    `json:"dayOfWeek"`
	TotalMinutes int    `json:"totalMinutes"`
	IsToday      bool   `json:"isToday"`
}

// Snapshot is the full statistics result for one owner as of one reference
// date.
type Snapshot struct {
	Today            DayStats       `json:"today"`
	Yesterday        DayStats       `json:"yesterday"`
	ThisWeek         PeriodStats    `json:"thisWeek"`
	ThisMonth        PeriodStats    `json:"thisMonth"`
	Subjects         []SubjectStats `json:"subjects"`
	WeeklyData       []SeriesPoint  `json:"weeklyData"`
	StreakDays       int            `json:"streakDays"`
	RecentRecords    []Session      `json:"recentRecords"`
	DailyGoalMinutes int            `json:"dailyGoalMinutes"`
}

// Engine computes statistics from a Store. It holds no mutable state; the
// result is a pure function of (owner, today, store contents).
type Engine struct {
	store Store
}

func New(store Store) *Engine {
	return &Engine{store: store}
}

// WeekStart returns the Monday on or before the given date.
func WeekStart(day time.Time) time.Time {
	wd := int(day.Weekday())
	if wd == 0 { // time.Sunday
		wd = 7
	}
	return day.AddDate(0, 0, -(wd - 1))
}

// MonthStart returns the first day of the given date's month.
func MonthStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
}

func isoDate(day time.Time) string {
	return day.Format(dateFormat)
}

// DayStats aggregates all sessions logged for one calendar date. A date with
// no sessions yields the zero value, never an error. Sessions without a
// subject count toward minutes but not toward the distinct subject count.
func (e *Engine) DayStats(ctx context.Context, owner int64, date time.Time) (DayStats, error) {
	sessions, err := e.store.SessionsOn(ctx, owner, isoDate(date))
	if err != nil {
		return DayStats{}, err
	}

	var st DayStats
	subjects := make(map[int64]struct{})
	for _, s := range sessions {
		st.TotalMinutes += s.TotalMinutes()
		st.RecordCount++
		if s.SubjectID != 0 {
			subjects[s.SubjectID] = struct{}{}
		}
	}
	st.SubjectCount = len(subjects)
	return st, nil
}

// PeriodStats aggregates the inclusive range [start, end].
func (e *Engine) PeriodStats(ctx context.Context, owner int64, start, end time.Time) (PeriodStats, error) {
	sessions, err := e.store.SessionsBetween(ctx, owner, isoDate(start), isoDate(end))
	if err != nil {
		return PeriodStats{}, err
	}

	var st PeriodStats
	days := make(map[string]struct{})
	minutesBySubject := make(map[int64]int)
	var firstSeen []int64
	for _, s := range sessions {
		st.TotalMinutes += s.TotalMinutes()
		st.RecordCount++
		days[s.StudyDate] = struct{}{}
		if s.SubjectID != 0 {
			if _, ok := minutesBySubject[s.SubjectID]; !ok {
				firstSeen = append(firstSeen, s.SubjectID)
			}
			minutesBySubject[s.SubjectID] += s.TotalMinutes()
		}
	}
	st.StudyDays = len(days)

	best := 0
	for _, id := range firstSeen {
		if minutesBySubject[id] > best {
			best = minutesBySubject[id]
			top := id
			st.MostStudiedSubject = &top
		}
	}
	return st, nil
}

// SubjectBreakdown returns one entry per subject with at least one session in
// the inclusive range, sorted by total minutes descending.
func (e *Engine) SubjectBreakdown(ctx context.Context, owner int64, start, end time.Time) ([]SubjectStats, error) {
	sessions, err := e.store.SessionsBetween(ctx, owner, isoDate(start), isoDate(end))
	if err != nil {
		return nil, err
	}

	index := make(map[int64]int)
	breakdown := []SubjectStats{}
	for _, s := range sessions {
		if s.SubjectID == 0 {
			continue
		}
		i, ok := index[s.SubjectID]
		if !ok {
			i = len(breakdown)
			index[s.SubjectID] = i
			breakdown = append(breakdown, SubjectStats{
				SubjectID: s.SubjectID,
				Name:      s.SubjectName,
				Color:     s.SubjectColor,
			})
		}
		breakdown[i].TotalMinutes += s.TotalMinutes()
		breakdown[i].RecordCount++
	}

	// Insertion sort keeps equal totals in first-encountered order.
	for i := 1; i < len(breakdown); i++ {
		for j := i; j > 0 && breakdown[j].TotalMinutes > breakdown[j-1].TotalMinutes; j-- {
			breakdown[j], breakdown[j-1] = breakdown[j-1], breakdown[j]
		}
	}
	return breakdown, nil
}

// WeeklySeries returns exactly 7 points covering weekStart through
// weekStart+6. IsToday compares against the supplied reference date, which
// must be the same value used for every other aggregation in the request.
func (e *Engine) WeeklySeries(ctx context.Context, owner int64, weekStart, today time.Time) ([]SeriesPoint, error) {
	weekEnd := weekStart.AddDate(0, 0, 6)
	sessions, err := e.store.SessionsBetween(ctx, owner, isoDate(weekStart), isoDate(weekEnd))
	if err != nil {
		return nil, err
	}

	minutesByDate := make(map[string]int)
	for _, s := range sessions {
		minutesByDate[s.StudyDate] += s.TotalMinutes()
	}

	todayStr := isoDate(today)
	series := make([]SeriesPoint, 7)
	for i := range series {
		date := isoDate(weekStart.AddDate(0, 0, i))
		series[i] = SeriesPoint{
			Date:         date,
			DayOfWeek:    i,
			TotalMinutes: minutesByDate[date],
			IsToday:      date == todayStr,
		}
	}
	return series, nil
}

// Streak counts consecutive calendar days with at least one session, walking
// backward from today. A day without sessions breaks the streak, except today
// itself: the current day is still in progress, so a streak ending yesterday
// survives until midnight.
func (e *Engine) Streak(ctx context.Context, owner int64, today time.Time) (int, error) {
	dates, err := e.store.StudyDates(ctx, owner)
	if err != nil {
		return 0, err
	}
	if len(dates) == 0 {
		return 0, nil
	}

	studied := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		studied[d] = struct{}{}
	}

	start := today
	if _, ok := studied[isoDate(start)]; !ok {
		start = today.AddDate(0, 0, -1)
		if _, ok := studied[isoDate(start)]; !ok {
			return 0, nil
		}
	}

	streak := 0
	for d := start; ; d = d.AddDate(0, 0, -1) {
		if _, ok := studied[isoDate(d)]; !ok {
			break
		}
		streak++
	}
	return streak, nil
}

// RecentRecords returns the most recent sessions, newest study date first,
// creation time breaking ties.
func (e *Engine) RecentRecords(ctx context.Context, owner int64, limit int) ([]Session, error) {
	sessions, err := e.store.RecentSessions(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, nil
}

// Snapshot assembles the full dashboard statistics for one owner as of the
// given reference date. The date must be computed once, in the caller's
// timezone, and is threaded through every sub-aggregation; nothing here
// consults the wall clock. Sub-aggregations run concurrently and the first
// store failure fails the whole snapshot.
func (e *Engine) Snapshot(ctx context.Context, owner int64, today time.Time) (*Snapshot, error) {
	yesterday := today.AddDate(0, 0, -1)
	weekStart := WeekStart(today)
	monthStart := MonthStart(today)

	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.Today, err = e.DayStats(ctx, owner, today)
		return err
	})
	g.Go(func() (err error) {
		snap.Yesterday, err = e.DayStats(ctx, owner, yesterday)
		return err
	})
	g.Go(func() (err error) {
		snap.ThisWeek, err = e.PeriodStats(ctx, owner, weekStart, today)
		return err
	})
	g.Go(func() (err error) {
		snap.ThisMonth, err = e.PeriodStats(ctx, owner, monthStart, today)
		return err
	})
	g.Go(func() (err error) {
		snap.Subjects, err = e.SubjectBreakdown(ctx, owner, weekStart, today)
		return err
	})
	g.Go(func() (err error) {
		snap.WeeklyData, err = e.WeeklySeries(ctx, owner, weekStart, today)
		return err
	})
	g.Go(func() (err error) {
		snap.StreakDays, err = e.Streak(ctx, owner, today)
		return err
	})
	g.Go(func() (err error) {
		snap.RecentRecords, err = e.RecentRecords(ctx, owner, recentLimit)
		return err
	})
	g.Go(func() (err error) {
		snap.DailyGoalMinutes, err = e.store.DailyGoalMinutes(ctx, owner)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}
