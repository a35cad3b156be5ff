package stats

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	sessions []Session
	goal     int
	err      error
}

func (f *fakeStore) SessionsOn(_ context.Context, owner int64, date string) ([]Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Session
	for _, s := range f.sessions {
		if s.OwnerID == owner && s.StudyDate == date {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) SessionsBetween(_ context.Context, owner int64, start, end string) ([]Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Session
	for _, s := range f.sessions {
		if s.OwnerID == owner && s.StudyDate >= start && s.StudyDate <= end {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StudyDate != out[j].StudyDate {
			return out[i].StudyDate < out[j].StudyDate
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeStore) StudyDates(_ context.Context, owner int64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	seen := make(map[string]struct{})
	var dates []string
	for _, s := range f.sessions {
		if s.OwnerID != owner {
			continue
		}
		if _, ok := seen[s.StudyDate]; !ok {
			seen[s.StudyDate] = struct{}{}
			dates = append(dates, s.StudyDate)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (f *fakeStore) RecentSessions(_ context.Context, owner int64, limit int) ([]Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Session
	for _, s := range f.sessions {
		if s.OwnerID == owner {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StudyDate != out[j].StudyDate {
			return out[i].StudyDate > out[j].StudyDate
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) DailyGoalMinutes(_ context.Context, owner int64) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.goal == 0 {
		return DefaultDailyGoalMinutes, nil
	}
	return f.goal, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func session(owner int64, date string, subject int64, hours, minutes int) Session {
	return Session{OwnerID: owner, StudyDate: date, SubjectID: subject, Hours: hours, Minutes: minutes}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name     string
		today    time.Time
		expected string
	}{
		{name: "monday is its own week start", today: day(2024, 6, 3), expected: "2024-06-03"},
		{name: "tuesday", today: day(2024, 6, 4), expected: "2024-06-03"},
		{name: "saturday", today: day(2024, 6, 8), expected: "2024-06-03"},
		{name: "sunday belongs to the preceding monday", today: day(2024, 6, 9), expected: "2024-06-03"},
		{name: "week spanning a month boundary", today: day(2024, 5, 1), expected: "2024-04-29"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekStart(tt.today).Format("2006-01-02")
			if got != tt.expected {
				t.Fatalf("WeekStart(%s) = %s, want %s", tt.today.Format("2006-01-02"), got, tt.expected)
			}
		})
	}
}

func TestMonthStart(t *testing.T) {
	got := MonthStart(day(2024, 6, 17)).Format("2006-01-02")
	if got != "2024-06-01" {
		t.Fatalf("MonthStart = %s, want 2024-06-01", got)
	}
}

func TestDayStats(t *testing.T) {
	store := &fakeStore{sessions: []Session{
		session(1, "2024-06-03", 2, 1, 30),
		session(1, "2024-06-03", 2, 0, 45),
		session(1, "2024-06-03", 3, 0, 20),
		session(1, "2024-06-03", 0, 0, 10), // no subject: minutes count, subject does not
		session(1, "2024-06-04", 2, 2, 0),  // other day
		session(2, "2024-06-03", 2, 5, 0),  // other owner
	}}
	e := New(store)

	st, err := e.DayStats(context.Background(), 1, day(2024, 6, 3))
	if err != nil {
		t.Fatalf("DayStats: %v", err)
	}
	if st.TotalMinutes != 90+45+20+10 {
		t.Errorf("TotalMinutes = %d, want %d", st.TotalMinutes, 165)
	}
	if st.RecordCount != 4 {
		t.Errorf("RecordCount = %d, want 4", st.RecordCount)
	}
	if st.SubjectCount != 2 {
		t.Errorf("SubjectCount = %d, want 2", st.SubjectCount)
	}
}

func TestDayStatsEmpty(t *testing.T) {
	e := New(&fakeStore{})
	st, err := e.DayStats(context.Background(), 1, day(2024, 6, 3))
	if err != nil {
		t.Fatalf("DayStats: %v", err)
	}
	if st != (DayStats{}) {
		t.Fatalf("expected zero stats for empty store, got %+v", st)
	}
}

func TestPeriodStats(t *testing.T) {
	store := &fakeStore{sessions: []Session{
		session(1, "2024-06-03", 2, 1, 30), // Math 90
		session(1, "2024-06-04", 3, 0, 45), // English 45
		session(1, "2024-06-04", 2, 0, 30), // Math 120 total
		session(1, "2024-06-10", 3, 4, 0),  // outside range
	}}
	e := New(store)

	st, err := e.PeriodStats(context.Background(), 1, day(2024, 6, 3), day(2024, 6, 9))
	if err != nil {
		t.Fatalf("PeriodStats: %v", err)
	}
	if st.TotalMinutes != 165 {
		t.Errorf("TotalMinutes = %d, want 165", st.TotalMinutes)
	}
	if st.RecordCount != 3 {
		t.Errorf("RecordCount = %d, want 3", st.RecordCount)
	}
	if st.StudyDays != 2 {
		t.Errorf("StudyDays = %d, want 2", st.StudyDays)
	}
	if st.MostStudiedSubject == nil || *st.MostStudiedSubject != 2 {
		t.Errorf("MostStudiedSubject = %v, want 2", st.MostStudiedSubject)
	}
}

func TestPeriodStatsEmptyRange(t *testing.T) {
	e := New(&fakeStore{})
	st, err := e.PeriodStats(context.Background(), 1, day(2024, 6, 3), day(2024, 6, 9))
	if err != nil {
		t.Fatalf("PeriodStats: %v", err)
	}
	if st.MostStudiedSubject != nil {
		t.Errorf("MostStudiedSubject = %v, want nil", *st.MostStudiedSubject)
	}
	if st.TotalMinutes != 0 || st.RecordCount != 0 || st.StudyDays != 0 {
		t.Errorf("expected zero stats, got %+v", st)
	}
}

func TestPeriodStatsTieBreak(t *testing.T) {
	// Equal totals: the subject encountered first in store order wins.
	store := &fakeStore{sessions: []Session{
		session(1, "2024-06-03", 5, 1, 0),
		session(1, "2024-06-04", 7, 1, 0),
	}}
	e := New(store)

	st, err := e.PeriodStats(context.Background(), 1, day(2024, 6, 3), day(2024, 6, 9))
	if err != nil {
		t.Fatalf("PeriodStats: %v", err)
	}
	if st.MostStudiedSubject == nil || *st.MostStudiedSubject != 5 {
		t.Errorf("MostStudiedSubject = %v, want 5 (first encountered)", st.MostStudiedSubject)
	}
}

func TestSubjectBreakdown(t *testing.T) {
	store := &fakeStore{sessions: []Session{
		{OwnerID: 1, StudyDate: "2024-06-03", SubjectID: 2, SubjectName: "数学", SubjectColor: "#3498DB", Hours: 0, Minutes: 30},
		{OwnerID: 1, StudyDate: "2024-06-04", SubjectID: 3, SubjectName: "英語", SubjectColor: "#2ECC71", Hours: 2, Minutes: 0},
		{OwnerID: 1, StudyDate: "2024-06-05", SubjectID: 2, SubjectName: "数学", SubjectColor: "#3498DB", Hours: 0, Minutes: 40},
		{OwnerID: 1, StudyDate: "2024-06-05", SubjectID: 0, Hours: 1, Minutes: 0}, // no subject, excluded
	}}
	e := New(store)

	breakdown, err := e.SubjectBreakdown(context.Background(), 1, day(2024, 6, 3), day(2024, 6, 9))
	if err != nil {
		t.Fatalf("SubjectBreakdown: %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("len(breakdown) = %d, want 2", len(breakdown))
	}
	if breakdown[0].SubjectID != 3 || breakdown[0].TotalMinutes != 120 {
		t.Errorf("breakdown[0] = %+v, want subject 3 with 120 minutes", breakdown[0])
	}
	if breakdown[1].SubjectID != 2 || breakdown[1].TotalMinutes != 70 || breakdown[1].RecordCount != 2 {
		t.Errorf("breakdown[1] = %+v, want subject 2 with 70 minutes over 2 records", breakdown[1])
	}
}

func TestWeeklySeries(t *testing.T) {
	store := &fakeStore{sessions: []Session{
		session(1, "2024-06-03", 2, 1, 30),
		session(1, "2024-06-05", 3, 0, 45),
	}}
	e := New(store)
	weekStart := day(2024, 6, 3)

	series, err := e.WeeklySeries(context.Background(), 1, weekStart, day(2024, 6, 5))
	if err != nil {
		t.Fatalf("WeeklySeries: %v", err)
	}
	if len(series) != 7 {
		t.Fatalf("len(series) = %d, want 7", len(series))
	}

	todayCount := 0
	for i, p := range series {
		wantDate := weekStart.AddDate(0, 0, i).Format("2006-01-02")
		if p.Date != wantDate {
			t.Errorf("series[%d].Date = %s, want %s", i, p.Date, wantDate)
		}
		if p.DayOfWeek != i {
			t.Errorf("series[%d].DayOfWeek = %d, want %d", i, p.DayOfWeek, i)
		}
		if p.IsToday {
			todayCount++
			if p.Date != "2024-06-05" {
				t.Errorf("IsToday set on %s", p.Date)
			}
		}
	}
	if todayCount != 1 {
		t.Errorf("IsToday count = %d, want 1", todayCount)
	}
	if series[0].TotalMinutes != 90 || series[2].TotalMinutes != 45 || series[1].TotalMinutes != 0 {
		t.Errorf("unexpected minutes: %+v", series)
	}
}

func TestWeeklySeriesTodayOutsideWeek(t *testing.T) {
	e := New(&fakeStore{})
	series, err := e.WeeklySeries(context.Background(), 1, day(2024, 6, 3), day(2024, 6, 12))
	if err != nil {
		t.Fatalf("WeeklySeries: %v", err)
	}
	for _, p := range series {
		if p.IsToday {
			t.Errorf("IsToday set on %s with today outside the week", p.Date)
		}
	}
}

func TestStreak(t *testing.T) {
	today := day(2024, 6, 5)
	tests := []struct {
		name     string
		dates    []string
		expected int
	}{
		{
			name:     "three consecutive days ending today",
			dates:    []string{"2024-06-05", "2024-06-04", "2024-06-03"},
			expected: 3,
		},
		{
			name:     "today not yet logged does not break the streak",
			dates:    []string{"2024-06-04", "2024-06-03"},
			expected: 2,
		},
		{
			name:     "gap at yesterday",
			dates:    []string{"2024-06-03"},
			expected: 0,
		},
		{
			name:     "no sessions",
			dates:    nil,
			expected: 0,
		},
		{
			name:     "gap in the middle stops the walk",
			dates:    []string{"2024-06-05", "2024-06-04", "2024-06-02", "2024-06-01"},
			expected: 2,
		},
		{
			name:     "only today",
			dates:    []string{"2024-06-05"},
			expected: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			for _, d := range tt.dates {
				store.sessions = append(store.sessions, session(1, d, 2, 0, 30))
			}
			e := New(store)

			streak, err := e.Streak(context.Background(), 1, today)
			if err != nil {
				t.Fatalf("Streak: %v", err)
			}
			if streak != tt.expected {
				t.Fatalf("Streak = %d, want %d", streak, tt.expected)
			}
		})
	}
}

func TestSnapshotEmpty(t *testing.T) {
	e := New(&fakeStore{})

	snap, err := e.Snapshot(context.Background(), 1, day(2024, 6, 5))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Today != (DayStats{}) || snap.Yesterday != (DayStats{}) {
		t.Errorf("expected zero day stats, got today=%+v yesterday=%+v", snap.Today, snap.Yesterday)
	}
	if snap.ThisWeek.TotalMinutes != 0 || snap.ThisMonth.TotalMinutes != 0 {
		t.Errorf("expected zero period stats")
	}
	if len(snap.Subjects) != 0 {
		t.Errorf("Subjects = %v, want empty", snap.Subjects)
	}
	if len(snap.WeeklyData) != 7 {
		t.Fatalf("len(WeeklyData) = %d, want 7", len(snap.WeeklyData))
	}
	for _, p := range snap.WeeklyData {
		if p.TotalMinutes != 0 {
			t.Errorf("WeeklyData %s minutes = %d, want 0", p.Date, p.TotalMinutes)
		}
	}
	if snap.StreakDays != 0 {
		t.Errorf("StreakDays = %d, want 0", snap.StreakDays)
	}
	if len(snap.RecentRecords) != 0 {
		t.Errorf("RecentRecords = %v, want empty", snap.RecentRecords)
	}
	if snap.DailyGoalMinutes != DefaultDailyGoalMinutes {
		t.Errorf("DailyGoalMinutes = %d, want %d", snap.DailyGoalMinutes, DefaultDailyGoalMinutes)
	}
}

// Monday 2024-06-03: 1h30m Math. Tuesday 2024-06-04: 45m English.
// Reference date is the Tuesday.
func TestSnapshotScenario(t *testing.T) {
	store := &fakeStore{sessions: []Session{
		{OwnerID: 1, StudyDate: "2024-06-03", SubjectID: 2, SubjectName: "数学", Hours: 1, Minutes: 30},
		{OwnerID: 1, StudyDate: "2024-06-04", SubjectID: 3, SubjectName: "英語", Hours: 0, Minutes: 45},
	}}
	e := New(store)
	today := day(2024, 6, 4)

	snap, err := e.Snapshot(context.Background(), 1, today)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if snap.ThisWeek.TotalMinutes != 135 {
		t.Errorf("ThisWeek.TotalMinutes = %d, want 135", snap.ThisWeek.TotalMinutes)
	}
	if snap.ThisWeek.StudyDays != 2 {
		t.Errorf("ThisWeek.StudyDays = %d, want 2", snap.ThisWeek.StudyDays)
	}
	if snap.ThisWeek.MostStudiedSubject == nil || *snap.ThisWeek.MostStudiedSubject != 2 {
		t.Errorf("MostStudiedSubject = %v, want 2", snap.ThisWeek.MostStudiedSubject)
	}
	if snap.WeeklyData[0].TotalMinutes != 90 {
		t.Errorf("WeeklyData[0] = %d, want 90", snap.WeeklyData[0].TotalMinutes)
	}
	if snap.WeeklyData[1].TotalMinutes != 45 {
		t.Errorf("WeeklyData[1] = %d, want 45", snap.WeeklyData[1].TotalMinutes)
	}
	for i := 2; i < 7; i++ {
		if snap.WeeklyData[i].TotalMinutes != 0 {
			t.Errorf("WeeklyData[%d] = %d, want 0", i, snap.WeeklyData[i].TotalMinutes)
		}
	}
	if snap.StreakDays != 2 {
		t.Errorf("StreakDays = %d, want 2", snap.StreakDays)
	}
	if snap.Today.TotalMinutes != 45 || snap.Yesterday.TotalMinutes != 90 {
		t.Errorf("today=%d yesterday=%d, want 45/90", snap.Today.TotalMinutes, snap.Yesterday.TotalMinutes)
	}
	if len(snap.RecentRecords) != 2 || snap.RecentRecords[0].StudyDate != "2024-06-04" {
		t.Errorf("RecentRecords = %+v, want newest first", snap.RecentRecords)
	}
}

func TestSnapshotIdempotent(t *testing.T) {
	store := &fakeStore{sessions: []Session{
		session(1, "2024-06-03", 2, 1, 30),
		session(1, "2024-06-04", 3, 0, 45),
	}}
	e := New(store)
	today := day(2024, 6, 4)

	first, err := e.Snapshot(context.Background(), 1, today)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	second, err := e.Snapshot(context.Background(), 1, today)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(firstJSON) != string(secondJSON) {
		t.Errorf("snapshots differ:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestSnapshotStoreFailure(t *testing.T) {
	storeErr := errors.New("store unavailable")
	e := New(&fakeStore{err: storeErr})

	_, err := e.Snapshot(context.Background(), 1, day(2024, 6, 5))
	if !errors.Is(err, storeErr) {
		t.Fatalf("Snapshot error = %v, want %v", err, storeErr)
	}
}
