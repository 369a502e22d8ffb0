package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalytics struct {
	counts    model.OverviewCounts
	points    []model.SessionPoint
	since     time.Time
	top       []model.TopPerformer
	topLimit  int
	recent    []model.RecentSession
	failTests error
}

func (s *stubAnalytics) OverviewCounts(context.Context) (model.OverviewCounts, error) {
	return s.counts, nil
}

func (s *stubAnalytics) SessionsSince(_ context.Context, since time.Time) ([]model.SessionPoint, error) {
	s.since = since
	return s.points, nil
}

func (s *stubAnalytics) TestsByCategory(context.Context) ([]model.CategoryCount, error) {
	if s.failTests != nil {
		return nil, s.failTests
	}
	return []model.CategoryCount{{Category: "Go", Count: 2}}, nil
}

func (s *stubAnalytics) QuestionsByCategory(context.Context) ([]model.CategoryCount, error) {
	return []model.CategoryCount{{Category: "Go", Count: 12}}, nil
}

func (s *stubAnalytics) QuestionsByDifficulty(context.Context) ([]model.DifficultyCount, error) {
	return []model.DifficultyCount{{Difficulty: model.DifficultyEasy, Count: 12}}, nil
}

func (s *stubAnalytics) TopPerformers(_ context.Context, limit int) ([]model.TopPerformer, error) {
	s.topLimit = limit
	return s.top, nil
}

func (s *stubAnalytics) RecentSessions(_ context.Context, limit int) ([]model.RecentSession, error) {
	if len(s.recent) > limit {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}

func TestClampPeriod(t *testing.T) {
	svc := NewAnalyticsService(&stubAnalytics{}, 30, zerolog.Nop())
	assert.Equal(t, 30, svc.ClampPeriod(0))
	assert.Equal(t, 1, svc.ClampPeriod(-4))
	assert.Equal(t, 7, svc.ClampPeriod(7))
	assert.Equal(t, 365, svc.ClampPeriod(1000))
}

func TestSessionsByDay(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)
	day := func(offset int, hour int) time.Time {
		return time.Date(2026, 5, 10+offset, hour, 0, 0, 0, time.UTC)
	}
	score := func(v float64) *float64 { return &v }

	points := []model.SessionPoint{
		{StartedAt: day(0, 9), Score: score(80)},
		{StartedAt: day(0, 10), Score: score(70)},
		{StartedAt: day(0, 11)},
		{StartedAt: day(-2, 23), Score: score(50)},
		{StartedAt: day(-7, 12), Score: score(100)},
	}

	days := sessionsByDay(points, 7, now)
	require.Len(t, days, 7)
	assert.Equal(t, "2026-05-04", days[0].Date)
	assert.Equal(t, "2026-05-10", days[6].Date)

	assert.Equal(t, model.DailySessions{Date: "2026-05-10", Count: 3, AvgScore: 75}, days[6])
	assert.Equal(t, model.DailySessions{Date: "2026-05-08", Count: 1, AvgScore: 50}, days[4])
	assert.Equal(t, model.DailySessions{Date: "2026-05-04", Count: 0, AvgScore: 0}, days[0])

	total := 0
	for _, d := range days {
		total += d.Count
	}
	assert.Equal(t, 4, total)
}

func TestSessionsByDaySingleDay(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)
	days := sessionsByDay([]model.SessionPoint{{StartedAt: now}}, 1, now)
	require.Len(t, days, 1)
	assert.Equal(t, "2026-01-01", days[0].Date)
	assert.Equal(t, 1, days[0].Count)
}

func TestAnalyticsReport(t *testing.T) {
	avg := 71.23456
	store := &stubAnalytics{
		counts: model.OverviewCounts{
			TotalUsers: 4, TotalTests: 2, TotalQuestions: 12, TotalSessions: 9,
			CompletedSessions: 3, PassedSessions: 2, AverageScore: &avg,
		},
		top: []model.TopPerformer{{UserID: uuid.New(), Name: "Ana", AvgScore: 88.888, CompletedTests: 2}},
	}
	for range 12 {
		store.recent = append(store.recent, model.RecentSession{ID: uuid.New()})
	}
	svc := NewAnalyticsService(store, 30, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC) }

	report, err := svc.Report(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 30, report.Period)
	assert.Equal(t, time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC), store.since)
	assert.Len(t, report.Charts.SessionsByDay, 30)
	assert.Equal(t, 71.23, report.Overview.AverageScore)
	assert.Equal(t, 66.67, report.Overview.PassRate)
	assert.Equal(t, 3, report.Overview.CompletedSessions)
	assert.Equal(t, 5, store.topLimit)
	assert.Equal(t, 88.89, report.TopPerformers[0].AvgScore)
	assert.Len(t, report.RecentSessions, 10)
	assert.Len(t, report.Charts.TestsByCategory, 1)
	assert.Len(t, report.Charts.QuestionsByDifficulty, 1)
}

func TestAnalyticsReportEmptyPlatform(t *testing.T) {
	svc := NewAnalyticsService(&stubAnalytics{}, 30, zerolog.Nop())
	report, err := svc.Report(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Overview.AverageScore)
	assert.Equal(t, 0.0, report.Overview.PassRate)
	assert.Len(t, report.Charts.SessionsByDay, 7)
}

func TestAnalyticsReportPropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	svc := NewAnalyticsService(&stubAnalytics{failTests: boom}, 30, zerolog.Nop())

	_, err := svc.Report(context.Background(), 30)
	assert.ErrorIs(t, err, boom)

	_, err = svc.Stats(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestAdminStats(t *testing.T) {
	avg := 64.5
	store := &stubAnalytics{counts: model.OverviewCounts{TotalUsers: 3, TotalSessions: 6, AverageScore: &avg}}
	for range 8 {
		store.recent = append(store.recent, model.RecentSession{ID: uuid.New()})
	}
	svc := NewAnalyticsService(store, 30, zerolog.Nop())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Stats.TotalUsers)
	assert.Equal(t, 6, stats.Stats.TotalSessions)
	assert.Equal(t, 64.5, stats.Stats.AverageScore)
	assert.Len(t, stats.RecentSessions, 5)
	assert.Len(t, stats.TestsByCategory, 1)
}
