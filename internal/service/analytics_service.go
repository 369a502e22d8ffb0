package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
	"golang.org/x/sync/errgroup"
)

// Analytics bounds.
const (
	MaxAnalyticsPeriod   = 365
	topPerformersLimit   = 5
	recentSessionsLimit  = 10
	dashboardRecentLimit = 5
)

// AnalyticsService builds the admin analytics report and dashboard stats.
type AnalyticsService struct {
	store       AnalyticsStore
	defaultDays int
	log         zerolog.Logger
	now         func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(store AnalyticsStore, defaultDays int, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		store:       store,
		defaultDays: defaultDays,
		log:         log.With().Str("component", "analytics_service").Logger(),
		now:         time.Now,
	}
}

// ClampPeriod maps a requested lookback onto [1, 365]; 0 selects the default.
func (s *AnalyticsService) ClampPeriod(period int) int {
	if period == 0 {
		period = s.defaultDays
	}
	return min(max(period, 1), MaxAnalyticsPeriod)
}

// Report assembles the analytics report for the last period days.
// Independent aggregates are queried concurrently.
func (s *AnalyticsService) Report(ctx context.Context, period int) (*model.Analytics, error) {
	period = s.ClampPeriod(period)
	now := s.now().UTC()
	start := dayStart(now).AddDate(0, 0, -(period - 1))

	out := &model.Analytics{Period: period}
	var counts model.OverviewCounts
	var points []model.SessionPoint
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		counts, err = s.store.OverviewCounts(gctx)
		return wrapIf("overview counts", err)
	})
	g.Go(func() (err error) {
		points, err = s.store.SessionsSince(gctx, start)
		return wrapIf("sessions since", err)
	})
	g.Go(func() (err error) {
		out.Charts.TestsByCategory, err = s.store.TestsByCategory(gctx)
		return wrapIf("tests by category", err)
	})
	g.Go(func() (err error) {
		out.Charts.QuestionsByCategory, err = s.store.QuestionsByCategory(gctx)
		return wrapIf("questions by category", err)
	})
	g.Go(func() (err error) {
		out.Charts.QuestionsByDifficulty, err = s.store.QuestionsByDifficulty(gctx)
		return wrapIf("questions by difficulty", err)
	})
	g.Go(func() (err error) {
		out.TopPerformers, err = s.store.TopPerformers(gctx, topPerformersLimit)
		return wrapIf("top performers", err)
	})
	g.Go(func() (err error) {
		out.RecentSessions, err = s.store.RecentSessions(gctx, recentSessionsLimit)
		return wrapIf("recent sessions", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Overview = overviewFrom(counts)
	out.Charts.SessionsByDay = sessionsByDay(points, period, now)
	for i := range out.TopPerformers {
		out.TopPerformers[i].AvgScore = round2(out.TopPerformers[i].AvgScore)
	}
	return out, nil
}

// Stats assembles the admin dashboard numbers.
func (s *AnalyticsService) Stats(ctx context.Context) (*model.AdminStats, error) {
	out := &model.AdminStats{}
	var counts model.OverviewCounts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = s.store.OverviewCounts(gctx)
		return wrapIf("overview counts", err)
	})
	g.Go(func() (err error) {
		out.RecentSessions, err = s.store.RecentSessions(gctx, dashboardRecentLimit)
		return wrapIf("recent sessions", err)
	})
	g.Go(func() (err error) {
		out.TestsByCategory, err = s.store.TestsByCategory(gctx)
		return wrapIf("tests by category", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ov := overviewFrom(counts)
	out.Stats = model.AdminStatsTotals{
		TotalUsers:     ov.TotalUsers,
		TotalTests:     ov.TotalTests,
		TotalQuestions: ov.TotalQuestions,
		TotalSessions:  ov.TotalSessions,
		AverageScore:   ov.AverageScore,
	}
	return out, nil
}

func overviewFrom(c model.OverviewCounts) model.AnalyticsOverview {
	ov := model.AnalyticsOverview{
		TotalUsers:        c.TotalUsers,
		TotalTests:        c.TotalTests,
		TotalQuestions:    c.TotalQuestions,
		TotalSessions:     c.TotalSessions,
		CompletedSessions: c.CompletedSessions,
	}
	if c.AverageScore != nil {
		ov.AverageScore = round2(*c.AverageScore)
	}
	if c.CompletedSessions > 0 {
		ov.PassRate = round2(float64(c.PassedSessions) / float64(c.CompletedSessions) * 100)
	}
	return ov
}

// sessionsByDay buckets points into exactly period UTC days ending today,
// oldest first. Days without sessions report zero; avgScore covers only
// scored sessions of the day.
func sessionsByDay(points []model.SessionPoint, period int, now time.Time) []model.DailySessions {
	today := dayStart(now.UTC())
	first := today.AddDate(0, 0, -(period - 1))

	days := make([]model.DailySessions, period)
	sums := make([]float64, period)
	scored := make([]int, period)
	for i := range days {
		days[i].Date = first.AddDate(0, 0, i).Format(time.DateOnly)
	}

	for _, p := range points {
		idx := int(dayStart(p.StartedAt.UTC()).Sub(first).Hours() / 24)
		if idx < 0 || idx >= period {
			continue
		}
		days[idx].Count++
		if p.Score != nil {
			sums[idx] += *p.Score
			scored[idx]++
		}
	}
	for i := range days {
		if scored[i] > 0 {
			days[i].AvgScore = round2(sums[i] / float64(scored[i]))
		}
	}
	return days
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func wrapIf(op string, err error) error {
	if err == nil {
		return nil
	}
	return storeErr(op, err)
}
