package model

import (
	"time"

	"github.com/google/uuid"
)

// AnalyticsOverview holds platform-wide totals.
type AnalyticsOverview struct {
	TotalUsers        int     `json:"totalUsers"`
	TotalTests        int     `json:"totalTests"`
	TotalQuestions    int     `json:"totalQuestions"`
	TotalSessions     int     `json:"totalSessions"`
	CompletedSessions int     `json:"completedSessions"`
	AverageScore      float64 `json:"averageScore"`
	PassRate          float64 `json:"passRate"`
}

// OverviewCounts is the raw aggregate row behind AnalyticsOverview.
type OverviewCounts struct {
	TotalUsers        int
	TotalTests        int
	TotalQuestions    int
	TotalSessions     int
	CompletedSessions int
	PassedSessions    int
	AverageScore      *float64
}

// DailySessions is one day of the sessions histogram.
type DailySessions struct {
	Date     string  `json:"date"`
	Count    int     `json:"count"`
	AvgScore float64 `json:"avgScore"`
}

// SessionPoint is the minimal session projection used to build DailySessions.
type SessionPoint struct {
	StartedAt time.Time
	Score     *float64
}

// CategoryCount is a group-by-category row.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// DifficultyCount is a group-by-difficulty row.
type DifficultyCount struct {
	Difficulty Difficulty `json:"difficulty"`
	Count      int        `json:"count"`
}

// TopPerformer ranks a user by mean score over completed sessions.
type TopPerformer struct {
	UserID         uuid.UUID `json:"userId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	AvgScore       float64   `json:"avgScore"`
	CompletedTests int       `json:"completedTests"`
}

// SessionUserInfo is the user projection in recent session listings.
type SessionUserInfo struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// RecentSession is a row of the latest sessions across all users.
type RecentSession struct {
	ID          uuid.UUID       `json:"id"`
	Status      SessionStatus   `json:"status"`
	Score       *float64        `json:"score"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt"`
	User        SessionUserInfo `json:"user"`
	Test        SessionTestInfo `json:"test"`
}

// AnalyticsCharts groups the chart series of the analytics report.
type AnalyticsCharts struct {
	SessionsByDay         []DailySessions   `json:"sessionsByDay"`
	TestsByCategory       []CategoryCount   `json:"testsByCategory"`
	QuestionsByCategory   []CategoryCount   `json:"questionsByCategory"`
	QuestionsByDifficulty []DifficultyCount `json:"questionsByDifficulty"`
}

// Analytics is the full admin analytics report.
type Analytics struct {
	Period         int               `json:"period"`
	Overview       AnalyticsOverview `json:"overview"`
	Charts         AnalyticsCharts   `json:"charts"`
	TopPerformers  []TopPerformer    `json:"topPerformers"`
	RecentSessions []RecentSession   `json:"recentSessions"`
}

// AdminStatsTotals are the headline numbers of the admin dashboard.
type AdminStatsTotals struct {
	TotalUsers     int     `json:"totalUsers"`
	TotalTests     int     `json:"totalTests"`
	TotalQuestions int     `json:"totalQuestions"`
	TotalSessions  int     `json:"totalSessions"`
	AverageScore   float64 `json:"averageScore"`
}

// AdminStats is the admin dashboard payload.
type AdminStats struct {
	Stats           AdminStatsTotals `json:"stats"`
	RecentSessions  []RecentSession  `json:"recentSessions"`
	TestsByCategory []CategoryCount  `json:"testsByCategory"`
}
