// Package analytics builds listening reports from the stored streaming history.
package analytics

import (
	"context"
	"fmt"

	"github.com/antigravity/go-spotify-wrapped/internal/db"
)

const (
	// DefaultDays is the window for the daily listening series.
	DefaultDays = 30

	// TopArtistLimit is how many artists the report includes.
	TopArtistLimit = 10

	msPerHour = 3_600_000
)

// HistoryStats is the subset of the history repository the service reads.
type HistoryStats interface {
	DailyStats(ctx context.Context, userID string, days int) ([]db.DailyStat, error)
	HourlyStats(ctx context.Context, userID string) ([]db.HourlyStat, error)
	TopArtists(ctx context.Context, userID string, limit int) ([]db.ArtistStat, error)
	Totals(ctx context.Context, userID string) (*db.HistoryTotals, error)
}

// DailyPoint is one day in the report's listening series.
type DailyPoint struct {
	Day     string `json:"day"` // YYYY-MM-DD
	Minutes int    `json:"minutes"`
	Plays   int    `json:"plays"`
}

// HourlyPoint is one hour-of-day bucket in the report.
type HourlyPoint struct {
	Hour  int `json:"hour"`
	Plays int `json:"plays"`
}

// ArtistPoint is one artist entry in the report.
type ArtistPoint struct {
	Name    string `json:"name"`
	Plays   int    `json:"plays"`
	Minutes int    `json:"minutes"`
}

// Summary holds the report's headline totals.
type Summary struct {
	TotalHours    int `json:"totalHours"`
	TotalTracks   int `json:"totalTracks"`
	AveragePerDay int `json:"averagePerDay"` // hours per day over the window
}

// Report is the full analytics payload.
type Report struct {
	Daily      []DailyPoint  `json:"daily"`
	Hourly     []HourlyPoint `json:"hourly"`
	TopArtists []ArtistPoint `json:"topArtists"`
	Summary    Summary       `json:"summary"`
}

// Service assembles analytics reports.
type Service struct {
	stats HistoryStats
}

// New creates an analytics service over the given history stats source.
func New(stats HistoryStats) *Service {
	return &Service{stats: stats}
}

// Report builds the analytics report for a user.
func (s *Service) Report(ctx context.Context, userID string) (*Report, error) {
	daily, err := s.stats.DailyStats(ctx, userID, DefaultDays)
	if err != nil {
		return nil, fmt.Errorf("loading daily stats: %w", err)
	}
	hourly, err := s.stats.HourlyStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading hourly stats: %w", err)
	}
	artists, err := s.stats.TopArtists(ctx, userID, TopArtistLimit)
	if err != nil {
		return nil, fmt.Errorf("loading top artists: %w", err)
	}
	totals, err := s.stats.Totals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading totals: %w", err)
	}

	report := &Report{
		Daily:      make([]DailyPoint, len(daily)),
		Hourly:     make([]HourlyPoint, len(hourly)),
		TopArtists: make([]ArtistPoint, len(artists)),
		Summary:    summarize(totals),
	}
	for i, d := range daily {
		report.Daily[i] = DailyPoint{Day: d.Day.Format("2006-01-02"), Minutes: d.Minutes, Plays: d.Plays}
	}
	for i, h := range hourly {
		report.Hourly[i] = HourlyPoint{Hour: h.Hour, Plays: h.Plays}
	}
	for i, a := range artists {
		report.TopArtists[i] = ArtistPoint{Name: a.ArtistName, Plays: a.Plays, Minutes: a.Minutes}
	}
	return report, nil
}

func summarize(totals *db.HistoryTotals) Summary {
	totalHours := int((totals.TotalMs + msPerHour/2) / msPerHour)
	return Summary{
		TotalHours:    totalHours,
		TotalTracks:   totals.TotalTracks,
		AveragePerDay: (totalHours + DefaultDays/2) / DefaultDays,
	}
}
