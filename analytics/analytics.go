package analytics

import (
	"fmt"
	"math"
	"strings"

	"github.com/adamspd/mcqtest/models"
)

const (
	// TrendSize is how many of the latest results the trend and recent list cover.
	TrendSize = 10
	// UnknownSubject labels results saved without a subject.
	UnknownSubject = "Unknown Subject"
)

// Summarize aggregates a history log given oldest first. An empty log yields
// a summary with NoData set.
func Summarize(history []models.Result) models.AnalyticsSummary {
	summary := models.AnalyticsSummary{
		TotalTests:        len(history),
		PerSubjectAverage: map[string]int{},
		Subjects:          []models.SubjectStat{},
		RecentTrend:       []models.TrendPoint{},
		RecentTests:       []models.RecentTest{},
	}
	if len(history) == 0 {
		summary.NoData = true
		return summary
	}

	type bucket struct {
		sum, n int
	}
	buckets := map[string]*bucket{}
	var order []string

	sum, best := 0, history[0].Percentage
	for _, r := range history {
		sum += r.Percentage
		if r.Percentage > best {
			best = r.Percentage
		}

		subject := subjectLabel(r.Subject)
		b, ok := buckets[subject]
		if !ok {
			b = &bucket{}
			buckets[subject] = b
			order = append(order, subject)
		}
		b.sum += r.Percentage
		b.n++
	}

	summary.AveragePercentage = roundMean(sum, len(history))
	summary.BestPercentage = best

	for _, subject := range order {
		b := buckets[subject]
		avg := roundMean(b.sum, b.n)
		summary.PerSubjectAverage[subject] = avg
		summary.Subjects = append(summary.Subjects, models.SubjectStat{Subject: subject, Tests: b.n, Average: avg})
	}

	start := len(history) - TrendSize
	if start < 0 {
		start = 0
	}
	for i := start; i < len(history); i++ {
		summary.RecentTrend = append(summary.RecentTrend, models.TrendPoint{
			Label:      fmt.Sprintf("Test %d", i+1),
			Percentage: history[i].Percentage,
		})
	}
	for i := len(history) - 1; i >= start; i-- {
		r := history[i]
		summary.RecentTests = append(summary.RecentTests, models.RecentTest{
			Subject:    subjectLabel(r.Subject),
			Chapter:    r.Chapter,
			Score:      r.Score,
			Total:      r.Total,
			Percentage: r.Percentage,
			Date:       r.Date,
		})
	}

	return summary
}

func subjectLabel(s string) string {
	if strings.TrimSpace(s) == "" {
		return UnknownSubject
	}
	return s
}

func roundMean(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
