package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/session"
)

const (
	dateLayout  = "02/01/2006, 15:04:05"
	notAnswered = "Not Answered"
	unknownUser = "Unknown"
)

// FormatClock renders seconds as mm:ss. Minutes are not capped at 59.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Filename is the suggested download name for an exported result.
func Filename(r models.Result, ext string) string {
	return fmt.Sprintf("mcq_test_result_%d.%s", r.Date.UnixMilli(), ext)
}

func summaryRows(r models.Result) [][]string {
	user := r.UserName
	if user == "" {
		user = unknownUser
	}
	return [][]string{
		{"User Name", user},
		{"Subject", r.Subject},
		{"Chapter", r.Chapter},
		{"Score", fmt.Sprintf("%d/%d", r.Score, r.Total)},
		{"Percentage", fmt.Sprintf("%d%%", r.Percentage)},
		{"Time Taken", FormatClock(r.TimeTakenSeconds)},
		{"Total Time Limit", FormatClock(r.TotalTimeLimitSeconds)},
		{"Date", r.Date.Format(dateLayout)},
	}
}

func detailRow(item models.ReviewItem) []string {
	answer := item.UserAnswer
	if !item.Answered {
		answer = notAnswered
	}
	status := "Incorrect"
	if item.IsCorrect {
		status = "Correct"
	}
	return []string{item.Question, answer, item.Correct, status}
}

// WriteCSV writes a summary block followed by one row per question.
func WriteCSV(w io.Writer, r models.Result) error {
	cw := csv.NewWriter(w)

	records := [][]string{{"Test Results"}}
	records = append(records, summaryRows(r)...)
	records = append(records,
		[]string{""},
		[]string{"Detailed Results"},
		[]string{"Question", "Your Answer", "Correct Answer", "Status"},
	)
	for _, item := range session.Review(r) {
		records = append(records, detailRow(item))
	}

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
