package session

import (
	"math"
	"strings"
	"time"

	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/utils"
)

// Meta carries the labels copied into a result.
type Meta struct {
	Subject  string
	Chapter  string
	UserName string
}

// Score computes the result of a submitted session. It depends only on its
// arguments: the same snapshot and meta always give the same result.
func Score(snap Snapshot, meta Meta) models.Result {
	total := snap.Test.Len()
	questions := make([]models.ResultQuestion, total)
	answers := make([]string, total)
	score := 0

	for i, q := range snap.Test.Questions {
		questions[i] = models.ResultQuestion{
			ID:       q.ID,
			Question: q.Text,
			Options:  append([]string(nil), q.Options...),
			Answer:   q.CorrectAnswer,
			Tags:     q.Tags,
		}
		if i < len(snap.Answers) {
			answers[i] = snap.Answers[i]
		}
		if IsCorrect(answers[i], q.CorrectAnswer) {
			score++
		}
	}

	return models.Result{
		ID:                    resultID(snap),
		Score:                 score,
		Total:                 total,
		Percentage:            Percentage(score, total),
		TimeTakenSeconds:      elapsedSeconds(snap.StartedAt, snap.SubmittedAt),
		TotalTimeLimitSeconds: snap.TimeLimitSeconds,
		AutoSubmitted:         snap.AutoSubmitted,
		Subject:               meta.Subject,
		Chapter:               meta.Chapter,
		UserName:              meta.UserName,
		Date:                  snap.SubmittedAt,
		Questions:             questions,
		Answers:               answers,
	}
}

// IsCorrect reports whether an answer slot holds the correct value.
func IsCorrect(answer, correct string) bool {
	return answer != models.Unanswered && utils.AnswersMatch(answer, correct)
}

// Percentage is round(100*score/total), or 0 for an empty test.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(total)))
}

func elapsedSeconds(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func resultID(snap Snapshot) string {
	return utils.Fingerprint(
		snap.SessionID,
		snap.StartedAt.UTC().Format(time.RFC3339Nano),
		snap.SubmittedAt.UTC().Format(time.RFC3339Nano),
		strings.Join(snap.Answers, "\x1f"),
	)
}

// Review lists each question of a result with the user's answer and its correctness.
func Review(r models.Result) []models.ReviewItem {
	items := make([]models.ReviewItem, len(r.Questions))
	for i, q := range r.Questions {
		answer := models.Unanswered
		if i < len(r.Answers) {
			answer = r.Answers[i]
		}
		items[i] = models.ReviewItem{
			Number:     i + 1,
			Question:   q.Question,
			UserAnswer: answer,
			Answered:   answer != models.Unanswered,
			Correct:    q.Answer,
			IsCorrect:  IsCorrect(answer, q.Answer),
		}
	}
	return items
}
