package models

import "time"

// ResultQuestion is the snapshot of one question as it was shown during the attempt
type ResultQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
	Tags     string   `json:"tags,omitempty"`
}

// Result represents a completed attempt. It is never mutated after scoring.
type Result struct {
	ID                    string           `json:"id"`
	Score                 int              `json:"score"`
	Total                 int              `json:"total"`
	Percentage            int              `json:"percentage"`
	TimeTakenSeconds      int              `json:"time_taken_seconds"`
	TotalTimeLimitSeconds int              `json:"total_time_limit_seconds"`
	AutoSubmitted         bool             `json:"auto_submitted"`
	Subject               string           `json:"subject"`
	Chapter               string           `json:"chapter"`
	UserName              string           `json:"user_name"`
	Date                  time.Time        `json:"date"`
	Questions             []ResultQuestion `json:"questions"`
	Answers               []string         `json:"answers"`
}

// ReviewItem is one row of a result review or export
type ReviewItem struct {
	Number     int    `json:"number"`
	Question   string `json:"question"`
	UserAnswer string `json:"user_answer"`
	Answered   bool   `json:"answered"`
	Correct    string `json:"correct_answer"`
	IsCorrect  bool   `json:"is_correct"`
}

// HistoryItem is the list view of a stored result
type HistoryItem struct {
	Index            int       `json:"index"`
	ID               string    `json:"id"`
	Subject          string    `json:"subject"`
	Chapter          string    `json:"chapter"`
	Score            int       `json:"score"`
	Total            int       `json:"total"`
	Percentage       int       `json:"percentage"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	Date             time.Time `json:"date"`
}

// AnalyticsSummary represents aggregate statistics over the history log
type AnalyticsSummary struct {
	NoData            bool           `json:"no_data"`
	TotalTests        int            `json:"total_tests"`
	AveragePercentage int            `json:"average_percentage"`
	BestPercentage    int            `json:"best_percentage"`
	PerSubjectAverage map[string]int `json:"per_subject_average"`
	Subjects          []SubjectStat  `json:"subjects"`
	RecentTrend       []TrendPoint   `json:"recent_trend"`
	RecentTests       []RecentTest   `json:"recent_tests"`
}

// SubjectStat represents stats for a specific subject
type SubjectStat struct {
	Subject string `json:"subject"`
	Tests   int    `json:"tests"`
	Average int    `json:"average"`
}

type TrendPoint struct {
	Label      string `json:"label"`
	Percentage int    `json:"percentage"`
}

type RecentTest struct {
	Subject    string    `json:"subject"`
	Chapter    string    `json:"chapter"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
	Date       time.Time `json:"date"`
}
