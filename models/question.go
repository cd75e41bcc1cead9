package models

// DefaultQuestionTimeLimit is the per-question time limit in seconds used when a bank row omits it.
const DefaultQuestionTimeLimit = 30

// Unanswered marks an answer slot with no selected option.
const Unanswered = ""

// Question represents one multiple-choice item parsed from a bank
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"answer"`
	Tags          string   `json:"tags,omitempty"`
	TimeLimit     int      `json:"time_limit"`
}

// Clone returns a copy that shares no slices with q.
func (q Question) Clone() Question {
	c := q
	c.Options = make([]string, len(q.Options))
	copy(c.Options, q.Options)
	return c
}

// TestInstance is the frozen, ordered selection of questions used for one attempt.
type TestInstance struct {
	Questions []Question `json:"questions"`
}

func (t TestInstance) Len() int {
	return len(t.Questions)
}

// SessionConfig is what the caller supplies when starting a test
type SessionConfig struct {
	QuestionCount    int  `json:"question_count"`
	TimeLimitMinutes int  `json:"time_limit_minutes"`
	ShuffleQuestions bool `json:"shuffle_questions"`
	ShuffleOptions   bool `json:"shuffle_options"`
}

// TimeLimitSeconds converts the configured minutes to the session countdown.
func (c SessionConfig) TimeLimitSeconds() int {
	return c.TimeLimitMinutes * 60
}

// BankInfo describes the currently loaded bank
type BankInfo struct {
	Subject       string `json:"subject"`
	Chapter       string `json:"chapter"`
	QuestionCount int    `json:"question_count"`
	Skipped       int    `json:"skipped"`
}
