package models

import "time"

// Preferences represents the local user's profile and test setup defaults
type Preferences struct {
	UserName         string    `json:"user_name"`
	QuestionCount    int       `json:"question_count"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	ShuffleQuestions bool      `json:"shuffle_questions"`
	ShuffleOptions   bool      `json:"shuffle_options"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PreferencesRequest for updating preferences
type PreferencesRequest struct {
	UserName         *string `json:"user_name,omitempty"`
	QuestionCount    *int    `json:"question_count,omitempty"`
	TimeLimitMinutes *int    `json:"time_limit_minutes,omitempty"`
	ShuffleQuestions *bool   `json:"shuffle_questions,omitempty"`
	ShuffleOptions   *bool   `json:"shuffle_options,omitempty"`
}

// GetDefaultPreferences returns default preferences
func GetDefaultPreferences() *Preferences {
	return &Preferences{
		UserName:         "",
		QuestionCount:    10,
		TimeLimitMinutes: 10,
		ShuffleQuestions: false,
		ShuffleOptions:   false,
		UpdatedAt:        time.Now(),
	}
}

// SessionConfig builds a test configuration from the stored defaults.
func (p *Preferences) SessionConfig() SessionConfig {
	return SessionConfig{
		QuestionCount:    p.QuestionCount,
		TimeLimitMinutes: p.TimeLimitMinutes,
		ShuffleQuestions: p.ShuffleQuestions,
		ShuffleOptions:   p.ShuffleOptions,
	}
}
