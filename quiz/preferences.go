package quiz

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/utils"
)

const (
	userNameKey    = "user_name"
	preferencesKey = "test_preferences"
)

// Preferences returns the stored profile merged over the defaults. On a storage
// error the defaults are returned along with the error.
func (s *Service) Preferences() (models.Preferences, error) {
	prefs := *models.GetDefaultPreferences()

	raw, ok, err := s.kv.Get(preferencesKey)
	if err != nil {
		return prefs, &models.StorageUnavailableError{Op: "load preferences", Err: err}
	}
	if ok {
		if err := json.Unmarshal(raw, &prefs); err != nil {
			utils.LogWarn("Stored preferences are corrupted, using defaults: %v", err)
			prefs = *models.GetDefaultPreferences()
		}
	}

	raw, ok, err = s.kv.Get(userNameKey)
	if err != nil {
		return prefs, &models.StorageUnavailableError{Op: "load user name", Err: err}
	}
	if ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			name = string(raw)
		}
		prefs.UserName = name
	}
	return prefs, nil
}

// ValidatePreferences checks a partial update before it is applied.
func ValidatePreferences(req models.PreferencesRequest) error {
	if req.QuestionCount != nil && *req.QuestionCount < 1 {
		return fmt.Errorf("%w: question_count must be at least 1", models.ErrInvalidConfig)
	}
	if req.TimeLimitMinutes != nil && (*req.TimeLimitMinutes < 1 || *req.TimeLimitMinutes > 600) {
		return fmt.Errorf("%w: time_limit_minutes must be between 1 and 600", models.ErrInvalidConfig)
	}
	if req.UserName != nil && len(*req.UserName) > 100 {
		return fmt.Errorf("%w: user_name must be at most 100 characters", models.ErrInvalidConfig)
	}
	return nil
}

// UpdatePreferences applies the non-nil fields of req and persists the result.
func (s *Service) UpdatePreferences(req models.PreferencesRequest) (models.Preferences, error) {
	if err := ValidatePreferences(req); err != nil {
		return models.Preferences{}, err
	}

	prefs, err := s.Preferences()
	if err != nil {
		return models.Preferences{}, err
	}

	if req.UserName != nil {
		prefs.UserName = strings.TrimSpace(*req.UserName)
	}
	if req.QuestionCount != nil {
		prefs.QuestionCount = *req.QuestionCount
	}
	if req.TimeLimitMinutes != nil {
		prefs.TimeLimitMinutes = *req.TimeLimitMinutes
	}
	if req.ShuffleQuestions != nil {
		prefs.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		prefs.ShuffleOptions = *req.ShuffleOptions
	}
	prefs.UpdatedAt = time.Now()

	data, err := json.Marshal(prefs)
	if err != nil {
		return models.Preferences{}, err
	}
	if err := s.kv.Set(preferencesKey, data); err != nil {
		return models.Preferences{}, &models.StorageUnavailableError{Op: "save preferences", Err: err}
	}
	name, _ := json.Marshal(prefs.UserName)
	if err := s.kv.Set(userNameKey, name); err != nil {
		return models.Preferences{}, &models.StorageUnavailableError{Op: "save user name", Err: err}
	}

	utils.LogInfo("Preferences updated")
	return prefs, nil
}

func (s *Service) SetUserName(name string) (models.Preferences, error) {
	return s.UpdatePreferences(models.PreferencesRequest{UserName: &name})
}

// DefaultSessionConfig returns the stored test defaults with the question count
// capped at the size of the loaded bank. Explicit counts are not capped.
func (s *Service) DefaultSessionConfig() (models.SessionConfig, error) {
	prefs, err := s.Preferences()
	cfg := prefs.SessionConfig()

	s.mu.Lock()
	if s.bankInfo != nil && cfg.QuestionCount > s.bankInfo.QuestionCount {
		cfg.QuestionCount = s.bankInfo.QuestionCount
	}
	s.mu.Unlock()
	return cfg, err
}
