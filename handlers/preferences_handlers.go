package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/quiz"
	"github.com/adamspd/mcqtest/utils"
)

type PreferencesHandlers struct {
	svc *quiz.Service
}

func NewPreferencesHandlers(svc *quiz.Service) *PreferencesHandlers {
	return &PreferencesHandlers{svc: svc}
}

func (ph *PreferencesHandlers) getPreferences(w http.ResponseWriter, r *http.Request) {
	preferences, err := ph.svc.Preferences()
	if err != nil {
		writeError(w, "get preferences", err)
		return
	}

	utils.LogHTTP("Returning preferences for %q", preferences.UserName)
	writeJSON(w, http.StatusOK, preferences)
}

func (ph *PreferencesHandlers) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var req models.PreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.LogHTTP("Invalid JSON in preferences update request: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Validate preference values
	if err := quiz.ValidatePreferences(req); err != nil {
		utils.LogHTTP("Invalid preference values: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	preferences, err := ph.svc.UpdatePreferences(req)
	if err != nil {
		writeError(w, "update preferences", err)
		return
	}

	utils.LogHTTP("Updated preferences")
	writeJSON(w, http.StatusOK, preferences)
}
