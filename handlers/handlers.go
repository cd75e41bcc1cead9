package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/adamspd/mcqtest/metrics"
	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/quiz"
	"github.com/adamspd/mcqtest/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// maxBodyBytes bounds uploaded banks and JSON bodies.
const maxBodyBytes = 8 << 20

// API wrapper to hold all handlers
type API struct {
	bankHandlers        *BankHandlers
	testHandlers        *TestHandlers
	historyHandlers     *HistoryHandlers
	preferencesHandlers *PreferencesHandlers
}

func NewAPI(svc *quiz.Service) *API {
	return &API{
		bankHandlers:        NewBankHandlers(svc),
		testHandlers:        NewTestHandlers(svc),
		historyHandlers:     NewHistoryHandlers(svc),
		preferencesHandlers: NewPreferencesHandlers(svc),
	}
}

func NewRouter(svc *quiz.Service, m *metrics.Metrics, corsOrigins []string) http.Handler {
	api := NewAPI(svc)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)
	r.Use(maxBodyMiddleware(maxBodyBytes))
	r.Use(m.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", healthCheck)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Get("/preferences", api.preferencesHandlers.getPreferences)
	r.Put("/preferences", api.preferencesHandlers.updatePreferences)

	// Bank routes
	r.Get("/catalog", api.bankHandlers.getCatalog)
	r.Get("/bank", api.bankHandlers.getBank)
	r.Post("/bank/load", api.bankHandlers.loadChapter)
	r.Post("/bank/upload", api.bankHandlers.uploadBank)

	// Test routes
	r.Route("/test", func(r chi.Router) {
		r.Get("/", api.testHandlers.getTest)
		r.Post("/start", api.testHandlers.startTest)
		r.Post("/answer", api.testHandlers.selectAnswer)
		r.Post("/next", api.testHandlers.next)
		r.Post("/previous", api.testHandlers.previous)
		r.Post("/submit", api.testHandlers.submit)
	})

	// Result routes
	r.Get("/results/last", api.historyHandlers.getLastResult)
	r.Get("/results/last/export.csv", api.historyHandlers.exportLastCSV)
	r.Get("/results/last/export.pdf", api.historyHandlers.exportLastPDF)

	r.Route("/history", func(r chi.Router) {
		r.Get("/", api.historyHandlers.listHistory)
		r.Delete("/", api.historyHandlers.clearHistory)
		r.Get("/{index}", api.historyHandlers.getHistoryEntry)
		r.Delete("/{index}", api.historyHandlers.deleteHistoryEntry)
		r.Get("/{index}/export.csv", api.historyHandlers.exportEntryCSV)
		r.Get("/{index}/export.pdf", api.historyHandlers.exportEntryPDF)
	})
	r.Get("/analytics", api.historyHandlers.getAnalytics)

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	utils.LogHTTP("Health check requested")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.LogError("Failed to encode response: %v", err)
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrIndexOutOfRange),
		errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, models.ErrMalformedBank),
		errors.Is(err, models.ErrInvalidCount),
		errors.Is(err, models.ErrInvalidConfig),
		errors.Is(err, models.ErrInvalidOption),
		errors.Is(err, models.ErrNoBankLoaded):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		utils.LogError("%s failed: %v", op, err)
		http.Error(w, "Failed to "+op, status)
		return
	}
	utils.LogHTTP("%s rejected (%d): %v", op, status, err)
	http.Error(w, err.Error(), status)
}
