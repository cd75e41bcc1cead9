package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/adamspd/mcqtest/bank"
	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/quiz"
	"github.com/adamspd/mcqtest/utils"
)

type BankHandlers struct {
	svc *quiz.Service
}

func NewBankHandlers(svc *quiz.Service) *BankHandlers {
	return &BankHandlers{svc: svc}
}

// LoadRequest names a catalog chapter by subject and chapter name or path.
type LoadRequest struct {
	Subject string `json:"subject"`
	Chapter string `json:"chapter"`
}

// LoadResponse describes the bank that is now current and how its rows parsed.
type LoadResponse struct {
	Bank   *models.BankInfo  `json:"bank,omitempty"`
	Report *bank.ParseReport `json:"report,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func (bh *BankHandlers) getCatalog(w http.ResponseWriter, r *http.Request) {
	subjects := bh.svc.Catalog()
	utils.LogHTTP("Returning catalog with %d subjects", len(subjects))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subjects": subjects,
	})
}

func (bh *BankHandlers) getBank(w http.ResponseWriter, r *http.Request) {
	info, err := bh.svc.Bank()
	if err != nil {
		writeError(w, "get bank", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (bh *BankHandlers) loadChapter(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.LogHTTP("Invalid JSON in load request: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Chapter) == "" {
		http.Error(w, "subject and chapter are required", http.StatusBadRequest)
		return
	}

	utils.LogImport("Loading chapter %s/%s", req.Subject, req.Chapter)
	info, report, err := bh.svc.LoadChapter(req.Subject, req.Chapter)
	bh.respondLoad(w, "load bank", info, report, err)
}

// uploadBank accepts the raw pipe-delimited bank as the request body. Labels
// come from the subject and chapter query parameters.
func (bh *BankHandlers) uploadBank(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Bank too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	subject := r.URL.Query().Get("subject")
	chapter := r.URL.Query().Get("chapter")
	utils.LogImport("Received bank upload of %d bytes for %s/%s", len(body), subject, chapter)

	info, report, err := bh.svc.LoadBank(subject, chapter, string(body))
	bh.respondLoad(w, "upload bank", info, report, err)
}

func (bh *BankHandlers) respondLoad(w http.ResponseWriter, op string, info models.BankInfo, report *bank.ParseReport, err error) {
	if err != nil {
		if report != nil && errors.Is(err, models.ErrMalformedBank) {
			utils.LogImport("%s rejected: %v", op, err)
			writeJSON(w, http.StatusBadRequest, LoadResponse{Report: report, Error: err.Error()})
			return
		}
		writeError(w, op, err)
		return
	}

	utils.LogImport("Import completed: %d imported, %d skipped", report.Imported, report.Skipped)
	writeJSON(w, http.StatusCreated, LoadResponse{Bank: &info, Report: report})
}
