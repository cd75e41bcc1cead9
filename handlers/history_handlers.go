package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/quiz"
	"github.com/adamspd/mcqtest/utils"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
)

type HistoryHandlers struct {
	svc *quiz.Service
}

func NewHistoryHandlers(svc *quiz.Service) *HistoryHandlers {
	return &HistoryHandlers{svc: svc}
}

// historyIndex reads the {index} path parameter. Negative or non-numeric
// values are reported as out of range.
func historyIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := cast.ToIntE(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("%w: %q", models.ErrIndexOutOfRange, raw)
	}
	return index, nil
}

func (hh *HistoryHandlers) getLastResult(w http.ResponseWriter, r *http.Request) {
	out, err := hh.svc.LastResult()
	if err != nil {
		writeError(w, "get last result", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (hh *HistoryHandlers) listHistory(w http.ResponseWriter, r *http.Request) {
	items := hh.svc.History()
	utils.LogHTTP("Returning %d history entries", len(items))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": items,
	})
}

func (hh *HistoryHandlers) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := hh.svc.ClearHistory(); err != nil {
		writeError(w, "clear history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (hh *HistoryHandlers) getHistoryEntry(w http.ResponseWriter, r *http.Request) {
	index, err := historyIndex(r)
	if err != nil {
		writeError(w, "get history entry", err)
		return
	}
	out, err := hh.svc.HistoryEntry(index)
	if err != nil {
		writeError(w, "get history entry", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (hh *HistoryHandlers) deleteHistoryEntry(w http.ResponseWriter, r *http.Request) {
	index, err := historyIndex(r)
	if err != nil {
		writeError(w, "delete history entry", err)
		return
	}
	if err := hh.svc.DeleteHistory(index); err != nil {
		writeError(w, "delete history entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (hh *HistoryHandlers) getAnalytics(w http.ResponseWriter, r *http.Request) {
	summary := hh.svc.Analytics()
	utils.LogHTTP("Returning analytics over %d tests", summary.TotalTests)
	writeJSON(w, http.StatusOK, summary)
}

type exportFunc func(w io.Writer, index int) (string, error)

func (hh *HistoryHandlers) exportLastCSV(w http.ResponseWriter, r *http.Request) {
	serveExport(w, "text/csv; charset=utf-8", quiz.LastResultIndex, hh.svc.ExportCSV)
}

func (hh *HistoryHandlers) exportLastPDF(w http.ResponseWriter, r *http.Request) {
	serveExport(w, "application/pdf", quiz.LastResultIndex, hh.svc.ExportPDF)
}

func (hh *HistoryHandlers) exportEntryCSV(w http.ResponseWriter, r *http.Request) {
	index, err := historyIndex(r)
	if err != nil {
		writeError(w, "export result", err)
		return
	}
	serveExport(w, "text/csv; charset=utf-8", index, hh.svc.ExportCSV)
}

func (hh *HistoryHandlers) exportEntryPDF(w http.ResponseWriter, r *http.Request) {
	index, err := historyIndex(r)
	if err != nil {
		writeError(w, "export result", err)
		return
	}
	serveExport(w, "application/pdf", index, hh.svc.ExportPDF)
}

// serveExport renders into memory first so a failed export still gets a proper error status.
func serveExport(w http.ResponseWriter, contentType string, index int, render exportFunc) {
	var buf bytes.Buffer
	name, err := render(&buf, index)
	if err != nil {
		writeError(w, "export result", err)
		return
	}

	utils.LogHTTP("Exporting %s (%d bytes)", name, buf.Len())
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
