package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/adamspd/mcqtest/quiz"
	"github.com/adamspd/mcqtest/session"
	"github.com/adamspd/mcqtest/utils"
)

type TestHandlers struct {
	svc *quiz.Service
}

func NewTestHandlers(svc *quiz.Service) *TestHandlers {
	return &TestHandlers{svc: svc}
}

// StartRequest overrides the stored preferences for one test. Missing fields
// fall back to the preferences; a stored question count is capped at the bank size.
type StartRequest struct {
	QuestionCount    *int  `json:"question_count,omitempty"`
	TimeLimitMinutes *int  `json:"time_limit_minutes,omitempty"`
	ShuffleQuestions *bool `json:"shuffle_questions,omitempty"`
	ShuffleOptions   *bool `json:"shuffle_options,omitempty"`
}

type AnswerRequest struct {
	Answer string `json:"answer"`
}

// QuestionView is a question as shown while the test runs, without its answer.
type QuestionView struct {
	ID        string   `json:"id"`
	Text      string   `json:"question"`
	Options   []string `json:"options"`
	Tags      string   `json:"tags,omitempty"`
	TimeLimit int      `json:"time_limit"`
}

type TestView struct {
	SessionID     string        `json:"session_id"`
	State         session.State `json:"state"`
	Index         int           `json:"index"`
	Total         int           `json:"total"`
	Question      *QuestionView `json:"question,omitempty"`
	Selected      string        `json:"selected"`
	TimeRemaining int           `json:"time_remaining"`
	Answered      int           `json:"answered"`
}

func toTestView(v session.View) TestView {
	tv := TestView{
		SessionID:     v.SessionID,
		State:         v.State,
		Index:         v.Index,
		Total:         v.Total,
		Selected:      v.Selected,
		TimeRemaining: v.TimeRemaining,
		Answered:      v.Answered,
	}
	if v.Question != nil {
		tv.Question = &QuestionView{
			ID:        v.Question.ID,
			Text:      v.Question.Text,
			Options:   v.Question.Options,
			Tags:      v.Question.Tags,
			TimeLimit: v.Question.TimeLimit,
		}
	}
	return tv
}

func (th *TestHandlers) startTest(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.LogHTTP("Invalid JSON in start request: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	cfg, err := th.svc.DefaultSessionConfig()
	if err != nil {
		utils.LogWarn("Starting test with default preferences: %v", err)
	}
	if req.QuestionCount != nil {
		cfg.QuestionCount = *req.QuestionCount
	}
	if req.TimeLimitMinutes != nil {
		cfg.TimeLimitMinutes = *req.TimeLimitMinutes
	}
	if req.ShuffleQuestions != nil {
		cfg.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		cfg.ShuffleOptions = *req.ShuffleOptions
	}

	view, err := th.svc.StartTest(cfg)
	if err != nil {
		writeError(w, "start test", err)
		return
	}
	utils.LogSession("Started session %s with %d questions", view.SessionID, view.Total)
	writeJSON(w, http.StatusCreated, toTestView(view))
}

func (th *TestHandlers) getTest(w http.ResponseWriter, r *http.Request) {
	view, err := th.svc.Current()
	if err != nil {
		writeError(w, "get test", err)
		return
	}
	writeJSON(w, http.StatusOK, toTestView(view))
}

func (th *TestHandlers) selectAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.LogHTTP("Invalid JSON in answer request: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	view, err := th.svc.SelectAnswer(req.Answer)
	if err != nil {
		writeError(w, "select answer", err)
		return
	}
	writeJSON(w, http.StatusOK, toTestView(view))
}

func (th *TestHandlers) next(w http.ResponseWriter, r *http.Request) {
	th.navigate(w, "next question", th.svc.Next)
}

func (th *TestHandlers) previous(w http.ResponseWriter, r *http.Request) {
	th.navigate(w, "previous question", th.svc.Previous)
}

func (th *TestHandlers) navigate(w http.ResponseWriter, op string, move func() (session.View, error)) {
	view, err := move()
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toTestView(view))
}

func (th *TestHandlers) submit(w http.ResponseWriter, r *http.Request) {
	out, err := th.svc.Submit()
	if err != nil {
		writeError(w, "submit test", err)
		return
	}
	utils.LogSession("Submitted %s: %d/%d", out.Result.ID, out.Result.Score, out.Result.Total)
	writeJSON(w, http.StatusOK, out)
}
