package quiz

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/adamspd/mcqtest/analytics"
	"github.com/adamspd/mcqtest/bank"
	"github.com/adamspd/mcqtest/catalog"
	"github.com/adamspd/mcqtest/export"
	"github.com/adamspd/mcqtest/history"
	"github.com/adamspd/mcqtest/metrics"
	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/session"
	"github.com/adamspd/mcqtest/timer"
	"github.com/adamspd/mcqtest/utils"
)

// LastResultIndex selects the most recent result instead of a history entry.
const LastResultIndex = -1

type Options struct {
	Store        history.KeyValueStore
	Catalog      *catalog.Catalog
	Header       bank.HeaderPolicy
	Builder      *bank.Builder
	Metrics      *metrics.Metrics
	TickInterval time.Duration
	// NewScheduler overrides the countdown driver, mainly for tests.
	NewScheduler func() session.Scheduler
	Clock        func() time.Time
	PDF          export.PDFOptions
}

// Outcome is a scored result together with its review and whether it reached storage.
type Outcome struct {
	Result models.Result       `json:"result"`
	Review []models.ReviewItem `json:"review"`
	Saved  bool                `json:"history_saved"`
}

// Service coordinates one user's bank, active test, results and history.
type Service struct {
	mu sync.Mutex

	kv      history.KeyValueStore
	history *history.Store
	catalog *catalog.Catalog
	header  bank.HeaderPolicy
	builder *bank.Builder
	metrics *metrics.Metrics
	newSch  func() session.Scheduler
	clock   func() time.Time
	pdf     export.PDFOptions

	bank     []models.Question
	bankInfo *models.BankInfo

	current *session.Session
	meta    session.Meta
	sched   session.Scheduler
	last    *Outcome
}

func NewService(opts Options) *Service {
	s := &Service{
		kv:      opts.Store,
		history: history.New(opts.Store),
		catalog: opts.Catalog,
		header:  opts.Header,
		builder: opts.Builder,
		metrics: opts.Metrics,
		newSch:  opts.NewScheduler,
		clock:   opts.Clock,
		pdf:     opts.PDF,
	}
	if s.builder == nil {
		s.builder = bank.NewBuilder(nil)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.newSch == nil {
		interval := opts.TickInterval
		s.newSch = func() session.Scheduler { return timer.New(interval) }
	}
	return s
}

// Catalog returns the configured subjects, or none when no catalog is loaded.
func (s *Service) Catalog() []catalog.Subject {
	if s.catalog == nil {
		return []catalog.Subject{}
	}
	return s.catalog.Subjects
}

// LoadChapter resolves a chapter through the catalog and loads its bank.
func (s *Service) LoadChapter(subject, chapter string) (models.BankInfo, *bank.ParseReport, error) {
	if s.catalog == nil {
		return models.BankInfo{}, nil, fmt.Errorf("%w: no catalog configured", models.ErrNotFound)
	}
	locator, err := s.catalog.Resolve(subject, chapter)
	if err != nil {
		return models.BankInfo{}, nil, err
	}
	raw, err := catalog.Open(locator)
	if err != nil {
		utils.LogError("Failed to load bank for %s/%s: %v", subject, chapter, err)
		s.clearBank()
		return models.BankInfo{}, nil, err
	}
	return s.LoadBank(subject, s.catalog.ChapterName(subject, chapter), raw)
}

// LoadBank parses raw bank text and makes it the current bank. A failed load
// leaves no bank loaded, so no test can start until another bank loads.
func (s *Service) LoadBank(subject, chapter, raw string) (models.BankInfo, *bank.ParseReport, error) {
	questions, report, err := bank.Parse(raw, bank.ParseOptions{Header: s.header})
	if report != nil {
		s.metrics.BankRowsSkipped.Add(float64(report.Skipped))
	}
	if err != nil {
		utils.LogError("Bank %s/%s rejected: %v", subject, chapter, err)
		s.clearBank()
		return models.BankInfo{}, report, err
	}

	info := models.BankInfo{
		Subject:       subject,
		Chapter:       chapter,
		QuestionCount: len(questions),
		Skipped:       report.Skipped,
	}

	s.mu.Lock()
	s.bank = questions
	s.bankInfo = &info
	s.mu.Unlock()

	s.metrics.BanksLoaded.Inc()
	utils.LogImport("Loaded bank %s/%s with %d questions", subject, chapter, len(questions))
	return info, report, nil
}

func (s *Service) clearBank() {
	s.mu.Lock()
	s.bank = nil
	s.bankInfo = nil
	s.mu.Unlock()
}

func (s *Service) Bank() (models.BankInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bankInfo == nil {
		return models.BankInfo{}, models.ErrNoBankLoaded
	}
	return *s.bankInfo, nil
}

// StartTest builds a test instance from the loaded bank and starts a timed session.
// Only one session may be active at a time.
func (s *Service) StartTest(cfg models.SessionConfig) (session.View, error) {
	if cfg.TimeLimitMinutes < 1 {
		return session.View{}, fmt.Errorf("%w: time limit must be at least 1 minute", models.ErrInvalidConfig)
	}
	prefs, err := s.Preferences()
	if err != nil {
		utils.LogWarn("Using default profile: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bankInfo == nil {
		return session.View{}, models.ErrNoBankLoaded
	}
	if s.current != nil && s.current.State() == session.Active {
		return session.View{}, &models.InvalidStateError{Op: "start test", State: session.Active.String()}
	}

	inst, err := s.builder.Build(s.bank, cfg.QuestionCount, cfg.ShuffleQuestions, cfg.ShuffleOptions)
	if err != nil {
		return session.View{}, err
	}

	meta := session.Meta{
		Subject:  s.bankInfo.Subject,
		Chapter:  s.bankInfo.Chapter,
		UserName: prefs.UserName,
	}
	sched := s.newSch()
	sess := session.New(session.Options{
		Scheduler: sched,
		Clock:     s.clock,
		OnSubmit: func(snap session.Snapshot) {
			s.record(snap, meta)
		},
	})
	if err := sess.Start(inst, cfg.TimeLimitSeconds()); err != nil {
		return session.View{}, err
	}

	s.current = sess
	s.meta = meta
	s.sched = sched
	s.metrics.TestsStarted.Inc()
	utils.LogInfo("Test started: %s/%s, %d questions, %d minutes", meta.Subject, meta.Chapter, inst.Len(), cfg.TimeLimitMinutes)
	return sess.View(), nil
}

func (s *Service) session(op string) (*session.Session, error) {
	sess, _, err := s.sessionWithMeta(op)
	return sess, err
}

func (s *Service) sessionWithMeta(op string) (*session.Session, session.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, session.Meta{}, &models.InvalidStateError{Op: op, State: session.NotStarted.String()}
	}
	return s.current, s.meta, nil
}

// Current returns the view of the latest session.
func (s *Service) Current() (session.View, error) {
	sess, err := s.session("view test")
	if err != nil {
		return session.View{}, err
	}
	return sess.View(), nil
}

func (s *Service) SelectAnswer(value string) (session.View, error) {
	sess, err := s.session("select answer")
	if err != nil {
		return session.View{}, err
	}
	if err := sess.SelectAnswer(value); err != nil {
		return session.View{}, err
	}
	return sess.View(), nil
}

func (s *Service) Next() (session.View, error) {
	sess, err := s.session("next")
	if err != nil {
		return session.View{}, err
	}
	if err := sess.Next(); err != nil {
		return session.View{}, err
	}
	return sess.View(), nil
}

func (s *Service) Previous() (session.View, error) {
	sess, err := s.session("previous")
	if err != nil {
		return session.View{}, err
	}
	if err := sess.Previous(); err != nil {
		return session.View{}, err
	}
	return sess.View(), nil
}

// Submit ends the current test. Submitting an already submitted test returns
// the same outcome without recording it again.
func (s *Service) Submit() (Outcome, error) {
	sess, meta, err := s.sessionWithMeta("submit")
	if err != nil {
		return Outcome{}, err
	}
	// the session lock is released before OnSubmit runs, so s.mu must not be held here
	snap, _, err := sess.Submit()
	if err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(snap, meta), nil
}

func (s *Service) record(snap session.Snapshot, meta session.Meta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLocked(snap, meta)
}

// recordLocked scores snap and appends it to history once. Caller holds s.mu.
func (s *Service) recordLocked(snap session.Snapshot, meta session.Meta) Outcome {
	result := session.Score(snap, meta)
	if s.last != nil && s.last.Result.ID == result.ID {
		return *s.last
	}

	out := Outcome{Result: result, Review: session.Review(result), Saved: true}
	if _, err := s.history.Append(result); err != nil {
		utils.LogError("Result %s kept in memory only: %v", result.ID, err)
		s.metrics.HistoryWriteFailures.Inc()
		out.Saved = false
	}
	s.last = &out

	trigger := metrics.TriggerManual
	if result.AutoSubmitted {
		trigger = metrics.TriggerTimeout
	}
	s.metrics.TestsSubmitted.WithLabelValues(trigger).Inc()
	s.metrics.ResultPercentage.Observe(float64(result.Percentage))
	utils.LogInfo("Test submitted (%s): %d/%d (%d%%) in %ds", trigger, result.Score, result.Total, result.Percentage, result.TimeTakenSeconds)
	return out
}

func (s *Service) LastResult() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Outcome{}, fmt.Errorf("%w: no test submitted yet", models.ErrNotFound)
	}
	return *s.last, nil
}

// History lists stored results, oldest first.
func (s *Service) History() []models.HistoryItem {
	return s.history.Items()
}

// HistoryEntry returns a stored result with its review.
func (s *Service) HistoryEntry(index int) (Outcome, error) {
	r, err := s.history.Get(index)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Result: r, Review: session.Review(r), Saved: true}, nil
}

func (s *Service) DeleteHistory(index int) error {
	if err := s.history.Delete(index); err != nil {
		if errors.Is(err, models.ErrStorageUnavailable) {
			s.metrics.HistoryWriteFailures.Inc()
		}
		return err
	}
	utils.LogInfo("Deleted history entry %d", index)
	return nil
}

func (s *Service) ClearHistory() error {
	if err := s.history.Clear(); err != nil {
		s.metrics.HistoryWriteFailures.Inc()
		return err
	}
	utils.LogInfo("History cleared")
	return nil
}

func (s *Service) Analytics() models.AnalyticsSummary {
	return analytics.Summarize(s.history.List())
}

func (s *Service) resultAt(index int) (models.Result, error) {
	if index == LastResultIndex {
		out, err := s.LastResult()
		return out.Result, err
	}
	return s.history.Get(index)
}

// ExportCSV writes the last result (LastResultIndex) or a history entry as CSV
// and returns a suggested file name.
func (s *Service) ExportCSV(w io.Writer, index int) (string, error) {
	r, err := s.resultAt(index)
	if err != nil {
		return "", err
	}
	return export.Filename(r, "csv"), export.WriteCSV(w, r)
}

func (s *Service) ExportPDF(w io.Writer, index int) (string, error) {
	r, err := s.resultAt(index)
	if err != nil {
		return "", err
	}
	return export.Filename(r, "pdf"), export.WritePDF(w, r, s.pdf)
}

// Close stops the countdown of an active test.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched != nil {
		s.sched.Stop()
	}
}
