package quiz

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adamspd/mcqtest/bank"
	"github.com/adamspd/mcqtest/catalog"
	"github.com/adamspd/mcqtest/db"
	"github.com/adamspd/mcqtest/metrics"
	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testBank = `id|question|option1|option2|option3|option4|answer|tags|time
1|Capital of France?|Paris|Lyon|Nice|Lille|Paris|geo|30
2|2 + 2?|3|4|5|6|4|math|30
3|Largest planet?|Mars|Jupiter|Venus|Earth|Jupiter|space|30
4|Colour of the sky?|Blue|Green|Red|Black|Blue|nature|30
5|Fastest land animal?|Cheetah|Horse|Lion|Dog|Cheetah|animals|30`

var correctAnswers = []string{"Paris", "4", "Jupiter", "Blue", "Cheetah"}

type manualScheduler struct {
	mu    sync.Mutex
	tick  func()
	stops int
}

func (m *manualScheduler) Start(tick func()) {
	m.mu.Lock()
	m.tick = tick
	m.mu.Unlock()
}

func (m *manualScheduler) Stop() {
	m.mu.Lock()
	m.stops++
	m.mu.Unlock()
}

func (m *manualScheduler) fire() {
	m.mu.Lock()
	tick := m.tick
	m.mu.Unlock()
	tick()
}

type flakyStore struct {
	*db.MemoryStore
	failSet bool
}

func (f *flakyStore) Set(key string, value []byte) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(key, value)
}

type fixture struct {
	svc     *Service
	store   *flakyStore
	metrics *metrics.Metrics
	sched   *manualScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   &flakyStore{MemoryStore: db.NewMemoryStore()},
		metrics: metrics.New(),
	}
	f.svc = NewService(Options{
		Store:   f.store,
		Builder: bank.NewBuilder(rand.New(rand.NewSource(1))),
		Metrics: f.metrics,
		NewScheduler: func() session.Scheduler {
			f.sched = &manualScheduler{}
			return f.sched
		},
	})
	return f
}

func (f *fixture) loadBank(t *testing.T) {
	t.Helper()
	if _, _, err := f.svc.LoadBank("General", "Basics", testBank); err != nil {
		t.Fatalf("LoadBank: %v", err)
	}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if _, err := f.svc.StartTest(models.SessionConfig{QuestionCount: 5, TimeLimitMinutes: 10}); err != nil {
		t.Fatalf("StartTest: %v", err)
	}
}

func (f *fixture) answer(t *testing.T, answers []string) {
	t.Helper()
	for i, a := range answers {
		if a != models.Unanswered {
			if _, err := f.svc.SelectAnswer(a); err != nil {
				t.Fatalf("SelectAnswer(%q): %v", a, err)
			}
		}
		if i < len(answers)-1 {
			f.svc.Next()
		}
	}
}

func TestStartRequiresBank(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.StartTest(models.SessionConfig{QuestionCount: 1, TimeLimitMinutes: 1}); !errors.Is(err, models.ErrNoBankLoaded) {
		t.Fatalf("expected ErrNoBankLoaded, got %v", err)
	}
}

func TestFailedLoadBlocksStart(t *testing.T) {
	f := newFixture(t)
	f.loadBank(t)
	_, report, err := f.svc.LoadBank("General", "Broken", "junk\nmore junk")
	if !errors.Is(err, models.ErrMalformedBank) {
		t.Fatalf("expected ErrMalformedBank, got %v", err)
	}
	if report == nil || report.Skipped != 1 {
		t.Fatalf("expected a report of skipped rows, got %+v", report)
	}
	if _, err := f.svc.Bank(); !errors.Is(err, models.ErrNoBankLoaded) {
		t.Fatalf("failed load should leave no bank, got %v", err)
	}
	if _, err := f.svc.StartTest(models.SessionConfig{QuestionCount: 1, TimeLimitMinutes: 1}); !errors.Is(err, models.ErrNoBankLoaded) {
		t.Fatalf("expected start blocked, got %v", err)
	}
}

func TestStartValidatesConfig(t *testing.T) {
	f := newFixture(t)
	f.loadBank(t)
	if _, err := f.svc.StartTest(models.SessionConfig{QuestionCount: 6, TimeLimitMinutes: 1}); !errors.Is(err, models.ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
	if _, err := f.svc.StartTest(models.SessionConfig{QuestionCount: 2, TimeLimitMinutes: 0}); !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFullAttempt(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.SetUserName("Asha"); err != nil {
		t.Fatalf("SetUserName: %v", err)
	}
	f.loadBank(t)
	f.start(t)
	f.answer(t, correctAnswers)

	out, err := f.svc.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r := out.Result
	if r.Score != 5 || r.Percentage != 100 || !out.Saved {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if r.Subject != "General" || r.Chapter != "Basics" || r.UserName != "Asha" {
		t.Fatalf("labels not applied: %+v", r)
	}
	if r.TotalTimeLimitSeconds != 600 || len(out.Review) != 5 {
		t.Fatalf("unexpected limit or review: %d %d", r.TotalTimeLimitSeconds, len(out.Review))
	}
	if f.sched.stops != 1 {
		t.Fatalf("expected timer stopped once, got %d", f.sched.stops)
	}

	last, err := f.svc.LastResult()
	if err != nil || last.Result.ID != r.ID {
		t.Fatalf("LastResult = %v, %v", last.Result.ID, err)
	}
	if items := f.svc.History(); len(items) != 1 || items[0].ID != r.ID {
		t.Fatalf("expected one history item, got %+v", items)
	}
	if a := f.svc.Analytics(); a.TotalTests != 1 || a.BestPercentage != 100 {
		t.Fatalf("unexpected analytics %+v", a)
	}
	if got := testutil.ToFloat64(f.metrics.TestsSubmitted.WithLabelValues(metrics.TriggerManual)); got != 1 {
		t.Fatalf("expected one manual submit counted, got %v", got)
	}
}

func TestPartialAttempt(t *testing.T) {
	f := newFixture(t)
	f.loadBank(t)
	f.start(t)
	f.answer(t, []string{"Paris", models.Unanswered, "Mars", models.Unanswered, "Cheetah"})

	out, err := f.svc.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Result.Score != 2 || out.Result.Percentage != 40 {
		t.Fatalf("expected 2 and 40%%, got %d and %d%%", out.Result.Score, out.Result.Percentage)
	}
}

func TestDoubleSubmitRecordsOnce(t *testing.T) {
	f := newFixture(t)
	f.loadBank(t)
	f.start(t)

	first, _ := f.svc.Submit()
	second, err := f.svc.Submit()
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if first.Result.ID != second.Result.ID {
		t.Fatalf("second submit produced a different result")
	}
	if n := len(f.svc.History()); n != 1 {
		t.Fatalf("expected 1 history entry, got %d", n)
	}
}

func TestSingleActiveSession(t *testing.T) {
	f := newFixture(t)
	f.loadBank(t)
	f.start(t)
	if _, err := f.svc.StartTest(models.SessionConfig{QuestionCount: 2, TimeLimitMinutes: 1}); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	f.svc.Submit()
	f.start(t)
	if v, _ := f.svc.Current(); v.State != session.Active || v.Answered != 0 {
		t.Fatalf("expected fresh active session, got %+v", v)
	}
}

func TestOperationsWithoutSession(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.SelectAnswer("x"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := f.svc.Submit(); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := f.svc.LastResult(); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTimeoutRecordsResult(t *testing.T) {
	f := newFixture(t)
	f.loadBank(t)
	if _, err := f.svc.StartTest(models.SessionConfig{QuestionCount: 5, TimeLimitMinutes: 1}); err != nil {
		t.Fatalf("StartTest: %v", err)
	}
	f.svc.SelectAnswer("Paris")
	for i := 0; i < 60; i++ {
		f.sched.fire()
	}

	last, err := f.svc.LastResult()
	if err != nil {
		t.Fatalf("LastResult: %v", err)
	}
	if !last.Result.AutoSubmitted || last.Result.Score != 1 || last.Result.Subject != "General" {
		t.Fatalf("unexpected timeout result %+v", last.Result)
	}
	if _, err := f.svc.SelectAnswer("4"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after timeout, got %v", err)
	}

	again, err := f.svc.Submit()
	if err != nil || again.Result.ID != last.Result.ID {
		t.Fatalf("submit after timeout: %v %v", again.Result.ID, err)
	}
	if n := len(f.svc.History()); n != 1 {
		t.Fatalf("expected 1 history entry, got %d", n)
	}
	if got := testutil.ToFloat64(f.metrics.TestsSubmitted.WithLabelValues(metrics.TriggerTimeout)); got != 1 {
		t.Fatalf("expected one timeout counted, got %v", got)
	}
}

func TestRealTimerAutoSubmits(t *testing.T) {
	svc := NewService(Options{
		Store:        db.NewMemoryStore(),
		TickInterval: time.Millisecond,
	})
	defer svc.Close()
	if _, _, err := svc.LoadBank("General", "Basics", testBank); err != nil {
		t.Fatalf("LoadBank: %v", err)
	}
	if _, err := svc.StartTest(models.SessionConfig{QuestionCount: 2, TimeLimitMinutes: 1}); err != nil {
		t.Fatalf("StartTest: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if out, err := svc.LastResult(); err == nil {
			if !out.Result.AutoSubmitted || out.Result.TimeTakenSeconds < 0 {
				t.Fatalf("unexpected result %+v", out.Result)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("test was not auto-submitted")
}

func TestHistoryWriteFailureKeepsResult(t *testing.T) {
	f := newFixture(t)
	f.loadBank(t)
	f.start(t)
	f.store.failSet = true

	out, err := f.svc.Submit()
	if err != nil {
		t.Fatalf("Submit should not fail on storage errors: %v", err)
	}
	if out.Saved {
		t.Fatalf("expected Saved=false")
	}
	if last, err := f.svc.LastResult(); err != nil || last.Result.ID != out.Result.ID {
		t.Fatalf("last result lost: %v", err)
	}
	if got := testutil.ToFloat64(f.metrics.HistoryWriteFailures); got != 1 {
		t.Fatalf("expected one write failure counted, got %v", got)
	}
}

func TestDeleteHistoryKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.loadBank(t)
	var ids []string
	for i := 0; i < 3; i++ {
		f.start(t)
		out, _ := f.svc.Submit()
		ids = append(ids, out.Result.ID)
	}
	if err := f.svc.DeleteHistory(1); err != nil {
		t.Fatalf("DeleteHistory: %v", err)
	}
	items := f.svc.History()
	if len(items) != 2 || items[0].ID != ids[0] || items[1].ID != ids[2] {
		t.Fatalf("expected entries 0 and 2 to remain in order, got %+v", items)
	}
	if err := f.svc.DeleteHistory(5); !errors.Is(err, models.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	entry, err := f.svc.HistoryEntry(1)
	if err != nil || entry.Result.ID != ids[2] || len(entry.Review) != 5 {
		t.Fatalf("HistoryEntry(1) = %+v, %v", entry.Result.ID, err)
	}
	if err := f.svc.ClearHistory(); err != nil || len(f.svc.History()) != 0 {
		t.Fatalf("ClearHistory: %v", err)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.loadBank(t)
	var buf bytes.Buffer
	if _, err := f.svc.ExportCSV(&buf, LastResultIndex); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before any result, got %v", err)
	}

	f.start(t)
	f.answer(t, correctAnswers)
	f.svc.Submit()

	name, err := f.svc.ExportCSV(&buf, LastResultIndex)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if !strings.HasSuffix(name, ".csv") || !strings.Contains(buf.String(), "Score,5/5") {
		t.Fatalf("unexpected export %q:\n%s", name, buf.String())
	}

	buf.Reset()
	if _, err := f.svc.ExportPDF(&buf, 0); err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	if _, err := f.svc.ExportCSV(&buf, 3); !errors.Is(err, models.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestPreferences(t *testing.T) {
	f := newFixture(t)
	prefs, err := f.svc.Preferences()
	if err != nil || prefs.QuestionCount != 10 || prefs.TimeLimitMinutes != 10 {
		t.Fatalf("unexpected defaults %+v, %v", prefs, err)
	}

	count, shuffle := 20, true
	prefs, err = f.svc.UpdatePreferences(models.PreferencesRequest{QuestionCount: &count, ShuffleOptions: &shuffle})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if prefs.QuestionCount != 20 || !prefs.ShuffleOptions || prefs.TimeLimitMinutes != 10 {
		t.Fatalf("update not applied: %+v", prefs)
	}

	reloaded := NewService(Options{Store: f.store})
	prefs, _ = reloaded.Preferences()
	if prefs.QuestionCount != 20 || !prefs.ShuffleOptions {
		t.Fatalf("preferences not persisted: %+v", prefs)
	}

	bad := 0
	if _, err := f.svc.UpdatePreferences(models.PreferencesRequest{TimeLimitMinutes: &bad}); !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadChapterThroughCatalog(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "basics.csv"), []byte(testBank), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := `{"subjects": [{"name": "General", "chapters": [{"name": "Basics", "path": "basics.csv"}, {"name": "Missing", "path": "missing.csv"}]}]}`
	if err := os.WriteFile(filepath.Join(dir, "subjects.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := catalog.Load(filepath.Join(dir, "subjects.json"))
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}

	svc := NewService(Options{Store: db.NewMemoryStore(), Catalog: cat})
	info, _, err := svc.LoadChapter("General", "basics.csv")
	if err != nil {
		t.Fatalf("LoadChapter: %v", err)
	}
	if info.Chapter != "Basics" || info.QuestionCount != 5 {
		t.Fatalf("unexpected bank info %+v", info)
	}

	if _, _, err := svc.LoadChapter("General", "Missing"); err == nil {
		t.Fatalf("expected error for missing bank file")
	}
	if _, err := svc.Bank(); !errors.Is(err, models.ErrNoBankLoaded) {
		t.Fatalf("failed chapter load should leave no bank, got %v", err)
	}
	if _, _, err := svc.LoadChapter("Art", "Basics"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDefaultConfigFitsSmallBank(t *testing.T) {
	f := newFixture(t)
	f.loadBank(t)

	cfg, err := f.svc.DefaultSessionConfig()
	if err != nil {
		t.Fatalf("DefaultSessionConfig: %v", err)
	}
	if cfg.QuestionCount != 5 || cfg.TimeLimitMinutes != 10 {
		t.Fatalf("expected count capped at 5 with default time, got %+v", cfg)
	}
	view, err := f.svc.StartTest(cfg)
	if err != nil {
		t.Fatalf("StartTest with defaults: %v", err)
	}
	if view.Total != 5 {
		t.Fatalf("expected 5 questions, got %d", view.Total)
	}
	f.svc.Submit()

	if _, err := f.svc.StartTest(models.SessionConfig{QuestionCount: 10, TimeLimitMinutes: 1}); !errors.Is(err, models.ErrInvalidCount) {
		t.Fatalf("explicit count above bank size should fail, got %v", err)
	}

	count := 3
	f.svc.UpdatePreferences(models.PreferencesRequest{QuestionCount: &count})
	if cfg, _ := f.svc.DefaultSessionConfig(); cfg.QuestionCount != 3 {
		t.Fatalf("smaller stored count should be kept, got %d", cfg.QuestionCount)
	}
}
