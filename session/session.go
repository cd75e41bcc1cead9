package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/utils"
	"github.com/google/uuid"
)

type State int

const (
	NotStarted State = iota
	Active
	Submitted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Active:
		return "active"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{NotStarted, Active, Submitted} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Scheduler drives the countdown. Start must not call tick synchronously;
// Stop must not wait for an in-flight tick to return.
type Scheduler interface {
	Start(tick func())
	Stop()
}

// Snapshot is the frozen state of a submitted session.
type Snapshot struct {
	SessionID        string              `json:"session_id"`
	Test             models.TestInstance `json:"test"`
	Answers          []string            `json:"answers"`
	StartedAt        time.Time           `json:"started_at"`
	SubmittedAt      time.Time           `json:"submitted_at"`
	TimeLimitSeconds int                 `json:"time_limit_seconds"`
	TimeRemaining    int                 `json:"time_remaining"`
	AutoSubmitted    bool                `json:"auto_submitted"`
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.Answers = append([]string(nil), s.Answers...)
	c.Test.Questions = make([]models.Question, len(s.Test.Questions))
	for i, q := range s.Test.Questions {
		c.Test.Questions[i] = q.Clone()
	}
	return c
}

// View is what a presentation layer needs to render the current question.
type View struct {
	SessionID     string           `json:"session_id"`
	State         State            `json:"state"`
	Index         int              `json:"index"`
	Total         int              `json:"total"`
	Question      *models.Question `json:"question,omitempty"`
	Selected      string           `json:"selected"`
	TimeRemaining int              `json:"time_remaining"`
	Answered      int              `json:"answered"`
}

type Options struct {
	Scheduler Scheduler
	// OnSubmit runs once, outside the session lock, when the session leaves Active.
	OnSubmit func(Snapshot)
	Clock    func() time.Time
}

// Session is one attempt at a test instance. All methods are safe for concurrent use;
// user calls and scheduler ticks are serialised by a single mutex.
type Session struct {
	mu sync.Mutex

	id        string
	state     State
	test      models.TestInstance
	index     int
	answers   []string
	limit     int
	remaining int
	startedAt time.Time
	final     *Snapshot

	scheduler Scheduler
	onSubmit  func(Snapshot)
	now       func() time.Time
}

func New(opts Options) *Session {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:        uuid.NewString(),
		state:     NotStarted,
		scheduler: opts.Scheduler,
		onSubmit:  opts.OnSubmit,
		now:       now,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins the attempt with every answer unanswered and starts the countdown.
func (s *Session) Start(test models.TestInstance, totalTimeLimitSeconds int) error {
	if test.Len() == 0 {
		return fmt.Errorf("%w: test has no questions", models.ErrInvalidConfig)
	}
	if totalTimeLimitSeconds < 1 {
		return fmt.Errorf("%w: time limit must be positive, got %ds", models.ErrInvalidConfig, totalTimeLimitSeconds)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != NotStarted {
		return &models.InvalidStateError{Op: "start", State: s.state.String()}
	}

	s.test = test
	s.answers = make([]string, test.Len())
	s.index = 0
	s.limit = totalTimeLimitSeconds
	s.remaining = totalTimeLimitSeconds
	s.startedAt = s.now()
	s.state = Active

	if s.scheduler != nil {
		s.scheduler.Start(s.Tick)
	}

	utils.LogSession("Session %s started: %d questions, %ds", s.id, test.Len(), totalTimeLimitSeconds)
	return nil
}

// SelectAnswer records value for the current question. value must match one of
// its options; the option's own text is stored.
func (s *Session) SelectAnswer(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active {
		return &models.InvalidStateError{Op: "select answer", State: s.state.String()}
	}
	q := s.test.Questions[s.index]
	option, ok := utils.FindOption(q.Options, value)
	if !ok {
		return fmt.Errorf("%w: %q", models.ErrInvalidOption, value)
	}
	s.answers[s.index] = option
	return nil
}

// Next moves forward one question; a no-op on the last question.
func (s *Session) Next() error {
	return s.move("next", 1)
}

// Previous moves back one question; a no-op on the first question.
func (s *Session) Previous() error {
	return s.move("previous", -1)
}

func (s *Session) move(op string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active {
		return &models.InvalidStateError{Op: op, State: s.state.String()}
	}
	next := s.index + delta
	if next < 0 || next >= len(s.answers) {
		return nil
	}
	s.index = next
	return nil
}

// Tick advances the countdown by one second and submits when it runs out.
// Ticks outside Active are ignored.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return
	}
	s.remaining--
	if s.remaining > 0 {
		s.mu.Unlock()
		return
	}
	s.remaining = 0
	snap := s.finishLocked(true)
	s.mu.Unlock()

	utils.LogSession("Session %s timed out", s.id)
	s.notify(snap)
}

// Submit ends the attempt. On a session that is already submitted it returns the
// original snapshot and first == false.
func (s *Session) Submit() (snap Snapshot, first bool, err error) {
	s.mu.Lock()
	switch s.state {
	case NotStarted:
		s.mu.Unlock()
		return Snapshot{}, false, &models.InvalidStateError{Op: "submit", State: s.state.String()}
	case Submitted:
		snap = s.final.clone()
		s.mu.Unlock()
		return snap, false, nil
	}
	snap = s.finishLocked(false)
	s.mu.Unlock()

	utils.LogSession("Session %s submitted", s.id)
	s.notify(snap)
	return snap, true, nil
}

// finishLocked performs the Active to Submitted transition. Caller holds s.mu.
func (s *Session) finishLocked(auto bool) Snapshot {
	s.state = Submitted
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.final = &Snapshot{
		SessionID:        s.id,
		Test:             s.test,
		Answers:          s.answers,
		StartedAt:        s.startedAt,
		SubmittedAt:      s.now(),
		TimeLimitSeconds: s.limit,
		TimeRemaining:    s.remaining,
		AutoSubmitted:    auto,
	}
	return s.final.clone()
}

func (s *Session) notify(snap Snapshot) {
	if s.onSubmit != nil {
		s.onSubmit(snap)
	}
}

// Final returns the submitted snapshot, if any.
func (s *Session) Final() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final == nil {
		return Snapshot{}, false
	}
	return s.final.clone(), true
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:     s.id,
		State:         s.state,
		Index:         s.index,
		Total:         len(s.answers),
		TimeRemaining: s.remaining,
	}
	if s.state == NotStarted {
		return v
	}
	q := s.test.Questions[s.index].Clone()
	v.Question = &q
	v.Selected = s.answers[s.index]
	for _, a := range s.answers {
		if a != models.Unanswered {
			v.Answered++
		}
	}
	return v
}
