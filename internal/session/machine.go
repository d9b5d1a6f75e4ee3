// Package session steps a player through one generated quiz round.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/i474232898/climate-quest/internal/logger"
	"github.com/i474232898/climate-quest/internal/quiz"
)

// DefaultFeedbackWindow is how long answer feedback stays open.
const DefaultFeedbackWindow = 2 * time.Second

const (
	MsgWelcome   = "Tap anywhere on the map to explore its climate and start a quiz."
	MsgCompleted = "Quiz complete! You earned %d points this round. Pick another location to keep exploring."
	MsgCorrect   = "Correct! +%d points"
	MsgIncorrect = "Not quite. The correct answer was: %s"
)

var (
	// ErrInvalidAnswer is returned for an answer id that is not an option of
	// the current question.
	ErrInvalidAnswer = errors.New("answer is not an option of the current question")
	// ErrFeedbackOpen is returned while the feedback window is open.
	ErrFeedbackOpen = errors.New("feedback window is open")
	// ErrNotActive is returned when no question is waiting for input.
	ErrNotActive = errors.New("no active question")
)

// State is the machine's phase.
type State string

const (
	StateWelcome   State = "welcome"
	StateActive    State = "active"
	StateFeedback  State = "feedback"
	StateCompleted State = "completed"
)

// Ledger receives points for correct answers.
type Ledger interface {
	Add(ctx context.Context, delta int) (int, error)
}

// Recorder receives answer metrics.
type Recorder interface {
	Answer(result string)
}

// Feedback describes a submitted answer.
type Feedback struct {
	QuestionID    int         `json:"questionId"`
	AnswerID      int         `json:"answerId"`
	Correct       bool        `json:"correct"`
	Points        int         `json:"points"`
	CorrectAnswer quiz.Answer `json:"correctAnswer"`
	Message       string      `json:"message"`
}

// View is a read-only copy of the session for presentation.
type View struct {
	State       State          `json:"state"`
	Message     string         `json:"message,omitempty"`
	Question    *quiz.Question `json:"question,omitempty"`
	Cursor      int            `json:"cursor"`
	Total       int            `json:"total"`
	Answered    []int          `json:"answeredCorrectIds"`
	Completed   bool           `json:"completed"`
	Feedback    *Feedback      `json:"feedback,omitempty"`
	RoundPoints int            `json:"roundPoints"`
}

// Hooks observe transitions. They run while the machine is locked and must
// not call back into it; the View argument carries the new state.
type Hooks struct {
	OnQuestion       func(View)
	OnFeedback       func(Feedback, View)
	OnFeedbackClosed func(View)
	OnCompleted      func(View)
	OnReset          func(View)
}

// Option customizes a Machine.
type Option func(*Machine)

func WithClock(clock clockwork.Clock) Option {
	return func(m *Machine) { m.clock = clock }
}

func WithFeedbackWindow(d time.Duration) Option {
	return func(m *Machine) { m.window = d }
}

func WithHooks(h Hooks) Option {
	return func(m *Machine) { m.hooks = h }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Machine) { m.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(m *Machine) { m.metrics = r }
}

// Machine owns one session. Only its transitions mutate session state.
type Machine struct {
	ledger  Ledger
	clock   clockwork.Clock
	window  time.Duration
	hooks   Hooks
	log     *zap.SugaredLogger
	metrics Recorder

	mu          sync.Mutex
	state       State
	questions   []quiz.Question
	cursor      int
	answered    map[int]bool
	completed   bool
	feedback    *Feedback
	roundPoints int
	timer       clockwork.Timer
	epoch       uint64
}

// New returns a Machine in the welcome state.
func New(ledger Ledger, opts ...Option) *Machine {
	m := &Machine{
		ledger:   ledger,
		clock:    clockwork.NewRealClock(),
		window:   DefaultFeedbackWindow,
		state:    StateWelcome,
		answered: map[int]bool{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = logger.OrNop(m.log)
	return m
}

// View returns the current session view.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Load discards any existing session and starts a new one over questions.
func (m *Machine) Load(questions []quiz.Question) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearLocked()
	m.questions = append([]quiz.Question(nil), questions...)
	if len(m.questions) == 0 {
		m.completed = true
		m.state = StateCompleted
		v := m.viewLocked()
		if m.hooks.OnCompleted != nil {
			m.hooks.OnCompleted(v)
		}
		return v
	}
	m.state = StateActive
	v := m.viewLocked()
	m.log.Debugw("session loaded", "questions", len(m.questions))
	if m.hooks.OnQuestion != nil {
		m.hooks.OnQuestion(v)
	}
	return v
}

// SubmitAnswer grades answerID against the current question and opens the
// feedback window. A correct answer adds the question's points to the
// ledger. Rejected submissions leave the session untouched.
func (m *Machine) SubmitAnswer(ctx context.Context, answerID int) (Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.acceptingLocked(); err != nil {
		return Feedback{}, err
	}
	q := m.questions[m.cursor]
	if !q.HasOption(answerID) {
		return Feedback{}, fmt.Errorf("%w: %d", ErrInvalidAnswer, answerID)
	}

	fb := Feedback{
		QuestionID:    q.ID,
		AnswerID:      answerID,
		Correct:       q.IsCorrect(answerID),
		CorrectAnswer: q.CorrectAnswer,
	}
	if fb.Correct {
		if _, err := m.ledger.Add(ctx, q.Points); err != nil {
			return Feedback{}, fmt.Errorf("award points: %w", err)
		}
		fb.Points = q.Points
		fb.Message = fmt.Sprintf(MsgCorrect, q.Points)
		m.answered[q.ID] = true
		m.roundPoints += q.Points
		m.record("correct")
	} else {
		fb.Message = fmt.Sprintf(MsgIncorrect, q.CorrectAnswer.Description)
		m.record("incorrect")
	}

	m.state = StateFeedback
	m.feedback = &fb
	epoch := m.epoch
	m.timer = m.clock.AfterFunc(m.window, func() { m.closeFeedback(epoch) })

	if m.hooks.OnFeedback != nil {
		m.hooks.OnFeedback(fb, m.viewLocked())
	}
	return fb, nil
}

// Skip advances past the current question without awarding points.
func (m *Machine) Skip() (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.acceptingLocked(); err != nil {
		return m.viewLocked(), err
	}
	m.record("skipped")
	m.advanceLocked()
	return m.viewLocked(), nil
}

// Reset returns to the welcome state from any state.
func (m *Machine) Reset() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearLocked()
	m.state = StateWelcome
	v := m.viewLocked()
	if m.hooks.OnReset != nil {
		m.hooks.OnReset(v)
	}
	return v
}

func (m *Machine) acceptingLocked() error {
	switch m.state {
	case StateActive:
		return nil
	case StateFeedback:
		return ErrFeedbackOpen
	default:
		return ErrNotActive
	}
}

func (m *Machine) closeFeedback(epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch || m.state != StateFeedback {
		return
	}
	m.feedback = nil
	m.timer = nil
	if m.hooks.OnFeedbackClosed != nil {
		m.hooks.OnFeedbackClosed(m.viewLocked())
	}
	m.advanceLocked()
}

func (m *Machine) advanceLocked() {
	m.cursor++
	if m.cursor < len(m.questions) {
		m.state = StateActive
		if m.hooks.OnQuestion != nil {
			m.hooks.OnQuestion(m.viewLocked())
		}
		return
	}
	m.completed = true
	m.state = StateCompleted
	m.log.Debugw("session completed", "roundPoints", m.roundPoints, "correct", len(m.answered))
	if m.hooks.OnCompleted != nil {
		m.hooks.OnCompleted(m.viewLocked())
	}
}

// clearLocked drops the session and invalidates any pending feedback timer.
func (m *Machine) clearLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.epoch++
	m.questions = nil
	m.cursor = 0
	m.answered = map[int]bool{}
	m.completed = false
	m.feedback = nil
	m.roundPoints = 0
}

func (m *Machine) record(result string) {
	if m.metrics != nil {
		m.metrics.Answer(result)
	}
}

func (m *Machine) viewLocked() View {
	v := View{
		State:       m.state,
		Cursor:      m.cursor,
		Total:       len(m.questions),
		Answered:    make([]int, 0, len(m.answered)),
		Completed:   m.completed,
		RoundPoints: m.roundPoints,
	}
	for id := range m.answered {
		v.Answered = append(v.Answered, id)
	}
	sort.Ints(v.Answered)

	switch m.state {
	case StateWelcome:
		v.Message = MsgWelcome
	case StateCompleted:
		v.Message = fmt.Sprintf(MsgCompleted, m.roundPoints)
	case StateActive, StateFeedback:
		q := m.questions[m.cursor]
		v.Question = &q
	}
	if m.feedback != nil {
		fb := *m.feedback
		v.Feedback = &fb
		v.Message = fb.Message
	}
	return v
}
