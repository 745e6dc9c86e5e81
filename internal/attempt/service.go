package attempt

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/qtdeferred/internal/behaviour"
	"github.com/mind-engage/qtdeferred/internal/metrics"
	"github.com/mind-engage/qtdeferred/internal/question"
	syncx "github.com/mind-engage/qtdeferred/internal/sync"
)

// Questions resolves question ids to gradable questions.
type Questions interface {
	Get(id string) (question.Question, error)
}

// EventSink receives an event for every committed step.
type EventSink interface {
	Append(ctx context.Context, e syncx.Event) error
}

type Service struct {
	store            Store
	questions        Questions
	events           EventSink
	metrics          *metrics.Metrics
	defaultBehaviour string
	now              func() time.Time
	newID            func() string
}

type ServiceOption func(*Service)

func WithEvents(e EventSink) ServiceOption         { return func(s *Service) { s.events = e } }
func WithMetrics(m *metrics.Metrics) ServiceOption { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) ServiceOption { return func(s *Service) { s.now = now } }
func WithIDs(newID func() string) ServiceOption    { return func(s *Service) { s.newID = newID } }

// WithDefaultBehaviour sets the behaviour used when Start is given none.
func WithDefaultBehaviour(name string) ServiceOption {
	return func(s *Service) { s.defaultBehaviour = name }
}

func NewService(store Store, questions Questions, opts ...ServiceOption) *Service {
	s := &Service{
		store:            store,
		questions:        questions,
		defaultBehaviour: behaviour.NameQtDeferredFeedback,
		now:              time.Now,
		newID:            uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start creates an attempt whose first step holds seed (may be nil).
func (s *Service) Start(ctx context.Context, questionID, userID, behaviourName string, seed map[string]string) (Attempt, error) {
	return s.start(ctx, questionID, userID, userID, behaviourName, seed, "")
}

// start creates an attempt owned by owner; actor is recorded on its first step.
func (s *Service) start(ctx context.Context, questionID, owner, actor, behaviourName string, seed map[string]string, from string) (Attempt, error) {
	if behaviourName == "" {
		behaviourName = s.defaultBehaviour
	}
	if !behaviour.Known(behaviourName) {
		return Attempt{}, fmt.Errorf("%w: %q", behaviour.ErrUnknownBehaviour, behaviourName)
	}
	q, err := s.questions.Get(questionID)
	if err != nil {
		return Attempt{}, err
	}

	now := s.now().Unix()
	first := Step{Seq: 0, State: question.StateTodo, Data: map[string]string{}, UserID: actor, CreatedAt: now}
	for k, v := range seed {
		first.Data[k] = v
	}
	a := Attempt{
		ID:          s.newID(),
		QuestionID:  questionID,
		UserID:      owner,
		Behaviour:   behaviourName,
		MaxMark:     q.MaxMark(),
		State:       first.State,
		ResumedFrom: from,
		CreatedAt:   now,
		UpdatedAt:   now,
		Steps:       []Step{first},
	}
	if err := s.store.Create(ctx, a); err != nil {
		return Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	s.emit(ctx, syncx.TypeAttemptStarted, a, first)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (Attempt, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	return s.store.List(ctx, opts)
}

// Save records a new response. Behaviour vars cannot be submitted this way.
func (s *Service) Save(ctx context.Context, id, userID string, data map[string]string) (Attempt, behaviour.Outcome, error) {
	for k := range data {
		if strings.HasPrefix(k, "-") {
			return Attempt{}, behaviour.Discard, fmt.Errorf("%w: field %q is reserved", ErrInvalidData, k)
		}
	}
	return s.process(ctx, id, userID, data, "save")
}

// Finish grades the last saved response and closes the attempt.
// Finishing an already finished attempt is a no-op that returns Discard.
func (s *Service) Finish(ctx context.Context, id, userID string) (Attempt, behaviour.Outcome, error) {
	return s.process(ctx, id, userID, map[string]string{behaviour.VarFinish: "1"}, "finish")
}

// ResumeData folds the data of every step of the attempt.
func (s *Service) ResumeData(ctx context.Context, id string) (map[string]string, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := s.behaviourFor(&a)
	if err != nil {
		return nil, err
	}
	return b.ResumeData()
}

// Resume starts a follow-on attempt of the same question seeded with the
// resume data of attempt id. The new attempt belongs to the owner of the old
// one; userID, the caller, is recorded on its first step.
func (s *Service) Resume(ctx context.Context, id, userID string) (Attempt, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return Attempt{}, err
	}
	b, err := s.behaviourFor(&a)
	if err != nil {
		return Attempt{}, err
	}
	data, err := b.ResumeData()
	if err != nil {
		return Attempt{}, err
	}
	if userID == "" {
		userID = a.UserID
	}
	return s.start(ctx, a.QuestionID, a.UserID, userID, a.Behaviour, data, a.ID)
}

func (s *Service) behaviourFor(a *Attempt) (behaviour.Behaviour, error) {
	q, err := s.questions.Get(a.QuestionID)
	if err != nil {
		return nil, err
	}
	return behaviour.New(a.Behaviour, History(a), q)
}

func (s *Service) process(ctx context.Context, id, userID string, submitted map[string]string, action string) (Attempt, behaviour.Outcome, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return Attempt{}, behaviour.Discard, err
	}
	b, err := s.behaviourFor(&a)
	if err != nil {
		return Attempt{}, behaviour.Discard, err
	}

	pending := behaviour.NewPendingStep(submitted)
	out, err := b.ProcessAction(ctx, pending)
	if err != nil {
		return Attempt{}, behaviour.Discard, fmt.Errorf("%s attempt %s: %w", action, id, err)
	}
	s.metrics.ObserveAction(b.Name(), action, out.String())
	if out == behaviour.Discard {
		return a, out, nil
	}

	if userID == "" {
		userID = a.UserID
	}
	st := Step{
		Seq:       len(a.Steps),
		State:     pending.State(),
		Fraction:  pending.Fraction(),
		Data:      pending.Data(),
		UserID:    userID,
		CreatedAt: s.now().Unix(),
	}
	var summary *string
	if sum, ok := pending.ResponseSummary(); ok {
		summary = &sum
	}
	updated, err := s.store.AppendStep(ctx, id, st, summary)
	if err != nil {
		return Attempt{}, behaviour.Discard, fmt.Errorf("commit step: %w", err)
	}

	if st.State.IsFinished() {
		s.metrics.ObserveFinish(string(st.State), st.Fraction, len(pending.QtVars()))
		s.emit(ctx, syncx.TypeAttemptFinished, updated, st)
	} else {
		s.emit(ctx, syncx.TypeStepCommitted, updated, st)
	}
	return updated, out, nil
}

type stepEvent struct {
	AttemptID  string            `json:"attempt_id"`
	QuestionID string            `json:"question_id"`
	UserID     string            `json:"user_id"`
	Seq        int               `json:"seq"`
	State      question.State    `json:"state"`
	Fraction   *float64          `json:"fraction,omitempty"`
	Mark       *float64          `json:"mark,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// emit appends to the event log. The step is already committed, so a failure
// is logged and not returned.
func (s *Service) emit(ctx context.Context, typ string, a Attempt, st Step) {
	if s.events == nil {
		return
	}
	e, err := syncx.NewEvent(typ, a.ID, stepEvent{
		AttemptID:  a.ID,
		QuestionID: a.QuestionID,
		UserID:     a.UserID,
		Seq:        st.Seq,
		State:      st.State,
		Fraction:   st.Fraction,
		Mark:       a.Mark(),
		Data:       st.Data,
	})
	if err == nil {
		err = s.events.Append(ctx, e)
	}
	if err != nil {
		log.Printf("event log %s %s: %v", typ, a.ID, err)
	}
}
