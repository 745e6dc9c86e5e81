package attempt

import (
	"errors"
	"fmt"

	"github.com/mind-engage/qtdeferred/internal/behaviour"
	"github.com/mind-engage/qtdeferred/internal/question"
)

var (
	ErrNotFound    = errors.New("attempt not found")
	ErrConflict    = errors.New("attempt changed concurrently")
	ErrInvalidData = errors.New("invalid step data")
)

// Step is one committed step of an attempt.
type Step struct {
	Seq       int               `json:"seq"`
	State     question.State    `json:"state"`
	Fraction  *float64          `json:"fraction,omitempty"`
	Data      map[string]string `json:"data"`
	UserID    string            `json:"user_id"`
	CreatedAt int64             `json:"created_at"`
}

// Attempt is one user's interaction with one question.
type Attempt struct {
	ID              string         `json:"id"`
	QuestionID      string         `json:"question_id"`
	UserID          string         `json:"user_id"`
	Behaviour       string         `json:"behaviour"`
	MaxMark         float64        `json:"max_mark"`
	State           question.State `json:"state"`              // state of the latest step
	Fraction        *float64       `json:"fraction,omitempty"` // fraction of the latest step
	ResponseSummary string         `json:"response_summary,omitempty"`
	ResumedFrom     string         `json:"resumed_from,omitempty"`
	CreatedAt       int64          `json:"created_at"`
	UpdatedAt       int64          `json:"updated_at"`
	Steps           []Step         `json:"steps,omitempty"`
}

// Mark is the fraction scaled to the question's max mark, nil when ungraded.
func (a Attempt) Mark() *float64 {
	if a.Fraction == nil {
		return nil
	}
	m := *a.Fraction * a.MaxMark
	return &m
}

func (a Attempt) clone() Attempt {
	out := a
	if a.Fraction != nil {
		f := *a.Fraction
		out.Fraction = &f
	}
	out.Steps = make([]Step, len(a.Steps))
	for i, s := range a.Steps {
		out.Steps[i] = s.clone()
	}
	return out
}

func (s Step) clone() Step {
	out := s
	if s.Fraction != nil {
		f := *s.Fraction
		out.Fraction = &f
	}
	out.Data = make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		out.Data[k] = v
	}
	return out
}

// apply records st as the newest step of a.
func (a *Attempt) apply(st Step, summary *string) error {
	if st.Seq != len(a.Steps) {
		return fmt.Errorf("%w: step %d, attempt has %d steps", ErrConflict, st.Seq, len(a.Steps))
	}
	a.Steps = append(a.Steps, st)
	a.State = st.State
	a.Fraction = st.Fraction
	a.UpdatedAt = st.CreatedAt
	if summary != nil {
		a.ResponseSummary = *summary
	}
	return nil
}

// History exposes an attempt to behaviours.
func History(a *Attempt) behaviour.Attempt { return history{a: a} }

type history struct{ a *Attempt }

func (h history) State() question.State {
	if len(h.a.Steps) == 0 {
		return question.StateNotStarted
	}
	return h.a.State
}

func (h history) LastStep() behaviour.Step {
	if len(h.a.Steps) == 0 {
		return nil
	}
	return stepView{s: h.a.Steps[len(h.a.Steps)-1]}
}

func (h history) Step(i int) (behaviour.Step, error) {
	if i < 0 || i >= len(h.a.Steps) {
		return nil, fmt.Errorf("attempt %s has no step %d", h.a.ID, i)
	}
	return stepView{s: h.a.Steps[i]}, nil
}

func (h history) Steps() []behaviour.Step {
	out := make([]behaviour.Step, len(h.a.Steps))
	for i, s := range h.a.Steps {
		out[i] = stepView{s: s}
	}
	return out
}

type stepView struct{ s Step }

func (v stepView) QtData() question.Response {
	qt, _ := behaviour.SplitData(v.s.Data)
	return qt
}

func (v stepView) AllData() map[string]string {
	out := make(map[string]string, len(v.s.Data))
	for k, val := range v.s.Data {
		out[k] = val
	}
	return out
}

