package behaviour

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mind-engage/qtdeferred/internal/question"
)

var (
	// ErrAlreadySet is returned when a set-once field of a pending step is written twice.
	ErrAlreadySet = errors.New("pending step field already set")
	// ErrCoding marks a contract violation by the caller. It is never recoverable.
	ErrCoding = errors.New("coding error")
	// ErrUnknownBehaviour is returned by New for a name nothing registered.
	ErrUnknownBehaviour = errors.New("unknown behaviour")
)

// Behaviour vars are step data names starting with this prefix.
const behaviourVarPrefix = "-"

// VarFinish is the behaviour var that asks for the attempt to be finished.
const VarFinish = "-finish"

// Step is one committed point-in-time snapshot of an attempt.
type Step interface {
	// QtData returns the question type data recorded at this step
	// (everything except behaviour vars).
	QtData() question.Response
	// AllData returns every field recorded at this step, including behaviour vars.
	AllData() map[string]string
}

// Attempt is the read-only history a behaviour decides against.
type Attempt interface {
	State() question.State
	LastStep() Step
	Step(i int) (Step, error)
	// Steps returns every step in chronological order.
	Steps() []Step
}

// SplitData separates qt data from behaviour vars.
func SplitData(all map[string]string) (qt question.Response, behaviour map[string]string) {
	qt = question.Response{}
	behaviour = map[string]string{}
	for k, v := range all {
		if strings.HasPrefix(k, behaviourVarPrefix) {
			behaviour[k] = v
			continue
		}
		qt[k] = v
	}
	return qt, behaviour
}

// PendingStep is the step being built before commit. Fraction, state and the
// response summary can each be set once; qt vars can be added freely.
type PendingStep struct {
	data     map[string]string
	fraction *float64
	state    question.State
	summary  *string
	qtVars   map[string]string
}

// NewPendingStep builds a pending step carrying the submitted data.
func NewPendingStep(submitted map[string]string) *PendingStep {
	d := make(map[string]string, len(submitted))
	for k, v := range submitted {
		d[k] = v
	}
	return &PendingStep{data: d, qtVars: map[string]string{}}
}

func (p *PendingStep) SetFraction(f float64) error {
	if p.fraction != nil {
		return fmt.Errorf("fraction: %w", ErrAlreadySet)
	}
	p.fraction = &f
	return nil
}

func (p *PendingStep) SetState(s question.State) error {
	if p.state != "" {
		return fmt.Errorf("state: %w", ErrAlreadySet)
	}
	if s == "" {
		return fmt.Errorf("%w: empty state", ErrCoding)
	}
	p.state = s
	return nil
}

// SetQtVar records an auxiliary qt var. Later writes to the same name replace earlier ones.
func (p *PendingStep) SetQtVar(name, value string) error {
	if name == "" || strings.HasPrefix(name, behaviourVarPrefix) {
		return fmt.Errorf("%w: invalid qt var name %q", ErrCoding, name)
	}
	p.qtVars[name] = value
	return nil
}

func (p *PendingStep) SetNewResponseSummary(s string) error {
	if p.summary != nil {
		return fmt.Errorf("response summary: %w", ErrAlreadySet)
	}
	p.summary = &s
	return nil
}

// QtData is the submitted question data of this step.
func (p *PendingStep) QtData() question.Response {
	qt, _ := SplitData(p.data)
	return qt
}

func (p *PendingStep) BehaviourVar(name string) (string, bool) {
	v, ok := p.data[name]
	return v, ok
}

func (p *PendingStep) Fraction() *float64 { return p.fraction }

func (p *PendingStep) State() question.State { return p.state }

// ResponseSummary returns the summary and whether one was set.
func (p *PendingStep) ResponseSummary() (string, bool) {
	if p.summary == nil {
		return "", false
	}
	return *p.summary, true
}

// QtVars returns a copy of the auxiliary vars set on the step.
func (p *PendingStep) QtVars() map[string]string {
	out := make(map[string]string, len(p.qtVars))
	for k, v := range p.qtVars {
		out[k] = v
	}
	return out
}

// Data is what the host persists for the step: the submitted data overlaid
// with the qt vars set during processing.
func (p *PendingStep) Data() map[string]string {
	out := make(map[string]string, len(p.data)+len(p.qtVars))
	for k, v := range p.data {
		out[k] = v
	}
	for k, v := range p.qtVars {
		out[k] = v
	}
	return out
}

// IsUntouched reports whether processing has written nothing to the step.
func (p *PendingStep) IsUntouched() bool {
	return p.fraction == nil && p.state == "" && p.summary == nil && len(p.qtVars) == 0
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
