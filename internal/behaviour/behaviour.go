// Package behaviour decides how the steps of a question attempt are processed.
package behaviour

import (
	"context"
	"fmt"

	"github.com/mind-engage/qtdeferred/internal/question"
)

// Outcome tells the host whether to persist the pending step.
type Outcome int

const (
	Keep Outcome = iota
	Discard
)

func (o Outcome) String() string {
	switch o {
	case Keep:
		return "keep"
	case Discard:
		return "discard"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Behaviour processes the actions a student takes on one question attempt.
type Behaviour interface {
	Name() string
	// ProcessAction routes the pending step to save or finish processing.
	ProcessAction(ctx context.Context, p *PendingStep) (Outcome, error)
	ProcessSave(ctx context.Context, p *PendingStep) (Outcome, error)
	ProcessFinish(ctx context.Context, p *PendingStep) (Outcome, error)
	// ResumeData folds the data of every step into one mapping for a follow-on attempt.
	ResumeData() (map[string]string, error)
}

func dispatch(ctx context.Context, b Behaviour, p *PendingStep) (Outcome, error) {
	if _, ok := p.BehaviourVar(VarFinish); ok {
		return b.ProcessFinish(ctx, p)
	}
	return b.ProcessSave(ctx, p)
}

// ---- Registry ----

// Factory builds a behaviour bound to one attempt and its question.
type Factory func(a Attempt, q question.Question) Behaviour

type registry struct {
	m map[string]Factory
}

var behaviours = registry{m: map[string]Factory{}}

// Register associates a behaviour name with its factory.
// Typically called from init().
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	behaviours.m[name] = f
}

// New builds the named behaviour for an attempt.
func New(name string, a Attempt, q question.Question) (Behaviour, error) {
	f, ok := behaviours.m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBehaviour, name)
	}
	if a == nil || q == nil {
		return nil, fmt.Errorf("%w: behaviour %s needs an attempt and a question", ErrCoding, name)
	}
	return f(a, q), nil
}

// Known reports whether a behaviour with this name is registered.
func Known(name string) bool {
	_, ok := behaviours.m[name]
	return ok
}

// Names lists the registered behaviours in sorted order.
func Names() []string { return sortedKeys(behaviours.m) }
