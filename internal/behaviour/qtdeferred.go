package behaviour

import (
	"context"

	"github.com/mind-engage/qtdeferred/internal/question"
)

const NameQtDeferredFeedback = "qtdeferredfeedback"

func init() {
	Register(NameQtDeferredFeedback, func(a Attempt, q question.Question) Behaviour {
		return NewQtDeferredFeedback(a, q)
	})
}

// QtDeferredFeedback is deferred feedback where every extra value produced by
// grading is stored as a qt var on the finishing step.
type QtDeferredFeedback struct {
	*DeferredFeedback
}

func NewQtDeferredFeedback(a Attempt, q question.Question) *QtDeferredFeedback {
	return &QtDeferredFeedback{DeferredFeedback: NewDeferredFeedback(a, q)}
}

func (b *QtDeferredFeedback) Name() string { return NameQtDeferredFeedback }

func (b *QtDeferredFeedback) ProcessAction(ctx context.Context, p *PendingStep) (Outcome, error) {
	return dispatch(ctx, b, p)
}

func (b *QtDeferredFeedback) ProcessFinish(ctx context.Context, p *PendingStep) (Outcome, error) {
	return b.finish(ctx, p, true)
}
