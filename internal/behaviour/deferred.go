package behaviour

import (
	"context"
	"fmt"

	"github.com/mind-engage/qtdeferred/internal/question"
)

const NameDeferredFeedback = "deferredfeedback"

func init() {
	Register(NameDeferredFeedback, func(a Attempt, q question.Question) Behaviour {
		return NewDeferredFeedback(a, q)
	})
}

// DeferredFeedback saves responses until the attempt is finished and only
// then grades the last one.
type DeferredFeedback struct {
	qa       Attempt
	question question.Question
}

func NewDeferredFeedback(a Attempt, q question.Question) *DeferredFeedback {
	return &DeferredFeedback{qa: a, question: q}
}

func (b *DeferredFeedback) Name() string { return NameDeferredFeedback }

func (b *DeferredFeedback) ProcessAction(ctx context.Context, p *PendingStep) (Outcome, error) {
	return dispatch(ctx, b, p)
}

func (b *DeferredFeedback) ProcessSave(_ context.Context, p *PendingStep) (Outcome, error) {
	st := b.qa.State()
	if st.IsFinished() {
		return Discard, nil
	}
	if !st.IsActive() {
		return Discard, fmt.Errorf("%w: question is not active (state %s), cannot save", ErrCoding, st)
	}
	resp := p.QtData()
	if last := b.qa.LastStep(); last != nil && b.question.IsSameResponse(last.QtData(), resp) {
		return Discard, nil
	}
	next := question.StateTodo
	if b.question.IsCompleteResponse(resp) {
		next = question.StateComplete
	}
	if err := p.SetState(next); err != nil {
		return Discard, err
	}
	return Keep, nil
}

// ProcessFinish grades the last saved response. Extras in the grade result are ignored.
func (b *DeferredFeedback) ProcessFinish(ctx context.Context, p *PendingStep) (Outcome, error) {
	return b.finish(ctx, p, false)
}

func (b *DeferredFeedback) ResumeData() (map[string]string, error) {
	return ResumeData(b.qa)
}

func (b *DeferredFeedback) finish(ctx context.Context, p *PendingStep, withQtVars bool) (Outcome, error) {
	if b.qa.State().IsFinished() {
		return Discard, nil
	}
	last := b.qa.LastStep()
	if last == nil {
		return Discard, fmt.Errorf("%w: attempt has no steps", ErrCoding)
	}
	resp := last.QtData()

	if !b.question.IsGradableResponse(resp) {
		if err := p.SetState(question.StateGaveUp); err != nil {
			return Discard, err
		}
	} else {
		res, err := b.question.GradeResponse(ctx, resp)
		if err != nil {
			return Discard, fmt.Errorf("grade response: %w", err)
		}
		if err := applyGrade(p, res, withQtVars); err != nil {
			return Discard, err
		}
	}

	if err := p.SetNewResponseSummary(b.question.SummariseResponse(resp)); err != nil {
		return Discard, err
	}
	return Keep, nil
}

func applyGrade(p *PendingStep, res question.GradeResult, withQtVars bool) error {
	if res.State == "" {
		return fmt.Errorf("%w: grade result without state", ErrCoding)
	}
	if res.Fraction != nil {
		if err := p.SetFraction(*res.Fraction); err != nil {
			return err
		}
	}
	if err := p.SetState(res.State); err != nil {
		return err
	}
	if !withQtVars {
		return nil
	}
	for _, name := range sortedKeys(res.Extras) {
		if err := p.SetQtVar(name, res.Extras[name]); err != nil {
			return err
		}
	}
	return nil
}
