package behaviour

import (
	"context"
	"fmt"

	"github.com/mind-engage/qtdeferred/internal/question"
)

type fakeStep struct {
	data  map[string]string
	state question.State
}

func (s fakeStep) QtData() question.Response {
	qt, _ := SplitData(s.data)
	return qt
}
func (s fakeStep) AllData() map[string]string {
	out := map[string]string{}
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

type fakeAttempt struct {
	steps []fakeStep
}

func (a *fakeAttempt) State() question.State {
	if len(a.steps) == 0 {
		return question.StateNotStarted
	}
	return a.steps[len(a.steps)-1].state
}

func (a *fakeAttempt) LastStep() Step {
	if len(a.steps) == 0 {
		return nil
	}
	return a.steps[len(a.steps)-1]
}

func (a *fakeAttempt) Step(i int) (Step, error) {
	if i < 0 || i >= len(a.steps) {
		return nil, fmt.Errorf("step %d out of range", i)
	}
	return a.steps[i], nil
}

func (a *fakeAttempt) Steps() []Step {
	out := make([]Step, 0, len(a.steps))
	for _, s := range a.steps {
		out = append(out, s)
	}
	return out
}

func attemptWith(states []question.State, data ...map[string]string) *fakeAttempt {
	a := &fakeAttempt{}
	for i, st := range states {
		d := map[string]string{}
		if i < len(data) {
			d = data[i]
		}
		a.steps = append(a.steps, fakeStep{data: d, state: st})
	}
	return a
}

// fakeQuestion records the calls it receives.
type fakeQuestion struct {
	gradable bool
	complete bool
	result   question.GradeResult
	gradeErr error
	summary  string

	graded []question.Response
}

func (q *fakeQuestion) ID() string       { return "q1" }
func (q *fakeQuestion) MaxMark() float64 { return 1 }
func (q *fakeQuestion) IsCompleteResponse(question.Response) bool {
	return q.complete
}
func (q *fakeQuestion) IsGradableResponse(question.Response) bool {
	return q.gradable
}
func (q *fakeQuestion) IsSameResponse(a, b question.Response) bool { return a.Equal(b) }
func (q *fakeQuestion) GradeResponse(_ context.Context, r question.Response) (question.GradeResult, error) {
	q.graded = append(q.graded, r)
	return q.result, q.gradeErr
}
func (q *fakeQuestion) SummariseResponse(r question.Response) string {
	if q.summary != "" {
		return q.summary
	}
	return r.Answer()
}

func ptr(f float64) *float64 { return &f }
