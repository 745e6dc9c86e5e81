package behaviour

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mind-engage/qtdeferred/internal/question"
)

func finishStep() *PendingStep {
	return NewPendingStep(map[string]string{VarFinish: "1"})
}

func TestQtProcessFinish_AlreadyFinishedDiscards(t *testing.T) {
	for _, st := range []question.State{
		question.StateGradedRight, question.StateGaveUp, question.StateNeedsGrading, question.StateMangrPartial,
	} {
		t.Run(string(st), func(t *testing.T) {
			qa := attemptWith([]question.State{question.StateTodo, st}, map[string]string{}, map[string]string{"answer": "x"})
			q := &fakeQuestion{gradable: true, result: question.Graded(1)}
			p := finishStep()

			out, err := NewQtDeferredFeedback(qa, q).ProcessFinish(context.Background(), p)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != Discard {
				t.Fatalf("expected discard, got %s", out)
			}
			if !p.IsUntouched() {
				t.Fatalf("pending step was modified: %+v", p)
			}
			if len(q.graded) != 0 {
				t.Fatalf("question should not be graded")
			}
		})
	}
}

func TestQtProcessFinish_NotGradableGivesUp(t *testing.T) {
	qa := attemptWith([]question.State{question.StateTodo}, map[string]string{"answer": ""})
	q := &fakeQuestion{gradable: false, summary: "(no answer)"}
	p := finishStep()

	out, err := NewQtDeferredFeedback(qa, q).ProcessFinish(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != Keep {
		t.Fatalf("expected keep, got %s", out)
	}
	if p.State() != question.StateGaveUp {
		t.Fatalf("state = %q, want gaveup", p.State())
	}
	if p.Fraction() != nil {
		t.Fatalf("fraction should be unset, got %v", *p.Fraction())
	}
	if s, ok := p.ResponseSummary(); !ok || s != "(no answer)" {
		t.Fatalf("summary = %q (set=%v)", s, ok)
	}
	if len(p.QtVars()) != 0 {
		t.Fatalf("no qt vars expected, got %v", p.QtVars())
	}
}

func TestQtProcessFinish_GradableCopiesExtras(t *testing.T) {
	cases := []struct {
		name   string
		result question.GradeResult
		want   map[string]string
	}{
		{
			name:   "partial with hint",
			result: question.GradeResult{Fraction: ptr(0.5), State: question.StateGradedPartial, Extras: map[string]string{"hint_used": "true"}},
			want:   map[string]string{"hint_used": "true"},
		},
		{
			name:   "no extras",
			result: question.Graded(1),
			want:   map[string]string{},
		},
		{
			name: "several extras",
			result: question.GradeResult{Fraction: ptr(0), State: question.StateGradedWrong, Extras: map[string]string{
				"_feedback": "try again", "_tries": "3", "score_detail": "0/4",
			}},
			want: map[string]string{"_feedback": "try again", "_tries": "3", "score_detail": "0/4"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			qa := attemptWith([]question.State{question.StateTodo, question.StateComplete},
				map[string]string{}, map[string]string{"answer": "42"})
			q := &fakeQuestion{gradable: true, result: tc.result}
			p := finishStep()

			out, err := NewQtDeferredFeedback(qa, q).ProcessFinish(context.Background(), p)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != Keep {
				t.Fatalf("expected keep, got %s", out)
			}
			if p.Fraction() == nil || *p.Fraction() != *tc.result.Fraction {
				t.Fatalf("fraction = %v, want %v", p.Fraction(), *tc.result.Fraction)
			}
			if p.State() != tc.result.State {
				t.Fatalf("state = %q, want %q", p.State(), tc.result.State)
			}
			if diff := cmp.Diff(tc.want, p.QtVars()); diff != "" {
				t.Fatalf("qt vars mismatch (-want +got):\n%s", diff)
			}
			if s, ok := p.ResponseSummary(); !ok || s != "42" {
				t.Fatalf("summary = %q (set=%v)", s, ok)
			}
			if diff := cmp.Diff([]question.Response{{"answer": "42"}}, q.graded); diff != "" {
				t.Fatalf("graded responses mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQtProcessFinish_UngradedFractionLeftUnset(t *testing.T) {
	qa := attemptWith([]question.State{question.StateComplete}, map[string]string{"answer": "an essay"})
	q := &fakeQuestion{gradable: true, result: question.GradeResult{State: question.StateNeedsGrading}}
	p := finishStep()

	if _, err := NewQtDeferredFeedback(qa, q).ProcessFinish(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Fraction() != nil || p.State() != question.StateNeedsGrading {
		t.Fatalf("got fraction=%v state=%q", p.Fraction(), p.State())
	}
}

func TestQtProcessFinish_PropagatesGradeError(t *testing.T) {
	boom := errors.New("grader down")
	qa := attemptWith([]question.State{question.StateComplete}, map[string]string{"answer": "x"})
	q := &fakeQuestion{gradable: true, gradeErr: boom}

	_, err := NewQtDeferredFeedback(qa, q).ProcessFinish(context.Background(), finishStep())
	if !errors.Is(err, boom) {
		t.Fatalf("expected grader error, got %v", err)
	}
}

func TestQtProcessFinish_ResultWithoutStateIsCodingError(t *testing.T) {
	qa := attemptWith([]question.State{question.StateComplete}, map[string]string{"answer": "x"})
	q := &fakeQuestion{gradable: true, result: question.GradeResult{Fraction: ptr(1)}}

	_, err := NewQtDeferredFeedback(qa, q).ProcessFinish(context.Background(), finishStep())
	if !errors.Is(err, ErrCoding) {
		t.Fatalf("expected coding error, got %v", err)
	}
}

func TestQtProcessFinish_ReusedPendingStepFails(t *testing.T) {
	qa := attemptWith([]question.State{question.StateComplete}, map[string]string{"answer": "x"})
	q := &fakeQuestion{gradable: true, result: question.Graded(1)}
	p := finishStep()
	b := NewQtDeferredFeedback(qa, q)

	if _, err := b.ProcessFinish(context.Background(), p); err != nil {
		t.Fatalf("first finish: %v", err)
	}
	if _, err := b.ProcessFinish(context.Background(), p); !errors.Is(err, ErrAlreadySet) {
		t.Fatalf("expected ErrAlreadySet, got %v", err)
	}
}

func TestDeferredFeedback_FinishIgnoresExtras(t *testing.T) {
	qa := attemptWith([]question.State{question.StateComplete}, map[string]string{"answer": "x"})
	q := &fakeQuestion{gradable: true, result: question.Graded(1).WithExtra("hint_used", "true")}
	p := finishStep()

	out, err := NewDeferredFeedback(qa, q).ProcessFinish(context.Background(), p)
	if err != nil || out != Keep {
		t.Fatalf("out=%s err=%v", out, err)
	}
	if len(p.QtVars()) != 0 {
		t.Fatalf("base behaviour must not store qt vars, got %v", p.QtVars())
	}
	if p.State() != question.StateGradedRight {
		t.Fatalf("state = %q", p.State())
	}
}

func TestProcessAction_RoutesFinishToOverride(t *testing.T) {
	qa := attemptWith([]question.State{question.StateComplete}, map[string]string{"answer": "x"})
	q := &fakeQuestion{gradable: true, result: question.Graded(1).WithExtra("k", "v")}
	b, err := New(NameQtDeferredFeedback, qa, q)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	p := finishStep()
	if _, err := b.ProcessAction(context.Background(), p); err != nil {
		t.Fatalf("process action: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"k": "v"}, p.QtVars()); diff != "" {
		t.Fatalf("qt vars (-want +got):\n%s", diff)
	}
}

func TestProcessSave(t *testing.T) {
	cases := []struct {
		name      string
		state     question.State
		last      map[string]string
		submitted map[string]string
		complete  bool
		want      Outcome
		wantState question.State
		wantErr   error
	}{
		{name: "complete", state: question.StateTodo, last: map[string]string{}, submitted: map[string]string{"answer": "a"}, complete: true, want: Keep, wantState: question.StateComplete},
		{name: "incomplete", state: question.StateTodo, last: map[string]string{}, submitted: map[string]string{"answer": ""}, want: Keep, wantState: question.StateTodo},
		{name: "same response", state: question.StateComplete, last: map[string]string{"answer": "a"}, submitted: map[string]string{"answer": "a"}, complete: true, want: Discard},
		{name: "finished", state: question.StateGradedRight, last: map[string]string{"answer": "a"}, submitted: map[string]string{"answer": "b"}, want: Discard},
		{name: "not started", state: question.StateNotStarted, last: map[string]string{}, submitted: map[string]string{"answer": "b"}, want: Discard, wantErr: ErrCoding},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			qa := attemptWith([]question.State{tc.state}, tc.last)
			q := &fakeQuestion{complete: tc.complete}
			p := NewPendingStep(tc.submitted)

			out, err := NewQtDeferredFeedback(qa, q).ProcessAction(context.Background(), p)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if out != tc.want {
				t.Fatalf("outcome = %s, want %s", out, tc.want)
			}
			if p.State() != tc.wantState {
				t.Fatalf("state = %q, want %q", p.State(), tc.wantState)
			}
		})
	}
}

func TestNew_UnknownBehaviour(t *testing.T) {
	_, err := New("adaptive", attemptWith(nil), &fakeQuestion{})
	if !errors.Is(err, ErrUnknownBehaviour) {
		t.Fatalf("expected ErrUnknownBehaviour, got %v", err)
	}
	if !Known(NameDeferredFeedback) || !Known(NameQtDeferredFeedback) {
		t.Fatalf("built-in behaviours not registered: %v", Names())
	}
}

func TestNames_Sorted(t *testing.T) {
	want := []string{NameDeferredFeedback, NameQtDeferredFeedback}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
}
