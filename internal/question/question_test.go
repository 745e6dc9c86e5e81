package question

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustBuild(t *testing.T, d Definition, opts ...Option) Question {
	t.Helper()
	q, err := Build(d, opts...)
	if err != nil {
		t.Fatalf("build %s: %v", d.Type, err)
	}
	return q
}

func TestGradeResponse(t *testing.T) {
	choices := []Choice{{ID: "a", Label: "Two"}, {ID: "b", Label: "Four"}, {ID: "c", Label: "Five"}}
	cases := []struct {
		name     string
		def      Definition
		resp     Response
		opts     []Option
		fraction *float64
		state    State
		extras   map[string]string
	}{
		{name: "mcq single right", def: Definition{Type: "mcq_single", AnswerKey: []string{"b"}}, resp: Response{"answer": "b"},
			fraction: f(1), state: StateGradedRight, extras: map[string]string{VarMatchedKey: "b"}},
		{name: "true false wrong", def: Definition{Type: "true_false", AnswerKey: []string{"true"}}, resp: Response{"answer": "false"},
			fraction: f(0), state: StateGradedWrong},
		{name: "mcq multi exact", def: Definition{Type: "mcq_multi", AnswerKey: []string{"a", "c"}}, resp: Response{"answer": "c, a"},
			fraction: f(1), state: StateGradedRight, extras: map[string]string{VarSelected: "a,c", VarMatchedKey: "a,c"}},
		{name: "mcq multi choice fields", def: Definition{Type: "mcq_multi", AnswerKey: []string{"a", "c"}}, resp: Response{"choice0": "1", "choice2": "1"},
			fraction: f(1), state: StateGradedRight, extras: map[string]string{VarSelected: "a,c", VarMatchedKey: "a,c"}},
		{name: "mcq multi unticked choice", def: Definition{Type: "mcq_multi", AnswerKey: []string{"a", "c"}}, resp: Response{"choice0": "1", "choice1": "0", "choice9": "1"},
			fraction: f(0.5), state: StateGradedPartial, extras: map[string]string{VarSelected: "a"}},
		{name: "mcq multi partial", def: Definition{Type: "mcq_multi", AnswerKey: []string{"a", "c"}}, resp: Response{"answer": "a"},
			fraction: f(0.5), state: StateGradedPartial, extras: map[string]string{VarSelected: "a"}},
		{name: "mcq multi false positive", def: Definition{Type: "mcq_multi", AnswerKey: []string{"a", "c"}}, resp: Response{"answer": "a,b"},
			fraction: f(0), state: StateGradedWrong, extras: map[string]string{VarSelected: "a,b"}},
		{name: "mcq multi partial disabled", def: Definition{Type: "mcq_multi", AnswerKey: []string{"a", "c"}}, resp: Response{"answer": "a"},
			opts: []Option{WithPartialMulti(false)}, fraction: f(0), state: StateGradedWrong, extras: map[string]string{VarSelected: "a"}},
		{name: "short word normalised", def: Definition{Type: "short_word", AnswerKey: []string{"New  York"}}, resp: Response{"answer": "new york!"},
			fraction: f(1), state: StateGradedRight, extras: map[string]string{VarMatchedKey: "New  York"}},
		{name: "short word fuzzy", def: Definition{Type: "short_word", AnswerKey: []string{"Paris"}}, resp: Response{"answer": "Pariss"},
			fraction: f(0.5), state: StateGradedPartial, extras: map[string]string{VarMatchedKey: "Paris", VarFuzzy: "1"}},
		{name: "short word fuzzy off", def: Definition{Type: "short_word", AnswerKey: []string{"Paris"}}, resp: Response{"answer": "Pariss"},
			opts: []Option{WithMaxEditDistance(0)}, fraction: f(0), state: StateGradedWrong},
		{name: "numeric within tolerance", def: Definition{Type: "numeric", AnswerKey: []string{"3.14159", "tol=0.01"}}, resp: Response{"answer": "3.14"},
			fraction: f(1), state: StateGradedRight, extras: map[string]string{VarMatchedKey: "3.14159", VarAbsError: "0.0015899999999997583"}},
		{name: "numeric relative", def: Definition{Type: "numeric", AnswerKey: []string{"100", "reltol=0.05"}}, resp: Response{"answer": "104 kg"},
			fraction: f(1), state: StateGradedRight, extras: map[string]string{VarMatchedKey: "100", VarAbsError: "4"}},
		{name: "numeric out of tolerance", def: Definition{Type: "numeric", AnswerKey: []string{"100", "reltol=0.05"}}, resp: Response{"answer": "110"},
			fraction: f(0), state: StateGradedWrong, extras: map[string]string{VarAbsError: "10"}},
		{name: "essay", def: Definition{Type: "essay"}, resp: Response{"answer": "words"},
			state: StateNeedsGrading},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.def.Choices = choices
			q := mustBuild(t, tc.def, tc.opts...)
			if !q.IsGradableResponse(tc.resp) {
				t.Fatalf("response should be gradable")
			}
			res, err := q.GradeResponse(context.Background(), tc.resp)
			if err != nil {
				t.Fatalf("grade: %v", err)
			}
			if diff := cmp.Diff(tc.fraction, res.Fraction); diff != "" {
				t.Errorf("fraction (-want +got):\n%s", diff)
			}
			if res.State != tc.state {
				t.Errorf("state = %q, want %q", res.State, tc.state)
			}
			if diff := cmp.Diff(tc.extras, res.Extras); diff != "" {
				t.Errorf("extras (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGradable(t *testing.T) {
	cases := []struct {
		typ  string
		resp Response
		want bool
	}{
		{"mcq_single", Response{}, false},
		{"mcq_single", Response{"answer": "  "}, false},
		{"mcq_multi", Response{"answer": " , "}, false},
		{"mcq_multi", Response{"answer": "a"}, true},
		{"numeric", Response{"answer": "abc"}, false},
		{"numeric", Response{"answer": "-2.5e3"}, true},
		{"mcq_multi", Response{"choice1": "1"}, true},
		{"mcq_multi", Response{"choice1": "0", "choice7": "1"}, false},
		{"short_word", Response{"answer": "!!!"}, false},
		{"short_word", Response{"answer": "x"}, true},
		{"essay", Response{"answer": "x"}, true},
	}
	choices := []Choice{{ID: "a"}, {ID: "b"}}
	for _, tc := range cases {
		q := mustBuild(t, Definition{Type: tc.typ, Choices: choices})
		if got := q.IsGradableResponse(tc.resp); got != tc.want {
			t.Errorf("%s %v: gradable = %v, want %v", tc.typ, tc.resp, got, tc.want)
		}
	}
}

func TestShortWord_PunctuationNeverMatches(t *testing.T) {
	q := mustBuild(t, Definition{Type: "short_word", AnswerKey: []string{"X"}})
	res, err := q.GradeResponse(context.Background(), Response{"answer": "!!!"})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateGradedWrong || len(res.Extras) != 0 {
		t.Fatalf("got state=%s extras=%v", res.State, res.Extras)
	}
}

func TestMcqMulti_SameResponseAcrossFields(t *testing.T) {
	q := mustBuild(t, Definition{Type: "mcq_multi", Choices: []Choice{{ID: "a"}, {ID: "b"}, {ID: "c"}}})
	if !q.IsSameResponse(Response{"answer": "c,a"}, Response{"choice0": "1", "choice2": "1"}) {
		t.Fatal("answer field and choice fields naming the same selection should be the same response")
	}
}

func TestSummariseResponse(t *testing.T) {
	choices := []Choice{{ID: "a", Label: "Two"}, {ID: "c", Label: "Five"}}
	single := mustBuild(t, Definition{Type: "mcq_single", Choices: choices})
	if got := single.SummariseResponse(Response{"answer": "a"}); got != "Two" {
		t.Errorf("single summary = %q", got)
	}
	multi := mustBuild(t, Definition{Type: "mcq_multi", Choices: choices})
	if got := multi.SummariseResponse(Response{"answer": "c,a,z"}); got != "Two; Five; z" {
		t.Errorf("multi summary = %q", got)
	}
	essayQ := mustBuild(t, Definition{Type: "essay"})
	long := strings.Repeat("word ", 100)
	if got := essayQ.SummariseResponse(Response{"answer": long}); len([]rune(got)) != summaryMaxLen || !strings.HasSuffix(got, "...") {
		t.Errorf("essay summary not shortened: %d runes", len([]rune(got)))
	}
}

func TestBuild_UnknownType(t *testing.T) {
	if _, err := Build(Definition{Type: "matching"}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestStatePredicates(t *testing.T) {
	cases := []struct {
		s                        State
		active, finished, graded bool
	}{
		{StateNotStarted, false, false, false},
		{StateTodo, true, false, false},
		{StateComplete, true, false, false},
		{StateGaveUp, false, true, false},
		{StateNeedsGrading, false, true, false},
		{StateGradedPartial, false, true, true},
		{StateMangrRight, false, true, true},
	}
	for _, tc := range cases {
		if tc.s.IsActive() != tc.active || tc.s.IsFinished() != tc.finished || tc.s.IsGraded() != tc.graded {
			t.Errorf("%s: active=%v finished=%v graded=%v", tc.s, tc.s.IsActive(), tc.s.IsFinished(), tc.s.IsGraded())
		}
	}
	for f, want := range map[float64]State{0: StateGradedWrong, 0.3: StateGradedPartial, 1: StateGradedRight, 0.99999999: StateGradedRight} {
		if got := StateForFraction(f); got != want {
			t.Errorf("StateForFraction(%v) = %s, want %s", f, got, want)
		}
	}
}

func TestLoadBank(t *testing.T) {
	b, err := LoadBank(strings.NewReader(`
questions:
  - {id: q1, type: numeric, points: 2, answer_key: ["4"]}
  - {id: q2, type: essay, points: 10}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"q1", "q2"}, b.IDs()); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
	q, err := b.Get("q1")
	if err != nil || q.MaxMark() != 2 {
		t.Fatalf("get q1: %v %v", q, err)
	}
	if _, err := b.Get("q3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := LoadBank(strings.NewReader("questions:\n  - {id: x, type: hotspot}\n")); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func f(v float64) *float64 { return &v }
