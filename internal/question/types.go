package question

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	VarMatchedKey = "_matchedkey"
	VarFuzzy      = "_fuzzy"
	VarAbsError   = "_abserror"
	VarSelected   = "_selected"
)

const choiceFieldPrefix = "choice"

type base struct{ def Definition }

func (b base) ID() string       { return b.def.ID }
func (b base) MaxMark() float64 { return b.def.Points }

func (b base) IsSameResponse(prev, next Response) bool {
	return strings.TrimSpace(prev.Answer()) == strings.TrimSpace(next.Answer())
}

func (b base) IsCompleteResponse(r Response) bool {
	return strings.TrimSpace(r.Answer()) != ""
}

func (b base) IsGradableResponse(r Response) bool { return b.IsCompleteResponse(r) }

func (b base) SummariseResponse(r Response) string {
	return strings.TrimSpace(r.Answer())
}

func (b base) choiceLabel(id string) string {
	for _, c := range b.def.Choices {
		if c.ID == id && c.Label != "" {
			return c.Label
		}
	}
	return id
}

type mcqSingle struct{ base }

func (q mcqSingle) GradeResponse(_ context.Context, r Response) (GradeResult, error) {
	resp := strings.TrimSpace(r.Answer())
	for _, k := range q.def.AnswerKey {
		if resp == k {
			return Graded(1).WithExtra(VarMatchedKey, k), nil
		}
	}
	return Graded(0), nil
}

func (q mcqSingle) SummariseResponse(r Response) string {
	a := strings.TrimSpace(r.Answer())
	if a == "" {
		return ""
	}
	return q.choiceLabel(a)
}

// mcqMulti reads the selection from a comma separated "answer" field and
// from "choice<N>" fields set to "1", N indexing Definition.Choices.
type mcqMulti struct {
	base
	allowPartial bool
}

func (q mcqMulti) selection(r Response) []string {
	parts := strings.Split(r.Answer(), ",")
	for _, name := range r.Names() {
		n, ok := strings.CutPrefix(name, choiceFieldPrefix)
		if !ok || strings.TrimSpace(r[name]) != "1" {
			continue
		}
		i, err := strconv.Atoi(n)
		if err != nil || i < 0 || i >= len(q.def.Choices) {
			continue
		}
		parts = append(parts, q.def.Choices[i].ID)
	}

	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (q mcqMulti) IsCompleteResponse(r Response) bool { return len(q.selection(r)) > 0 }
func (q mcqMulti) IsGradableResponse(r Response) bool { return q.IsCompleteResponse(r) }

func (q mcqMulti) IsSameResponse(prev, next Response) bool {
	a, b := q.selection(prev), q.selection(next)
	return strings.Join(a, ",") == strings.Join(b, ",")
}

func (q mcqMulti) GradeResponse(_ context.Context, r Response) (GradeResult, error) {
	sel := q.selection(r)
	correct := toSet(q.def.AnswerKey)
	resp := toSet(sel)
	extra := strings.Join(sel, ",")

	if setEqual(correct, resp) {
		return Graded(1).WithExtra(VarSelected, extra).WithExtra(VarMatchedKey, extra), nil
	}
	for k := range resp {
		if _, ok := correct[k]; !ok {
			return Graded(0).WithExtra(VarSelected, extra), nil
		}
	}
	if !q.allowPartial || len(correct) == 0 {
		return Graded(0).WithExtra(VarSelected, extra), nil
	}
	return Graded(float64(len(resp)) / float64(len(correct))).WithExtra(VarSelected, extra), nil
}

func (q mcqMulti) SummariseResponse(r Response) string {
	sel := q.selection(r)
	labels := make([]string, 0, len(sel))
	for _, id := range sel {
		labels = append(labels, q.choiceLabel(id))
	}
	return strings.Join(labels, "; ")
}

type shortWord struct {
	base
	maxEdit int
}

// A response that normalises to nothing, such as bare punctuation, is not an answer.
func (q shortWord) IsCompleteResponse(r Response) bool { return normalize(r.Answer()) != "" }
func (q shortWord) IsGradableResponse(r Response) bool { return q.IsCompleteResponse(r) }

func (q shortWord) GradeResponse(_ context.Context, r Response) (GradeResult, error) {
	normResp := normalize(r.Answer())
	if normResp == "" {
		return Graded(0), nil
	}
	fuzzy := ""
	for _, k := range q.def.AnswerKey {
		nk := normalize(k)
		if nk == normResp {
			return Graded(1).WithExtra(VarMatchedKey, k), nil
		}
		if fuzzy == "" && q.maxEdit > 0 && levenshtein(nk, normResp) <= q.maxEdit {
			fuzzy = k
		}
	}
	if fuzzy != "" {
		return Graded(0.5).WithExtra(VarMatchedKey, fuzzy).WithExtra(VarFuzzy, "1"), nil
	}
	return Graded(0), nil
}

type essay struct{ base }

const summaryMaxLen = 200

// GradeResponse never scores an essay; a teacher has to.
func (essay) GradeResponse(_ context.Context, _ Response) (GradeResult, error) {
	return GradeResult{State: StateNeedsGrading}, nil
}

func (essay) SummariseResponse(r Response) string {
	s := strings.Join(strings.Fields(r.Answer()), " ")
	if utf8.RuneCountInString(s) <= summaryMaxLen {
		return s
	}
	return string([]rune(s)[:summaryMaxLen-3]) + "..."
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
