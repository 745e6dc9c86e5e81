package question

import "sort"

// Response is the data a student submitted for a question, keyed by field name.
type Response map[string]string

// Names returns the field names in sorted order.
func (r Response) Names() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether r and o hold the same fields with the same values.
func (r Response) Equal(o Response) bool {
	if len(r) != len(o) {
		return false
	}
	for k, v := range r {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Answer is the conventional single-field response value.
func (r Response) Answer() string { return r[AnswerField] }

const AnswerField = "answer"
