package question

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// numeric supports exact string match or numeric tolerance via AnswerKey.
// Examples:
//
//	AnswerKey: ["3.14159", "tol=0.01"]   // absolute tolerance
//	AnswerKey: ["100", "reltol=0.05"]    // 5% relative tolerance
type numeric struct{ base }

func (q numeric) IsCompleteResponse(r Response) bool {
	_, ok := parseFloatLoose(r.Answer())
	return ok
}

func (q numeric) IsGradableResponse(r Response) bool { return q.IsCompleteResponse(r) }

func (q numeric) GradeResponse(_ context.Context, r Response) (GradeResult, error) {
	str := strings.TrimSpace(r.Answer())
	if len(q.def.AnswerKey) == 0 {
		return Graded(0), nil
	}
	target := q.def.AnswerKey[0]
	if str == target {
		return Graded(1).WithExtra(VarMatchedKey, target).WithExtra(VarAbsError, "0"), nil
	}

	rv, rOK := parseFloatLoose(str)
	tv, tOK := parseFloatLoose(target)
	if !rOK || !tOK {
		return Graded(0), nil
	}

	diff := math.Abs(rv - tv)
	res := Graded(0)
	absTol, relTol := parseTolerances(q.def.AnswerKey[1:])
	if (absTol >= 0 && diff <= absTol) || (relTol >= 0 && diff <= relTol*math.Abs(tv)) {
		res = Graded(1).WithExtra(VarMatchedKey, target)
	}
	return res.WithExtra(VarAbsError, strconv.FormatFloat(diff, 'g', -1, 64)), nil
}

func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if sp := strings.Fields(s); len(sp) > 0 {
		if v, err := strconv.ParseFloat(sp[0], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func parseTolerances(keys []string) (absTol float64, relTol float64) {
	absTol, relTol = -1, -1
	for _, k := range keys {
		k = strings.TrimSpace(strings.ToLower(k))
		if v, ok := strings.CutPrefix(k, "tol="); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				absTol = f
			}
		}
		if v, ok := strings.CutPrefix(k, "reltol="); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				relTol = f
			}
		}
	}
	return
}
