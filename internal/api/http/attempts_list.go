package http

import (
	"net/http"
	"strings"

	"github.com/mind-engage/qtdeferred/internal/attempt"
	"github.com/mind-engage/qtdeferred/internal/question"
	"github.com/mind-engage/qtdeferred/internal/rbac"
)

// GET /attempts?question_id=...&user_id=...&state=...&limit=50&offset=0
// Callers without attempt:view-all only ever see their own attempts.
func ListAttemptsHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := attempt.ListOpts{
			QuestionID: strings.TrimSpace(q.Get("question_id")),
			UserID:     strings.TrimSpace(q.Get("user_id")),
			Limit:      parseIntDefault(q.Get("limit"), 50),
			Offset:     parseIntDefault(q.Get("offset"), 0),
		}
		if s := strings.TrimSpace(q.Get("state")); s != "" {
			st, ok := question.ParseState(s)
			if !ok {
				http.Error(w, "unknown state "+s, http.StatusBadRequest)
				return
			}
			opts.State = st
		}
		if !rbac.Can(r.Context(), "attempt:view-all") {
			opts.UserID = rbac.SubjectFromContext(r.Context())
		}

		list, err := svc.List(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]attemptView, 0, len(list))
		for _, a := range list {
			out = append(out, view(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}
