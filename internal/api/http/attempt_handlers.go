package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/qtdeferred/internal/attempt"
	"github.com/mind-engage/qtdeferred/internal/rbac"
)

type attemptView struct {
	attempt.Attempt
	Mark *float64 `json:"mark,omitempty"`
}

type actionView struct {
	Outcome string      `json:"outcome"` // keep|discard
	Attempt attemptView `json:"attempt"`
}

func view(a attempt.Attempt) attemptView { return attemptView{Attempt: a, Mark: a.Mark()} }

// loadOwned fetches the attempt and checks the caller may act on it.
func loadOwned(ctx context.Context, w http.ResponseWriter, svc *attempt.Service, id string) (attempt.Attempt, bool) {
	a, err := svc.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return attempt.Attempt{}, false
	}
	if a.UserID != rbac.SubjectFromContext(ctx) && !rbac.Can(ctx, "attempt:view-all") {
		http.Error(w, "forbidden", http.StatusForbidden)
		return attempt.Attempt{}, false
	}
	return a, true
}

// POST /attempts {"question_id": "...", "behaviour": "..."}
func CreateAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionID string `json:"question_id"`
			Behaviour  string `json:"behaviour,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.QuestionID) == "" {
			http.Error(w, "question_id required", http.StatusBadRequest)
			return
		}
		a, err := svc.Start(r.Context(), req.QuestionID, rbac.SubjectFromContext(r.Context()), req.Behaviour, nil)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view(a))
	}
}

// POST /attempts/{attemptID}/responses {"answer": "..."}
func SaveResponsesHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if _, ok := loadOwned(r.Context(), w, svc, id); !ok {
			return
		}
		var data map[string]string
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			http.Error(w, "bad json: responses must be string fields", http.StatusBadRequest)
			return
		}
		a, out, err := svc.Save(r.Context(), id, rbac.SubjectFromContext(r.Context()), data)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, actionView{Outcome: out.String(), Attempt: view(a)})
	}
}

// POST /attempts/{attemptID}/finish
func FinishAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if _, ok := loadOwned(r.Context(), w, svc, id); !ok {
			return
		}
		a, out, err := svc.Finish(r.Context(), id, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, actionView{Outcome: out.String(), Attempt: view(a)})
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwned(r.Context(), w, svc, chi.URLParam(r, "attemptID"))
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, view(a))
	}
}

// GET /attempts/{attemptID}/resume-data
func ResumeDataHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if _, ok := loadOwned(r.Context(), w, svc, id); !ok {
			return
		}
		data, err := svc.ResumeData(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

// POST /attempts/{attemptID}/resume
func ResumeAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if _, ok := loadOwned(r.Context(), w, svc, id); !ok {
			return
		}
		a, err := svc.Resume(r.Context(), id, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view(a))
	}
}
