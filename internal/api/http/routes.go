// Package http exposes the attempt service over a chi router.
package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/qtdeferred/internal/attempt"
	"github.com/mind-engage/qtdeferred/internal/question"
	"github.com/mind-engage/qtdeferred/internal/rbac"
)

// Mount registers the attempt and question routes on r. Authentication
// middleware must already be in place.
func Mount(r chi.Router, svc *attempt.Service, bank *question.Bank) {
	r.With(rbac.Require("question:view")).Get("/questions", ListQuestionsHandler(bank))
	r.With(rbac.Require("question:view")).Get("/questions/{questionID}", GetQuestionHandler(bank))

	r.With(rbac.Require("attempt:create")).
		Post("/attempts", CreateAttemptHandler(svc))
	r.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
		Get("/attempts", ListAttemptsHandler(svc))
	r.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
		Get("/attempts/{attemptID}", GetAttemptHandler(svc))
	r.With(rbac.Require("attempt:save")).
		Post("/attempts/{attemptID}/responses", SaveResponsesHandler(svc))
	r.With(rbac.Require("attempt:finish")).
		Post("/attempts/{attemptID}/finish", FinishAttemptHandler(svc))
	r.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
		Get("/attempts/{attemptID}/resume-data", ResumeDataHandler(svc))
	r.With(rbac.Require("attempt:resume")).
		Post("/attempts/{attemptID}/resume", ResumeAttemptHandler(svc))
}
