package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/qtdeferred/internal/question"
)

// GET /questions
func ListQuestionsHandler(bank *question.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, bank.IDs())
	}
}

// GET /questions/{questionID} without the answer key.
func GetQuestionHandler(bank *question.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := bank.Definition(chi.URLParam(r, "questionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		d.AnswerKey = nil
		writeJSON(w, http.StatusOK, d)
	}
}
