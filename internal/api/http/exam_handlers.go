package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/quizmaster/internal/auth/middleware"
	"github.com/mind-engage/quizmaster/internal/exam"
)

// POST /exams  { "subject_ids": [...], "mode": "random|progress", "question_count": n, "time_limit_minutes": n }
func CreateExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SubjectIDs       []string `json:"subject_ids"`
			Mode             string   `json:"mode"`
			QuestionCount    int      `json:"question_count"`
			TimeLimitMinutes int      `json:"time_limit_minutes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.Mode == "" {
			req.Mode = string(exam.ModeRandom)
		}
		learnerID := authmw.SubjectFromContext(r.Context())
		id, err := svc.Create(r.Context(), learnerID, req.SubjectIDs, exam.Mode(req.Mode), req.QuestionCount, req.TimeLimitMinutes)
		if err != nil {
			examError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"exam_id": id})
	}
}

// GET /exams/{examID}
func ViewExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID := authmw.SubjectFromContext(r.Context())
		view, err := svc.View(r.Context(), chi.URLParam(r, "examID"), learnerID)
		if err != nil {
			examError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// POST /exams/{examID}/submit  { "answers": { examQuestionID: optionIndex } }
func SubmitExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers map[string]int `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		learnerID := authmw.SubjectFromContext(r.Context())
		examID := chi.URLParam(r, "examID")
		if err := svc.Submit(r.Context(), examID, learnerID, req.Answers); err != nil {
			examError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "submitted", "exam_id": examID})
	}
}

// GET /exams/{examID}/result
func ExamResultHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID := authmw.SubjectFromContext(r.Context())
		res, err := svc.Result(r.Context(), chi.URLParam(r, "examID"), learnerID)
		if err != nil {
			examError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// examError maps domain conditions to HTTP statuses. AlreadySubmitted is a
// control signal, not a failure: the client is told where to go next.
func examError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exam.ErrExamNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, exam.ErrAlreadySubmitted):
		writeJSON(w, http.StatusConflict, map[string]string{"status": "already_submitted"})
	case errors.Is(err, exam.ErrNotSubmitted):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, exam.ErrNoEligibleQuestions):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, exam.ErrInvalidCount),
		errors.Is(err, exam.ErrInvalidTimeLimit),
		errors.Is(err, exam.ErrInvalidMode),
		errors.Is(err, exam.ErrNoSubjects):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
