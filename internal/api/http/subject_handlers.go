package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/quizmaster/internal/catalog"
)

func ListSubjectsHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjects, err := store.ListSubjects(r.Context())
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, http.StatusOK, subjects)
	}
}

// POST /subjects  { "name": "..." }
func CreateSubjectHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			http.Error(w, "subject name is required", 400)
			return
		}
		sub, err := store.CreateSubject(r.Context(), name)
		if err != nil {
			catalogError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	}
}

// PUT /subjects/{subjectID}  { "name": "..." }
func RenameSubjectHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			http.Error(w, "subject name is required", 400)
			return
		}
		if err := store.RenameSubject(r.Context(), chi.URLParam(r, "subjectID"), name); err != nil {
			catalogError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
	}
}

// DELETE /subjects/{subjectID} removes the subject and its questions.
func DeleteSubjectHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteSubject(r.Context(), chi.URLParam(r, "subjectID")); err != nil {
			catalogError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func catalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrSubjectNotFound), errors.Is(err, catalog.ErrQuestionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, catalog.ErrSubjectExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, catalog.ErrInvalidQuestion), errors.Is(err, catalog.ErrCorrectIndex):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
