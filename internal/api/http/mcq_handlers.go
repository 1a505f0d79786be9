package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/quizmaster/internal/catalog"
)

// GET /mcqs?subject_id=…&limit=…&offset=…
func ListMCQsHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID := r.URL.Query().Get("subject_id")
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

		mcqs, err := store.ListMCQs(r.Context(), subjectID, limit, offset)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, http.StatusOK, mcqs)
	}
}

// POST /mcqs  { "subject_id": "...", "question": "...", "options": [...], "correct_index": n }
func CreateMCQHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalog.MCQ
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		q, err := store.CreateMCQ(r.Context(), req)
		if err != nil {
			catalogError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// PUT /mcqs/{mcqID}. Edits do not reach exams already snapshotted against
// the old content until they re-read the question at grading time.
func UpdateMCQHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalog.MCQ
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		req.ID = chi.URLParam(r, "mcqID")
		if err := store.UpdateMCQ(r.Context(), req); err != nil {
			catalogError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

// DELETE /mcqs/{mcqID}
func DeleteMCQHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteMCQ(r.Context(), chi.URLParam(r, "mcqID")); err != nil {
			catalogError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// POST /mcqs/import accepts a JSON array of {subject, question, options, correct_index}.
// Invalid rows are skipped; the response reports how many were created.
func ImportMCQsHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var items []catalog.ImportItem
		if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
			http.Error(w, "expected a JSON array of MCQs", 400)
			return
		}
		created, err := store.Import(r.Context(), items)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"created": created})
	}
}
