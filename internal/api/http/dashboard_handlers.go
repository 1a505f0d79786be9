package http

import (
	"net/http"

	authmw "github.com/mind-engage/quizmaster/internal/auth/middleware"
	"github.com/mind-engage/quizmaster/internal/catalog"
	"github.com/mind-engage/quizmaster/internal/progress"
)

// GET /dashboard returns subject counts plus the learner's attempt summary and
// seven-day accuracy trend.
func DashboardHandler(catalogStore *catalog.SQLStore, progressStore *progress.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID := authmw.SubjectFromContext(r.Context())

		subjects, err := catalogStore.ListSubjects(r.Context())
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		totalQuestions := 0
		for _, s := range subjects {
			totalQuestions += s.QuestionCount
		}

		summary, err := progressStore.Summary(r.Context(), learnerID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		trend, err := progressStore.DailyTrend(r.Context(), learnerID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"subjects":        subjects,
			"total_questions": totalQuestions,
			"attempts":        summary,
			"trend":           trend,
		})
	}
}
