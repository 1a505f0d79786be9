package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Summary aggregates a learner's attempt history for the dashboard.
type Summary struct {
	TotalAttempts   int     `json:"total_attempts"`
	CorrectAttempts int     `json:"correct_attempts"`
	Accuracy        float64 `json:"accuracy"`
}

// TrendPoint is one day of attempt accuracy, newest first.
type TrendPoint struct {
	Date     string  `json:"date"`
	Accuracy float64 `json:"accuracy"`
}

// SQLStore reads the append-only attempts table. It backs both the
// dashboard and the selector's history queries; nothing here writes.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// UnattemptedQuestionIDs lists questions in the given subjects this learner
// has never answered, in stable id order.
func (s *SQLStore) UnattemptedQuestionIDs(ctx context.Context, learnerID string, subjectIDs []string) ([]string, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT m.id FROM mcqs m
		WHERE m.subject_id IN (%s)
		  AND m.id NOT IN (SELECT mcq_id FROM attempts WHERE user_id=$%d)
		ORDER BY m.id`, placeholders(len(subjectIDs), 1), len(subjectIDs)+1)
	args := toAnySlice(subjectIDs)
	args = append(args, learnerID)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("unattempted query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IncorrectCounts maps question id to how many times this learner answered
// it wrong, restricted to the given subjects. Questions since removed from
// the catalog drop out via the join.
func (s *SQLStore) IncorrectCounts(ctx context.Context, learnerID string, subjectIDs []string) (map[string]int, error) {
	if len(subjectIDs) == 0 {
		return map[string]int{}, nil
	}
	q := fmt.Sprintf(`SELECT a.mcq_id, COUNT(*) FROM attempts a
		JOIN mcqs m ON m.id = a.mcq_id
		WHERE a.user_id=$1 AND a.is_correct=FALSE AND m.subject_id IN (%s)
		GROUP BY a.mcq_id`, placeholders(len(subjectIDs), 2))
	args := append([]any{learnerID}, toAnySlice(subjectIDs)...)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("incorrect counts query: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (s *SQLStore) Summary(ctx context.Context, learnerID string) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		FROM attempts WHERE user_id=$1`, learnerID)
	var sum Summary
	if err := row.Scan(&sum.TotalAttempts, &sum.CorrectAttempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, nil
		}
		return Summary{}, fmt.Errorf("summary query: %w", err)
	}
	if sum.TotalAttempts > 0 {
		sum.Accuracy = round2(float64(sum.CorrectAttempts) / float64(sum.TotalAttempts) * 100)
	}
	return sum, nil
}

// DailyTrend returns per-day accuracy over the learner's last seven active
// days, newest first.
func (s *SQLStore) DailyTrend(ctx context.Context, learnerID string) ([]TrendPoint, error) {
	dateExpr := `DATE(attempted_at, 'unixepoch')`
	if s.driver == "postgres" {
		dateExpr = `to_char(to_timestamp(attempted_at), 'YYYY-MM-DD')`
	}
	q := fmt.Sprintf(`SELECT %s AS d, COUNT(*), SUM(CASE WHEN is_correct THEN 1 ELSE 0 END)
		FROM attempts WHERE user_id=$1
		GROUP BY d ORDER BY d DESC LIMIT 7`, dateExpr)

	rows, err := s.db.QueryContext(ctx, q, learnerID)
	if err != nil {
		return nil, fmt.Errorf("trend query: %w", err)
	}
	defer rows.Close()

	out := []TrendPoint{}
	for rows.Next() {
		var p TrendPoint
		var total, correct int
		if err := rows.Scan(&p.Date, &total, &correct); err != nil {
			return nil, err
		}
		if total > 0 {
			p.Accuracy = round2(float64(correct) / float64(total) * 100)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func placeholders(n, start int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "$%d", start+i)
	}
	return b.String()
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
