package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLStore is the question catalog: subject and MCQ administration plus the
// read-only pool queries exam selection depends on.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) CreateSubject(ctx context.Context, name string) (Subject, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE name=$1`, name).Scan(&exists)
	if err == nil {
		return Subject{}, ErrSubjectExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Subject{}, fmt.Errorf("check subject: %w", err)
	}
	sub := Subject{ID: uuid.NewString(), Name: name}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO subjects (id, name) VALUES ($1,$2)`, sub.ID, sub.Name); err != nil {
		return Subject{}, fmt.Errorf("insert subject: %w", err)
	}
	return sub, nil
}

func (s *SQLStore) RenameSubject(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE subjects SET name=$1 WHERE id=$2`, name, id)
	if err != nil {
		return fmt.Errorf("rename subject: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

// DeleteSubject removes the subject and its questions. mcqs cascade via FK.
func (s *SQLStore) DeleteSubject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subjects WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

// ListSubjects returns all subjects ordered by name, each with its question
// count for the dashboard and setup screens.
func (s *SQLStore) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.name, COUNT(m.id)
		FROM subjects s
		LEFT JOIN mcqs m ON m.subject_id = s.id
		GROUP BY s.id, s.name
		ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	out := []Subject{}
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) SubjectExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check subject: %w", err)
	}
	return true, nil
}

func (s *SQLStore) CreateMCQ(ctx context.Context, q MCQ) (MCQ, error) {
	if err := q.Validate(); err != nil {
		return MCQ{}, err
	}
	ok, err := s.SubjectExists(ctx, q.SubjectID)
	if err != nil {
		return MCQ{}, err
	}
	if !ok {
		return MCQ{}, ErrSubjectNotFound
	}
	q.ID = uuid.NewString()
	q.CreatedAt = time.Now().UTC()
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return MCQ{}, err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO mcqs (id, subject_id, question, options_json, correct_index, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		q.ID, q.SubjectID, q.Question, string(oj), q.CorrectIndex, q.CreatedAt.Unix()); err != nil {
		return MCQ{}, fmt.Errorf("insert mcq: %w", err)
	}
	return q, nil
}

func (s *SQLStore) UpdateMCQ(ctx context.Context, q MCQ) error {
	if err := q.Validate(); err != nil {
		return err
	}
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE mcqs SET subject_id=$1, question=$2, options_json=$3, correct_index=$4 WHERE id=$5`,
		q.SubjectID, q.Question, string(oj), q.CorrectIndex, q.ID)
	if err != nil {
		return fmt.Errorf("update mcq: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func (s *SQLStore) DeleteMCQ(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mcqs WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete mcq: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func (s *SQLStore) GetMCQ(ctx context.Context, id string) (MCQ, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, subject_id, question, options_json, correct_index, created_at
		FROM mcqs WHERE id=$1`, id)
	return scanMCQ(row.Scan)
}

// ListMCQs pages through the catalog, optionally filtered to one subject.
func (s *SQLStore) ListMCQs(ctx context.Context, subjectID string, limit, offset int) ([]MCQ, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	q := `SELECT m.id, m.subject_id, m.question, m.options_json, m.correct_index, m.created_at, s.name
		FROM mcqs m
		JOIN subjects s ON s.id = m.subject_id`
	args := []any{}
	if subjectID != "" {
		q += ` WHERE m.subject_id=$1 ORDER BY m.created_at, m.id LIMIT $2 OFFSET $3`
		args = append(args, subjectID, limit, offset)
	} else {
		q += ` ORDER BY m.created_at, m.id LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list mcqs: %w", err)
	}
	defer rows.Close()

	out := []MCQ{}
	for rows.Next() {
		var m MCQ
		var oj string
		var created int64
		if err := rows.Scan(&m.ID, &m.SubjectID, &m.Question, &oj, &m.CorrectIndex, &created, &m.SubjectName); err != nil {
			return nil, fmt.Errorf("scan mcq: %w", err)
		}
		if err := json.Unmarshal([]byte(oj), &m.Options); err != nil {
			return nil, fmt.Errorf("decode options for mcq %s: %w", m.ID, err)
		}
		m.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// Import inserts a batch of uploaded MCQs. Unknown subjects are created by
// name; rows that fail validation are skipped, not fatal. Returns how many
// questions were created.
func (s *SQLStore) Import(ctx context.Context, items []ImportItem) (int, error) {
	created := 0
	for _, it := range items {
		if it.Subject == "" || it.Question == "" || len(it.Options) < 2 || it.CorrectIndex == nil {
			continue
		}
		if *it.CorrectIndex < 0 || *it.CorrectIndex >= len(it.Options) {
			continue
		}
		subID, err := s.subjectIDByName(ctx, it.Subject)
		if err != nil {
			return created, err
		}
		_, err = s.CreateMCQ(ctx, MCQ{
			SubjectID:    subID,
			Question:     it.Question,
			Options:      it.Options,
			CorrectIndex: *it.CorrectIndex,
		})
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *SQLStore) subjectIDByName(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM subjects WHERE name=$1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup subject: %w", err)
	}
	sub, err := s.CreateSubject(ctx, name)
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

// QuestionIDsBySubjects is the selector's pool read: every question id in
// the given subjects, in stable id order.
func (s *SQLStore) QuestionIDsBySubjects(ctx context.Context, subjectIDs []string) ([]string, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT id FROM mcqs WHERE subject_id IN (%s) ORDER BY id`, placeholders(len(subjectIDs), 1))
	rows, err := s.db.QueryContext(ctx, q, toAnySlice(subjectIDs)...)
	if err != nil {
		return nil, fmt.Errorf("pool query: %w", err)
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

func scanMCQ(scan func(dest ...any) error) (MCQ, error) {
	var m MCQ
	var oj string
	var created int64
	if err := scan(&m.ID, &m.SubjectID, &m.Question, &oj, &m.CorrectIndex, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MCQ{}, ErrQuestionNotFound
		}
		return MCQ{}, fmt.Errorf("scan mcq: %w", err)
	}
	if err := json.Unmarshal([]byte(oj), &m.Options); err != nil {
		return MCQ{}, fmt.Errorf("decode options for mcq %s: %w", m.ID, err)
	}
	m.CreatedAt = time.Unix(created, 0).UTC()
	return m, nil
}

// placeholders renders "$start,$start+1,…" for IN clauses.
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
