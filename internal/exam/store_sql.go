package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLStore persists exam sessions over database/sql. Works against both
// sqlite (modernc) and postgres (pgx stdlib); both accept $n placeholders.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) CreateExam(ctx context.Context, e Exam, questionIDs []string) error {
	sj, err := json.Marshal(e.SubjectIDs)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO exams
		(id, user_id, mode, subject_ids_json, question_count, time_limit_minutes, start_time, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULL)`,
		e.ID, e.LearnerID, string(e.Mode), string(sj), e.QuestionCount, e.TimeLimitMinutes, e.StartTime.Unix()); err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}
	for i, qid := range questionIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO exam_questions
			(id, exam_id, mcq_id, position, selected_index, is_correct)
			VALUES ($1,$2,$3,$4,NULL,NULL)`,
			uuid.NewString(), e.ID, qid, i); err != nil {
			return fmt.Errorf("insert exam question: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetExam(ctx context.Context, examID, learnerID string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, mode, subject_ids_json, question_count, time_limit_minutes, start_time, submitted_at
		FROM exams WHERE id=$1 AND user_id=$2`, examID, learnerID)

	var e Exam
	var mode, sj string
	var start int64
	var submitted sql.NullInt64
	if err := row.Scan(&e.ID, &e.LearnerID, &mode, &sj, &e.QuestionCount, &e.TimeLimitMinutes, &start, &submitted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, ErrExamNotFound
		}
		return Exam{}, fmt.Errorf("load exam: %w", err)
	}
	e.Mode = Mode(mode)
	e.StartTime = time.Unix(start, 0).UTC()
	if submitted.Valid {
		t := time.Unix(submitted.Int64, 0).UTC()
		e.SubmittedAt = &t
	}
	if err := json.Unmarshal([]byte(sj), &e.SubjectIDs); err != nil {
		return Exam{}, fmt.Errorf("decode subject ids: %w", err)
	}
	return e, nil
}

// GetExamQuestions re-reads the live catalog question for every snapshot
// row. A LEFT JOIN keeps rows whose question was deleted after the exam was
// created; those come back with an empty Question.
func (s *SQLStore) GetExamQuestions(ctx context.Context, examID string) ([]ExamQuestion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT eq.id, eq.exam_id, eq.mcq_id, eq.position, eq.selected_index, eq.is_correct,
			m.id, m.subject_id, m.question, m.options_json, m.correct_index
		FROM exam_questions eq
		LEFT JOIN mcqs m ON m.id = eq.mcq_id
		WHERE eq.exam_id=$1
		ORDER BY eq.position`, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam questions: %w", err)
	}
	defer rows.Close()

	var out []ExamQuestion
	for rows.Next() {
		var q ExamQuestion
		var selected sql.NullInt64
		var correct sql.NullBool
		var mid, msubject, mprompt, mopts sql.NullString
		var mcorrect sql.NullInt64
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionID, &q.Position, &selected, &correct,
			&mid, &msubject, &mprompt, &mopts, &mcorrect); err != nil {
			return nil, fmt.Errorf("scan exam question: %w", err)
		}
		if selected.Valid {
			v := int(selected.Int64)
			q.SelectedIndex = &v
		}
		if correct.Valid {
			v := correct.Bool
			q.IsCorrect = &v
		}
		if mid.Valid {
			q.Question = Question{
				ID:           mid.String,
				SubjectID:    msubject.String,
				Prompt:       mprompt.String,
				CorrectIndex: int(mcorrect.Int64),
			}
			if err := json.Unmarshal([]byte(mopts.String), &q.Question.Options); err != nil {
				return nil, fmt.Errorf("decode options for mcq %s: %w", mid.String, err)
			}
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Finalize flips submitted_at from NULL in the same transaction that writes
// the graded rows and appends attempt history. The guarded UPDATE is the
// compare-and-set that makes concurrent submits race-free: the loser sees
// zero affected rows and writes nothing.
func (s *SQLStore) Finalize(ctx context.Context, e Exam, grades []GradedAnswer, submittedAt time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin finalize tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE exams SET submitted_at=$1 WHERE id=$2 AND submitted_at IS NULL`,
		submittedAt.Unix(), e.ID)
	if err != nil {
		return false, fmt.Errorf("close exam: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close exam: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	for _, g := range grades {
		if _, err := tx.ExecContext(ctx, `UPDATE exam_questions SET selected_index=$1, is_correct=$2 WHERE id=$3`,
			g.SelectedIndex, g.IsCorrect, g.ExamQuestionID); err != nil {
			return false, fmt.Errorf("grade exam question: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO attempts
			(id, user_id, mcq_id, selected_index, is_correct, attempted_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			uuid.NewString(), e.LearnerID, g.QuestionID, g.SelectedIndex, g.IsCorrect, submittedAt.Unix()); err != nil {
			return false, fmt.Errorf("record attempt: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit finalize tx: %w", err)
	}
	return true, nil
}
