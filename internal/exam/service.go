package exam

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Store is the session persistence surface. Multi-row writes in CreateExam
// and Finalize must be all-or-nothing; Finalize must flip submitted_at from
// NULL atomically and report false when another call got there first.
type Store interface {
	CreateExam(ctx context.Context, e Exam, questionIDs []string) error
	GetExam(ctx context.Context, examID, learnerID string) (Exam, error)
	GetExamQuestions(ctx context.Context, examID string) ([]ExamQuestion, error)
	Finalize(ctx context.Context, e Exam, grades []GradedAnswer, submittedAt time.Time) (bool, error)
}

// Service owns the exam session state machine: create, active-with-deadline,
// voluntary or forced submission, result aggregation. Deadlines are enforced
// lazily at each access; there is no background timer.
type Service struct {
	store    Store
	selector *Selector
	now      func() time.Time
}

func NewService(store Store, selector *Selector) *Service {
	return &Service{store: store, selector: selector, now: time.Now}
}

func (s *Service) Create(ctx context.Context, learnerID string, subjectIDs []string, mode Mode, count, timeLimitMinutes int) (string, error) {
	if !mode.Valid() {
		return "", ErrInvalidMode
	}
	if len(subjectIDs) == 0 {
		return "", ErrNoSubjects
	}
	if count < 1 || count > 100 {
		return "", ErrInvalidCount
	}
	if timeLimitMinutes <= 0 {
		return "", ErrInvalidTimeLimit
	}

	ids, err := s.selector.Select(ctx, learnerID, subjectIDs, count, mode)
	if err != nil {
		return "", fmt.Errorf("select questions: %w", err)
	}
	if len(ids) == 0 {
		return "", ErrNoEligibleQuestions
	}

	e := Exam{
		ID:               uuid.NewString(),
		LearnerID:        learnerID,
		Mode:             mode,
		SubjectIDs:       subjectIDs,
		QuestionCount:    count,
		TimeLimitMinutes: timeLimitMinutes,
		StartTime:        s.now().UTC(),
	}
	if err := s.store.CreateExam(ctx, e, ids); err != nil {
		return "", fmt.Errorf("create exam: %w", err)
	}
	return e.ID, nil
}

// View returns the active session without answer keys. A view past the
// deadline force-submits first and then signals ErrAlreadySubmitted so the
// caller redirects to the result.
func (s *Service) View(ctx context.Context, examID, learnerID string) (*ExamView, error) {
	e, err := s.store.GetExam(ctx, examID, learnerID)
	if err != nil {
		return nil, err
	}
	if e.SubmittedAt != nil {
		return nil, ErrAlreadySubmitted
	}
	now := s.now()
	if e.Expired(now) {
		if err := s.finalize(ctx, e, nil, now); err != nil && err != ErrAlreadySubmitted {
			return nil, err
		}
		return nil, ErrAlreadySubmitted
	}

	qs, err := s.store.GetExamQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}
	view := &ExamView{
		Exam:             e,
		Questions:        make([]QuestionView, 0, len(qs)),
		RemainingSeconds: remainingSeconds(e, now),
	}
	for _, q := range qs {
		if q.Question.ID == "" {
			continue // catalog question deleted mid-exam
		}
		view.Questions = append(view.Questions, QuestionView{
			ExamQuestionID: q.ID,
			Prompt:         q.Question.Prompt,
			Options:        q.Question.Options,
		})
	}
	return view, nil
}

// Submit grades the provided answers and closes the exam. Answers map
// exam-question id to the chosen option index; questions without an entry
// stay ungraded. A second submit is a no-op signalled as ErrAlreadySubmitted.
// Submission past the deadline still grades whatever arrived with it.
func (s *Service) Submit(ctx context.Context, examID, learnerID string, answers map[string]int) error {
	e, err := s.store.GetExam(ctx, examID, learnerID)
	if err != nil {
		return err
	}
	if e.SubmittedAt != nil {
		return ErrAlreadySubmitted
	}
	return s.finalize(ctx, e, answers, s.now())
}

// Result aggregates scoring for a submitted exam. An expired-but-untouched
// exam is force-submitted on the way through, so a result is always
// reachable once the deadline has passed.
func (s *Service) Result(ctx context.Context, examID, learnerID string) (*Result, error) {
	e, err := s.store.GetExam(ctx, examID, learnerID)
	if err != nil {
		return nil, err
	}
	if e.SubmittedAt == nil {
		now := s.now()
		if !e.Expired(now) {
			return nil, ErrNotSubmitted
		}
		if err := s.finalize(ctx, e, nil, now); err != nil && err != ErrAlreadySubmitted {
			return nil, err
		}
		e, err = s.store.GetExam(ctx, examID, learnerID)
		if err != nil {
			return nil, err
		}
	}

	qs, err := s.store.GetExamQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}
	res := &Result{ExamID: e.ID, Mode: e.Mode, SubmittedAt: *e.SubmittedAt, Total: len(qs)}
	for _, q := range qs {
		switch {
		case q.IsCorrect == nil:
			res.Unanswered++
		case *q.IsCorrect:
			res.Correct++
		default:
			res.Incorrect++
		}
	}
	if res.Total > 0 {
		res.Score = round2(float64(res.Correct) / float64(res.Total) * 100)
	}
	return res, nil
}

// finalize grades answered questions and flips the exam to Submitted. The
// store's compare-and-set keeps double submits from double-inserting
// attempt rows.
func (s *Service) finalize(ctx context.Context, e Exam, answers map[string]int, now time.Time) error {
	qs, err := s.store.GetExamQuestions(ctx, e.ID)
	if err != nil {
		return err
	}
	grades := gradeAnswers(qs, answers)
	ok, err := s.store.Finalize(ctx, e, grades, now.UTC())
	if err != nil {
		return fmt.Errorf("finalize exam: %w", err)
	}
	if !ok {
		return ErrAlreadySubmitted
	}
	return nil
}

func remainingSeconds(e Exam, now time.Time) int64 {
	rem := int64(e.Deadline().Sub(now) / time.Second)
	if rem < 0 {
		rem = 0
	}
	return rem
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
