package exam

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/quizmaster/internal/catalog"
	"github.com/mind-engage/quizmaster/internal/db"
	"github.com/mind-engage/quizmaster/internal/progress"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

// seedCatalog inserts one subject with three MCQs whose correct option is
// always index 1. Returns the subject id and the mcq ids in insert order.
func seedCatalog(t *testing.T, dbh *sql.DB) (string, []string) {
	t.Helper()
	ctx := context.Background()
	const subjectID = "subj-1"
	if _, err := dbh.ExecContext(ctx, `INSERT INTO subjects (id, name) VALUES ($1, 'Algebra')`, subjectID); err != nil {
		t.Fatalf("seed subject: %v", err)
	}
	ids := []string{"mcq-1", "mcq-2", "mcq-3"}
	for i, id := range ids {
		if _, err := dbh.ExecContext(ctx, `INSERT INTO mcqs (id, subject_id, question, options_json, correct_index, created_at)
			VALUES ($1,$2,$3,'["no","yes","maybe"]',1,$4)`,
			id, subjectID, fmt.Sprintf("question %d", i+1), time.Now().Unix()); err != nil {
			t.Fatalf("seed mcq %s: %v", id, err)
		}
	}
	return subjectID, ids
}

func newSQLService(dbh *sql.DB) (*Service, *SQLStore) {
	store := NewSQLStore(dbh, "sqlite")
	sel := &Selector{
		Pool:    catalog.NewSQLStore(dbh, "sqlite"),
		History: progress.NewSQLStore(dbh, "sqlite"),
		Rand:    rand.New(rand.NewSource(1)),
	}
	return NewService(store, sel), store
}

func TestSQLStoreExamLifecycle(t *testing.T) {
	dbh := newTestDB(t)
	subjectID, _ := seedCatalog(t, dbh)
	svc, store := newSQLService(dbh)

	ctx := context.Background()
	start := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	examID, err := svc.Create(ctx, "learner-1", []string{subjectID}, ModeRandom, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc.now = func() time.Time { return start.Add(5 * time.Minute) }
	view, err := svc.View(ctx, examID, "learner-1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(view.Questions) != 3 {
		t.Fatalf("want 3 questions, got %d", len(view.Questions))
	}
	if view.RemainingSeconds != 25*60 {
		t.Fatalf("want 1500 remaining seconds, got %d", view.RemainingSeconds)
	}

	// answer two right, one wrong
	answers := map[string]int{
		view.Questions[0].ExamQuestionID: 1,
		view.Questions[1].ExamQuestionID: 1,
		view.Questions[2].ExamQuestionID: 0,
	}
	if err := svc.Submit(ctx, examID, "learner-1", answers); err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := svc.Result(ctx, examID, "learner-1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Total != 3 || res.Correct != 2 || res.Incorrect != 1 {
		t.Fatalf("bad aggregate: %+v", res)
	}
	if res.Score != 66.67 {
		t.Fatalf("want score 66.67, got %v", res.Score)
	}

	var attemptCount int
	if err := dbh.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE user_id='learner-1'`).Scan(&attemptCount); err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if attemptCount != 3 {
		t.Fatalf("want 3 attempt rows, got %d", attemptCount)
	}

	// double submit must not re-grade or duplicate history
	err = svc.Submit(ctx, examID, "learner-1", map[string]int{view.Questions[0].ExamQuestionID: 0})
	if err != ErrAlreadySubmitted {
		t.Fatalf("second submit: want ErrAlreadySubmitted, got %v", err)
	}
	if err := dbh.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE user_id='learner-1'`).Scan(&attemptCount); err != nil {
		t.Fatalf("recount attempts: %v", err)
	}
	if attemptCount != 3 {
		t.Fatalf("double submit duplicated attempts: %d", attemptCount)
	}

	// exam store must not leak across learners
	if _, err := store.GetExam(ctx, examID, "learner-2"); err != ErrExamNotFound {
		t.Fatalf("want ErrExamNotFound for foreign learner, got %v", err)
	}
}

func TestSQLStoreFinalizeCompareAndSet(t *testing.T) {
	dbh := newTestDB(t)
	_, mcqIDs := seedCatalog(t, dbh)
	store := NewSQLStore(dbh, "sqlite")

	ctx := context.Background()
	e := Exam{
		ID:               "exam-cas",
		LearnerID:        "learner-1",
		Mode:             ModeRandom,
		SubjectIDs:       []string{"subj-1"},
		QuestionCount:    1,
		TimeLimitMinutes: 5,
		StartTime:        time.Now().UTC(),
	}
	if err := store.CreateExam(ctx, e, mcqIDs[:1]); err != nil {
		t.Fatalf("create exam: %v", err)
	}
	qs, err := store.GetExamQuestions(ctx, e.ID)
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	grades := []GradedAnswer{{
		ExamQuestionID: qs[0].ID,
		QuestionID:     qs[0].QuestionID,
		SelectedIndex:  1,
		IsCorrect:      true,
	}}

	ok, err := store.Finalize(ctx, e, grades, time.Now().UTC())
	if err != nil || !ok {
		t.Fatalf("first finalize: ok=%v err=%v", ok, err)
	}
	ok, err = store.Finalize(ctx, e, grades, time.Now().UTC())
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	if ok {
		t.Fatal("second finalize must lose the compare-and-set")
	}

	var attemptCount int
	if err := dbh.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts`).Scan(&attemptCount); err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if attemptCount != 1 {
		t.Fatalf("want exactly 1 attempt row, got %d", attemptCount)
	}
}

func TestSQLStoreForcedSubmissionOnExpiry(t *testing.T) {
	dbh := newTestDB(t)
	subjectID, _ := seedCatalog(t, dbh)
	svc, store := newSQLService(dbh)

	ctx := context.Background()
	start := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	examID, err := svc.Create(ctx, "learner-1", []string{subjectID}, ModeProgress, 3, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc.now = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := svc.View(ctx, examID, "learner-1"); err != ErrAlreadySubmitted {
		t.Fatalf("expired view: want ErrAlreadySubmitted, got %v", err)
	}

	e, err := store.GetExam(ctx, examID, "learner-1")
	if err != nil {
		t.Fatalf("reload exam: %v", err)
	}
	if e.SubmittedAt == nil {
		t.Fatal("expired exam must be closed")
	}
	qs, err := store.GetExamQuestions(ctx, examID)
	if err != nil {
		t.Fatalf("reload questions: %v", err)
	}
	for _, q := range qs {
		if q.SelectedIndex != nil || q.IsCorrect != nil {
			t.Fatalf("forced submission graded an unanswered question: %+v", q)
		}
	}

	res, err := svc.Result(ctx, examID, "learner-1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Unanswered != 3 || res.Score != 0 {
		t.Fatalf("want all unanswered, zero score: %+v", res)
	}
}

func TestSQLStoreProgressSelectionPrefersHistory(t *testing.T) {
	dbh := newTestDB(t)
	subjectID, mcqIDs := seedCatalog(t, dbh)
	svc, _ := newSQLService(dbh)

	ctx := context.Background()
	// learner-1 already missed mcq-2 twice and got mcq-1 right; mcq-3 is untouched.
	seedAttempt := func(mcqID string, correct bool) {
		t.Helper()
		if _, err := dbh.ExecContext(ctx, `INSERT INTO attempts (id, user_id, mcq_id, selected_index, is_correct, attempted_at)
			VALUES ($1,'learner-1',$2,0,$3,$4)`,
			fmt.Sprintf("att-%s-%v-%d", mcqID, correct, time.Now().UnixNano()), mcqID, correct, time.Now().Unix()); err != nil {
			t.Fatalf("seed attempt: %v", err)
		}
	}
	seedAttempt(mcqIDs[0], true)
	seedAttempt(mcqIDs[1], false)
	seedAttempt(mcqIDs[1], false)

	start := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	examID, err := svc.Create(ctx, "learner-1", []string{subjectID}, ModeProgress, 2, 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	view, err := svc.View(ctx, examID, "learner-1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(view.Questions) != 2 {
		t.Fatalf("want 2 questions, got %d", len(view.Questions))
	}
	// tier 1 (unattempted mcq-3) then tier 2 (most-missed mcq-2)
	if view.Questions[0].Prompt != "question 3" || view.Questions[1].Prompt != "question 2" {
		t.Fatalf("adaptive order wrong: %q then %q", view.Questions[0].Prompt, view.Questions[1].Prompt)
	}
}
