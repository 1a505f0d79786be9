package exam

import "time"

type Mode string

const (
	ModeRandom   Mode = "random"
	ModeProgress Mode = "progress"
)

func (m Mode) Valid() bool { return m == ModeRandom || m == ModeProgress }

// Exam is one timed session. SubmittedAt is nil while the session is open and
// set exactly once, either by a voluntary submit or by deadline enforcement.
type Exam struct {
	ID               string     `json:"id"`
	LearnerID        string     `json:"learner_id"`
	Mode             Mode       `json:"mode"`
	SubjectIDs       []string   `json:"subject_ids"`
	QuestionCount    int        `json:"question_count"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	StartTime        time.Time  `json:"start_time"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
}

// Deadline is the wall-clock instant after which the session must close.
func (e Exam) Deadline() time.Time {
	return e.StartTime.Add(time.Duration(e.TimeLimitMinutes) * time.Minute)
}

func (e Exam) Expired(now time.Time) bool {
	return !now.Before(e.Deadline())
}

// Question is the exam's view of a catalog MCQ, re-read live at access time.
type Question struct {
	ID           string   `json:"id"`
	SubjectID    string   `json:"subject_id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"-"`
}

// ExamQuestion is one snapshot row. SelectedIndex and IsCorrect stay nil for
// questions the learner never answered; they are written at most once.
type ExamQuestion struct {
	ID            string `json:"id"`
	ExamID        string `json:"exam_id"`
	QuestionID    string `json:"question_id"`
	Position      int    `json:"position"`
	SelectedIndex *int   `json:"selected_index,omitempty"`
	IsCorrect     *bool  `json:"is_correct,omitempty"`

	Question Question `json:"question"`
}

// GradedAnswer is the recorder's output for one answered exam question.
type GradedAnswer struct {
	ExamQuestionID string
	QuestionID     string
	SelectedIndex  int
	IsCorrect      bool
}

// ExamView is what an active session exposes to the learner: prompts and
// options only, never the correct index.
type ExamView struct {
	Exam             Exam           `json:"exam"`
	Questions        []QuestionView `json:"questions"`
	RemainingSeconds int64          `json:"remaining_seconds"`
}

type QuestionView struct {
	ExamQuestionID string   `json:"exam_question_id"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
}

// Result summarizes a submitted exam. Unanswered questions count toward
// Total but toward neither Correct nor Incorrect.
type Result struct {
	ExamID      string    `json:"exam_id"`
	Mode        Mode      `json:"mode"`
	SubmittedAt time.Time `json:"submitted_at"`
	Total       int       `json:"total"`
	Correct     int       `json:"correct"`
	Incorrect   int       `json:"incorrect"`
	Unanswered  int       `json:"unanswered"`
	Score       float64   `json:"score"`
}
