package catalog

import (
	"errors"
	"time"
)

var (
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrSubjectExists    = errors.New("subject already exists")
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidQuestion  = errors.New("question needs text and at least two options")
	ErrCorrectIndex     = errors.New("correct index is out of range")
)

type Subject struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count,omitempty"`
}

// MCQ is a multiple-choice question. Options keep their authored order;
// CorrectIndex is 0-based into Options.
type MCQ struct {
	ID           string    `json:"id"`
	SubjectID    string    `json:"subject_id"`
	SubjectName  string    `json:"subject_name,omitempty"`
	Question     string    `json:"question"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	CreatedAt    time.Time `json:"created_at"`
}

func (q MCQ) Validate() error {
	if q.Question == "" || len(q.Options) < 2 {
		return ErrInvalidQuestion
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ErrCorrectIndex
	}
	return nil
}

// ImportItem is one row of a bulk upload: subjects are matched by name and
// created on the fly when missing.
type ImportItem struct {
	Subject      string   `json:"subject"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_index"`
}
