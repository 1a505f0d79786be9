package exam

import "errors"

var (
	ErrExamNotFound        = errors.New("exam not found")
	ErrAlreadySubmitted    = errors.New("exam already submitted")
	ErrNotSubmitted        = errors.New("exam not submitted yet")
	ErrNoEligibleQuestions = errors.New("no eligible questions for the selected criteria")
	ErrInvalidCount        = errors.New("question count must be between 1 and 100")
	ErrInvalidTimeLimit    = errors.New("time limit must be greater than zero")
	ErrInvalidMode         = errors.New("mode must be random or progress")
	ErrNoSubjects          = errors.New("select at least one subject")
)
