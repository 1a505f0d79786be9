package exam

// Grade reports whether the chosen option matches the question's correct
// index. An out-of-range index can never match a valid correct index, so it
// grades incorrect rather than erroring.
func Grade(q Question, chosen int) bool {
	return chosen == q.CorrectIndex
}

// gradeAnswers turns a submitted answer map into graded rows, one per
// answered exam question. Questions with no provided answer produce
// nothing: they stay ungraded and never feed attempt history. Rows whose
// catalog question disappeared are skipped for the same reason.
func gradeAnswers(qs []ExamQuestion, answers map[string]int) []GradedAnswer {
	if len(answers) == 0 {
		return nil
	}
	grades := make([]GradedAnswer, 0, len(answers))
	for _, q := range qs {
		chosen, ok := answers[q.ID]
		if !ok || q.Question.ID == "" {
			continue
		}
		grades = append(grades, GradedAnswer{
			ExamQuestionID: q.ID,
			QuestionID:     q.QuestionID,
			SelectedIndex:  chosen,
			IsCorrect:      Grade(q.Question, chosen),
		})
	}
	return grades
}
