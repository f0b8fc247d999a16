package exam

import "math"

// fallbackExplanation stands in for questions without explanation text.
const fallbackExplanation = "No explanation available"

// Score evaluates answers against the question set. Unanswered questions
// count as incorrect; there is no negative marking. Evaluations preserve the
// question order. Pure function, safe to call repeatedly.
func Score(questions []*Question, answers map[string]string) ScoreSummary {
	summary := ScoreSummary{
		Evaluations: make([]Evaluation, 0, len(questions)),
	}

	for _, q := range questions {
		if q == nil {
			continue
		}
		summary.Total++

		userAnswer, answered := answers[q.ID]
		correct := answered && userAnswer == q.CorrectAnswer
		if correct {
			summary.Score++
		}

		explanation := q.Explanation
		if explanation == "" {
			explanation = fallbackExplanation
		}

		summary.Evaluations = append(summary.Evaluations, Evaluation{
			Question:      q,
			UserAnswer:    userAnswer,
			IsCorrect:     correct,
			Explanation:   explanation,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	summary.Percentage = percentage(summary.Score, summary.Total)
	return summary
}

// CategoryScores groups correctness per question category. Questions with no
// category land in an "Unknown" bucket.
func CategoryScores(questions []*Question, answers map[string]string) map[string]CategoryScore {
	scores := make(map[string]CategoryScore)

	for _, q := range questions {
		if q == nil {
			continue
		}
		category := q.Category
		if category == "" {
			category = "Unknown"
		}

		entry := scores[category]
		entry.Total++
		if answer, ok := answers[q.ID]; ok && answer == q.CorrectAnswer {
			entry.Correct++
		}
		scores[category] = entry
	}

	for category, entry := range scores {
		entry.Percentage = percentage(entry.Correct, entry.Total)
		scores[category] = entry
	}
	return scores
}

// percentage rounds correct/total to a whole percent, 0 when total is zero.
func percentage(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
