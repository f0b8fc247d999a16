package exam

import "math"

// AdaptedTimeLimit computes the exam time limit in seconds, proportional to
// the number of questions actually drawn. Each exam type scales from a fixed
// baseline (total seconds over nominal question count), so a short draw gets
// a proportionally shorter limit. No clamping is applied.
func AdaptedTimeLimit(t Type, questionCount int) (int, error) {
	bp, ok := blueprints[t]
	if !ok {
		return 0, ErrUnknownExamType
	}
	perQuestion := float64(bp.baselineSeconds) / float64(bp.baselineQuestion)
	return int(math.Round(perQuestion * float64(questionCount))), nil
}
