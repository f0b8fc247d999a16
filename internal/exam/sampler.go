package exam

import (
	"math/rand"

	"github.com/rs/zerolog"
)

// Sampler draws the question set for a new exam session from the repository.
// Within one session no question id is drawn twice; the exclusion set is
// owned by the caller and cleared at each new session.
type Sampler struct {
	repo   *Repository
	logger zerolog.Logger
}

func NewSampler(repo *Repository, logger zerolog.Logger) *Sampler {
	return &Sampler{
		repo:   repo,
		logger: logger.With().Str("component", "session_sampler").Logger(),
	}
}

// Generate assembles the ordered question set for an exam type. Categories
// are visited in their fixed order; each contributes up to its base target,
// trimmed by the remaining overall-cap slots. Short pools contribute what
// they have. The combined list is shuffled once before the presentation
// order is fixed.
func (s *Sampler) Generate(t Type, used map[string]struct{}) ([]*Question, error) {
	bp, ok := blueprints[t]
	if !ok {
		return nil, ErrUnknownExamType
	}

	if t == TypePractice {
		return s.generatePractice(bp, used), nil
	}

	var drawn []*Question
	for _, category := range samplingOrder(bp.categories) {
		remaining := bp.overallCap - len(drawn)
		if remaining <= 0 {
			break
		}
		target := categoryTarget(t, category)
		if target > remaining {
			target = remaining
		}

		picked := drawRandom(s.repo.QuestionsFor(t, category), target, used)
		markUsed(picked, used)
		drawn = append(drawn, picked...)

		s.logger.Debug().
			Str("exam_type", string(t)).
			Str("category", category).
			Int("selected", len(picked)).
			Int("target", target).
			Int("accumulated", len(drawn)).
			Msg("category sampled")
	}

	shuffle(drawn)
	return drawn, nil
}

// samplingOrder moves General Information to the front of the draw. Its
// fixed 10-question allotment would otherwise be crowded out when the
// overall cap runs out on the 25-target categories ahead of it. The display
// order in Categories is unaffected.
func samplingOrder(categories []string) []string {
	order := make([]string, 0, len(categories))
	for _, c := range categories {
		if c == CategoryGeneralInfo {
			order = append(order, c)
		}
	}
	for _, c := range categories {
		if c != CategoryGeneralInfo {
			order = append(order, c)
		}
	}
	return order
}

// generatePractice draws up to the per-category target from the professional
// pool first and tops up any shortfall from the sub-professional pool for the
// same category, then shuffles the combined set.
func (s *Sampler) generatePractice(bp blueprint, used map[string]struct{}) []*Question {
	var drawn []*Question
	for _, category := range bp.categories {
		picked := drawRandom(s.repo.QuestionsFor(TypeProfessional, category), practiceCategoryTarget, used)
		markUsed(picked, used)

		if shortfall := practiceCategoryTarget - len(picked); shortfall > 0 {
			extra := drawRandom(s.repo.QuestionsFor(TypeSubProfessional, category), shortfall, used)
			markUsed(extra, used)
			picked = append(picked, extra...)
		}
		drawn = append(drawn, picked...)
	}
	shuffle(drawn)
	return drawn
}

// drawRandom picks up to count questions from pool uniformly at random
// without replacement, excluding used ids and malformed entries. A short
// pool yields whatever is available.
func drawRandom(pool []*Question, count int, used map[string]struct{}) []*Question {
	if len(pool) == 0 || count <= 0 {
		return nil
	}

	available := make([]*Question, 0, len(pool))
	for _, q := range pool {
		if q == nil || q.ID == "" {
			continue
		}
		if _, taken := used[q.ID]; taken {
			continue
		}
		available = append(available, q)
	}
	if len(available) == 0 {
		return nil
	}

	shuffle(available)
	if count > len(available) {
		count = len(available)
	}
	return available[:count]
}

func markUsed(questions []*Question, used map[string]struct{}) {
	for _, q := range questions {
		used[q.ID] = struct{}{}
	}
}

// shuffle is an in-place Fisher-Yates pass, iterating from the last index
// down and swapping with a uniformly chosen earlier-or-equal index.
func shuffle(questions []*Question) {
	for i := len(questions) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		questions[i], questions[j] = questions[j], questions[i]
	}
}
