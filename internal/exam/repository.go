package exam

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Repository holds the category-partitioned question pools for both exam
// tracks. It is populated once at startup and read-only afterwards.
type Repository struct {
	pools  map[Type]map[string][]*Question
	logger zerolog.Logger
}

// CategoryCount reports pool size against the base draw target.
type CategoryCount struct {
	Total  int `json:"total"`
	Target int `json:"target"`
}

// NewRepository builds a repository from pre-loaded pools. Intended for tests
// and embedded banks; file-backed setups go through LoadFromDir.
func NewRepository(pools map[Type]map[string][]*Question, logger zerolog.Logger) *Repository {
	if pools == nil {
		pools = map[Type]map[string][]*Question{}
	}
	for _, t := range []Type{TypeProfessional, TypeSubProfessional} {
		if pools[t] == nil {
			pools[t] = map[string][]*Question{}
		}
	}
	return &Repository{
		pools:  pools,
		logger: logger.With().Str("component", "question_repository").Logger(),
	}
}

// LoadFromDir reads one JSON file per track/category from dir (pro/ and
// subpro/ subdirectories). A missing or malformed file degrades that category
// to an empty pool with a warning; it never aborts the load. Only a dir that
// yields zero questions overall is an error.
func LoadFromDir(dir string, logger zerolog.Logger) (*Repository, error) {
	repo := NewRepository(nil, logger)
	seen := make(map[string]string) // question id -> track/category it came from

	// Fixed track order keeps the cross-track duplicate-id winner stable:
	// an id present in both banks always lands in the professional pool.
	for _, track := range []Type{TypeProfessional, TypeSubProfessional} {
		categories, _ := Categories(track)
		for _, category := range categories {
			path := filepath.Join(dir, trackDirs[track], bankFiles[category]+".json")
			questions := repo.loadBankFile(path, track, category, seen)
			repo.pools[track][category] = questions
		}
	}

	repo.logStats()

	if repo.totalQuestions() == 0 {
		return nil, fmt.Errorf("question bank %s: %w", dir, ErrNoQuestionsAvailable)
	}
	return repo, nil
}

func (r *Repository) loadBankFile(path string, track Type, category string, seen map[string]string) []*Question {
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn().Err(err).
			Str("category", category).
			Str("track", string(track)).
			Msg("question bank file unavailable, category degraded to empty")
		return nil
	}

	var raw []*Question
	if err := json.Unmarshal(data, &raw); err != nil {
		r.logger.Warn().Err(err).
			Str("path", path).
			Msg("malformed question bank file, category degraded to empty")
		return nil
	}

	questions := make([]*Question, 0, len(raw))
	for _, q := range raw {
		if q == nil || q.ID == "" || q.CorrectAnswer == "" || len(q.Options) < 2 {
			r.logger.Warn().
				Str("path", path).
				Msg("skipping malformed question entry")
			continue
		}
		if origin, dup := seen[q.ID]; dup {
			r.logger.Warn().
				Str("question_id", q.ID).
				Str("first_seen", origin).
				Msg("skipping duplicate question id")
			continue
		}
		if q.Category == "" {
			q.Category = category
		}
		seen[q.ID] = string(track) + "/" + category
		questions = append(questions, q)
	}
	return questions
}

// QuestionsFor returns the pool for a track/category. Absent categories and
// the practice pseudo-track return an empty slice, never an error.
func (r *Repository) QuestionsFor(track Type, category string) []*Question {
	pool, ok := r.pools[track]
	if !ok {
		return nil
	}
	return pool[category]
}

// AvailableCounts reports pool sizes against base targets for a track,
// mirroring the bank statistics surfaced to operators.
func (r *Repository) AvailableCounts(track Type) map[string]CategoryCount {
	counts := make(map[string]CategoryCount)
	pool, ok := r.pools[track]
	if !ok {
		return counts
	}
	for category, questions := range pool {
		counts[category] = CategoryCount{
			Total:  len(questions),
			Target: categoryTarget(track, category),
		}
	}
	return counts
}

func (r *Repository) totalQuestions() int {
	total := 0
	for _, pool := range r.pools {
		for _, questions := range pool {
			total += len(questions)
		}
	}
	return total
}

func (r *Repository) logStats() {
	for track, pool := range r.pools {
		total := 0
		for _, questions := range pool {
			total += len(questions)
		}
		ev := r.logger.Info().Str("track", string(track)).Int("total", total)
		for category, questions := range pool {
			ev = ev.Int(category, len(questions))
		}
		ev.Msg("question bank loaded")
	}
}
