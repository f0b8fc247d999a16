package exam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProgressStore persists one session snapshot per exam type. Load returns
// (nil, nil) when no snapshot exists; a corrupted snapshot is reported the
// same way, never as an error.
type ProgressStore interface {
	Save(ctx context.Context, t Type, snap Snapshot) error
	Load(ctx context.Context, t Type) (*Snapshot, error)
	Clear(ctx context.Context, t Type) error
}

// ResultStore keeps the single most-recent submission result.
type ResultStore interface {
	SaveResult(ctx context.Context, result Result) error
	LatestResult(ctx context.Context) (*Result, error)
}

// Service is the caller-facing exam engine: generation, time allocation,
// progress persistence, and scoring. It owns the session-scoped used-id set
// and the current session identifier, constructed once at startup instead of
// living as hidden process globals.
type Service struct {
	repo    *Repository
	sampler *Sampler
	store   ProgressStore
	results ResultStore
	logger  zerolog.Logger

	mu        sync.Mutex
	usedIDs   map[string]struct{}
	sessionID string
}

func NewService(repo *Repository, sampler *Sampler, store ProgressStore, results ResultStore, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		sampler: sampler,
		store:   store,
		results: results,
		logger:  logger.With().Str("component", "exam_service").Logger(),
		usedIDs: make(map[string]struct{}),
	}
}

// Categories returns the fixed category order for an exam type.
func (s *Service) Categories(t Type) ([]string, error) {
	return Categories(t)
}

// AvailableCounts exposes bank pool sizes for a track.
func (s *Service) AvailableCounts(track Type) map[string]CategoryCount {
	return s.repo.AvailableCounts(track)
}

// AdaptedTimeLimit proxies the proportional time allocation.
func (s *Service) AdaptedTimeLimit(t Type, questionCount int) (int, error) {
	return AdaptedTimeLimit(t, questionCount)
}

// GenerateExam starts a fresh session: new session id, cleared exclusion
// set, then the sampled and shuffled question list. An entirely empty draw
// is fatal and aborts exam start.
func (s *Service) GenerateExam(ctx context.Context, t Type) ([]*Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionID = uuid.NewString()
	s.usedIDs = make(map[string]struct{})

	questions, err := s.sampler.Generate(t, s.usedIDs)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("generate %s exam: %w", t, ErrNoQuestionsAvailable)
	}

	s.logger.Info().
		Str("exam_type", string(t)).
		Str("session_id", s.sessionID).
		Int("questions", len(questions)).
		Int("used", len(s.usedIDs)).
		Msg("exam generated")

	examsGenerated.WithLabelValues(string(t)).Inc()
	return questions, nil
}

// SaveProgress checkpoints the session under its exam type slot.
func (s *Service) SaveProgress(ctx context.Context, t Type, session Session) error {
	s.mu.Lock()
	sessionID := s.sessionID
	s.mu.Unlock()

	snap := Snapshot{
		Session:   session,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}
	if err := s.store.Save(ctx, t, snap); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	progressSaves.Inc()
	return nil
}

// LoadProgress restores a saved snapshot, if any. On a hit it adopts the
// snapshot's session id and repopulates the used-id set from its question
// list, so in-session regeneration keeps excluding them.
func (s *Service) LoadProgress(ctx context.Context, t Type) (*Snapshot, error) {
	snap, err := s.store.Load(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if snap == nil {
		return nil, nil
	}

	s.mu.Lock()
	if snap.SessionID != "" {
		s.sessionID = snap.SessionID
	}
	for _, q := range snap.Questions {
		if q != nil && q.ID != "" {
			s.usedIDs[q.ID] = struct{}{}
		}
	}
	s.mu.Unlock()

	return snap, nil
}

// ClearProgress removes the persisted slot and resets the session-scoped
// exclusion set, so a freshly started exam samples unconstrained.
func (s *Service) ClearProgress(ctx context.Context, t Type) error {
	if err := s.store.Clear(ctx, t); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	s.mu.Lock()
	s.usedIDs = make(map[string]struct{})
	s.mu.Unlock()
	return nil
}

// Submit scores the final session state, writes the single-slot result, and
// clears the persisted progress. timeTaken is elapsed seconds with the
// remaining time clamped to zero.
func (s *Service) Submit(ctx context.Context, t Type, session Session) (*Result, error) {
	if err := s.ClearProgress(ctx, t); err != nil {
		s.logger.Warn().Err(err).Str("exam_type", string(t)).Msg("failed to clear progress on submit")
	}

	summary := Score(session.Questions, session.Answers)
	remaining := session.TimeRemaining
	if remaining < 0 {
		remaining = 0
	}

	result := Result{
		ExamType:       t,
		Score:          summary.Score,
		TotalQuestions: summary.Total,
		Percentage:     summary.Percentage,
		TimeTaken:      FormatDuration(session.TimeLimit - remaining),
		Date:           time.Now().UTC(),
		CategoryScores: CategoryScores(session.Questions, session.Answers),
		Evaluations:    summary.Evaluations,
		AnswersCount:   len(session.Answers),
	}

	if err := s.results.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}

	s.logger.Info().
		Str("exam_type", string(t)).
		Int("score", result.Score).
		Int("total", result.TotalQuestions).
		Int("percentage", result.Percentage).
		Msg("exam submitted")

	examsSubmitted.WithLabelValues(string(t)).Inc()
	return &result, nil
}

// LatestResult reads the most recent submission, or nil when none exists.
func (s *Service) LatestResult(ctx context.Context) (*Result, error) {
	return s.results.LatestResult(ctx)
}

// sessionUsedCount reports the exclusion set size, for tests and stats logs.
func (s *Service) sessionUsedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.usedIDs)
}
