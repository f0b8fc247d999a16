package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/csereviewer/exam-engine/internal/exam"
)

// snapshotRow is the persisted progress slot, one per exam type.
type snapshotRow struct {
	ExamType  string `gorm:"primaryKey;size:32"`
	SessionID string `gorm:"size:36"`
	Payload   []byte `gorm:"not null"`
	SavedAt   time.Time
}

// resultRow is the single most-recent-result slot.
type resultRow struct {
	ID      uint   `gorm:"primaryKey"`
	Payload []byte `gorm:"not null"`
	SavedAt time.Time
}

// resultSlotID pins the result table to a single row.
const resultSlotID = 1

// Store keeps session snapshots and the latest result in a local SQLite
// file, with an in-memory cache in front so repeated loads skip
// deserialization. A snapshot that fails to deserialize reads as absent.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[exam.Type]*exam.Snapshot
}

var _ exam.ProgressStore = (*Store)(nil)
var _ exam.ResultStore = (*Store)(nil)

// cloneSnapshot duplicates the answers map and questions slice so the cache
// never aliases a caller's live session state.
func cloneSnapshot(snap *exam.Snapshot) *exam.Snapshot {
	copied := *snap
	copied.Answers = make(map[string]string, len(snap.Answers))
	for id, option := range snap.Answers {
		copied.Answers[id] = option
	}
	copied.Questions = append([]*exam.Question(nil), snap.Questions...)
	return &copied
}

// Open creates or opens the store at path and migrates its schema.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open progress store: %w", err)
	}
	if err := db.AutoMigrate(&snapshotRow{}, &resultRow{}); err != nil {
		return nil, fmt.Errorf("migrate progress store: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "progress_store").Logger(),
		cache:  make(map[exam.Type]*exam.Snapshot),
	}, nil
}

// Save upserts the snapshot slot for an exam type and refreshes the cache.
func (s *Store) Save(ctx context.Context, t exam.Type, snap exam.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	row := snapshotRow{
		ExamType:  string(t),
		SessionID: snap.SessionID,
		Payload:   payload,
		SavedAt:   snap.Timestamp,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.mu.Lock()
	s.cache[t] = cloneSnapshot(&snap)
	s.mu.Unlock()
	return nil
}

// Load returns the saved snapshot for an exam type, (nil, nil) when none
// exists. Cache hits return immediately; a corrupted persisted payload is
// logged and treated as absence, never surfaced as an error.
func (s *Store) Load(ctx context.Context, t exam.Type) (*exam.Snapshot, error) {
	s.mu.RLock()
	if snap, ok := s.cache[t]; ok {
		copied := cloneSnapshot(snap)
		s.mu.RUnlock()
		return copied, nil
	}
	s.mu.RUnlock()

	var row snapshotRow
	err := s.db.WithContext(ctx).
		Where("exam_type = ?", string(t)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap exam.Snapshot
	if err := json.Unmarshal(row.Payload, &snap); err != nil {
		s.logger.Warn().Err(err).
			Str("exam_type", string(t)).
			Msg("corrupted snapshot, treating as absent")
		return nil, nil
	}

	s.mu.Lock()
	s.cache[t] = &snap
	s.mu.Unlock()

	return cloneSnapshot(&snap), nil
}

// Clear removes both the persisted slot and the cache entry.
func (s *Store) Clear(ctx context.Context, t exam.Type) error {
	err := s.db.WithContext(ctx).
		Where("exam_type = ?", string(t)).
		Delete(&snapshotRow{}).Error
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}

	s.mu.Lock()
	delete(s.cache, t)
	s.mu.Unlock()
	return nil
}

// SaveResult overwrites the single most-recent-result slot.
func (s *Store) SaveResult(ctx context.Context, result exam.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	row := resultRow{
		ID:      resultSlotID,
		Payload: payload,
		SavedAt: time.Now(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// LatestResult reads the most recent submission, (nil, nil) when none.
func (s *Store) LatestResult(ctx context.Context) (*exam.Result, error) {
	var row resultRow
	err := s.db.WithContext(ctx).
		Where("id = ?", resultSlotID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}

	var result exam.Result
	if err := json.Unmarshal(row.Payload, &result); err != nil {
		s.logger.Warn().Err(err).Msg("corrupted result slot, treating as absent")
		return nil, nil
	}
	return &result, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
