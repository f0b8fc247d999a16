package exam

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TimerEvent is pushed to session watchers on every countdown tick and once
// more when the countdown expires.
type TimerEvent struct {
	Remaining int  `json:"remaining"`
	Expired   bool `json:"expired"`
}

// Manager runs at most one live session per exam type. It applies the save
// cadence (every answer change, every navigation change, and periodically on
// the countdown) and wires timer expiry to a single automatic submission.
type Manager struct {
	svc           *Service
	autosaveEvery int
	logger        zerolog.Logger

	mu   sync.Mutex
	live map[Type]*liveSession
}

type liveSession struct {
	session *Session
	timer   *Timer
	subs    map[chan TimerEvent]struct{}
}

// NewManager builds a session manager. autosaveSeconds sets the periodic
// checkpoint cadence; values below one fall back to the default.
func NewManager(svc *Service, autosaveSeconds int, logger zerolog.Logger) *Manager {
	if autosaveSeconds <= 0 {
		autosaveSeconds = autosaveEverySeconds
	}
	return &Manager{
		svc:           svc,
		autosaveEvery: autosaveSeconds,
		logger:        logger.With().Str("component", "session_manager").Logger(),
		live:          make(map[Type]*liveSession),
	}
}

// Start opens a session for an exam type. With resume=true an existing
// snapshot is restored; otherwise (or when no snapshot exists) any stale
// snapshot is cleared first and a fresh exam is generated, so previously
// drawn ids cannot leak into the new session's exclusion set.
func (m *Manager) Start(ctx context.Context, t Type, resume bool) (*Session, bool, error) {
	if _, err := ParseType(string(t)); err != nil {
		return nil, false, err
	}

	m.stopExisting(t)

	if resume {
		snap, err := m.svc.LoadProgress(ctx, t)
		if err != nil {
			return nil, false, err
		}
		if snap != nil {
			// clone detaches the live session from the store's copy and
			// guarantees a non-nil answers map.
			session := snap.Session.clone()
			if session.CurrentIndex < 0 || session.CurrentIndex >= len(session.Questions) {
				session.CurrentIndex = 0
			}
			m.install(ctx, t, &session)
			return &session, true, nil
		}
	}

	if err := m.svc.ClearProgress(ctx, t); err != nil {
		return nil, false, err
	}

	questions, err := m.svc.GenerateExam(ctx, t)
	if err != nil {
		return nil, false, err
	}
	limit, err := m.svc.AdaptedTimeLimit(t, len(questions))
	if err != nil {
		return nil, false, err
	}

	session := &Session{
		ExamType:      t,
		Questions:     questions,
		Answers:       make(map[string]string),
		CurrentIndex:  0,
		TimeRemaining: limit,
		TimeLimit:     limit,
		CreatedAt:     time.Now().UTC(),
	}

	if err := m.svc.SaveProgress(ctx, t, session.clone()); err != nil {
		m.logger.Warn().Err(err).Str("exam_type", string(t)).Msg("initial progress save failed")
	}

	m.install(ctx, t, session)
	return session, false, nil
}

func (m *Manager) install(ctx context.Context, t Type, session *Session) {
	ls := &liveSession{
		session: session,
		subs:    make(map[chan TimerEvent]struct{}),
	}
	ls.timer = NewTimer(session.TimeRemaining, TimerCallbacks{
		OnTick: func(remaining int) {
			m.onTick(t, remaining)
		},
		OnAutosave: func(remaining int) {
			m.autosave(t, remaining)
		},
		OnExpire: func() {
			m.onExpire(t)
		},
	})
	ls.timer.autosaveEvery = m.autosaveEvery

	m.mu.Lock()
	m.live[t] = ls
	m.mu.Unlock()

	activeSessions.Inc()
	ls.timer.Start()
}

func (m *Manager) stopExisting(t Type) {
	m.mu.Lock()
	ls, ok := m.live[t]
	if ok {
		delete(m.live, t)
	}
	m.mu.Unlock()

	if ok {
		ls.timer.Stop()
		m.closeSubs(ls, false)
		activeSessions.Dec()
	}
}

// Session returns a copy of the live session state for an exam type.
func (m *Manager) Session(t Type) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.live[t]
	if !ok {
		return nil, ErrNoActiveSession
	}
	copied := ls.session.clone()
	return &copied, nil
}

// Answer records a selected option and checkpoints immediately.
func (m *Manager) Answer(ctx context.Context, t Type, questionID, optionID string) error {
	m.mu.Lock()
	ls, ok := m.live[t]
	if !ok {
		m.mu.Unlock()
		return ErrNoActiveSession
	}
	if !sessionHasQuestion(ls.session, questionID) {
		m.mu.Unlock()
		return ErrUnknownQuestion
	}
	ls.session.Answers[questionID] = optionID
	// Serialization happens outside the lock, so the snapshot must not share
	// the answers map with the live session.
	snapshot := ls.session.clone()
	m.mu.Unlock()

	return m.svc.SaveProgress(ctx, t, snapshot)
}

// Navigate moves the current question pointer and checkpoints immediately.
func (m *Manager) Navigate(ctx context.Context, t Type, index int) error {
	m.mu.Lock()
	ls, ok := m.live[t]
	if !ok {
		m.mu.Unlock()
		return ErrNoActiveSession
	}
	if index < 0 || index >= len(ls.session.Questions) {
		m.mu.Unlock()
		return ErrIndexOutOfRange
	}
	ls.session.CurrentIndex = index
	snapshot := ls.session.clone()
	m.mu.Unlock()

	return m.svc.SaveProgress(ctx, t, snapshot)
}

// Pause halts the countdown for an exam type.
func (m *Manager) Pause(t Type) error {
	return m.withTimer(t, func(timer *Timer) { timer.Pause() })
}

// Resume restarts a paused countdown.
func (m *Manager) Resume(t Type) error {
	return m.withTimer(t, func(timer *Timer) { timer.Resume() })
}

func (m *Manager) withTimer(t Type, fn func(*Timer)) error {
	m.mu.Lock()
	ls, ok := m.live[t]
	m.mu.Unlock()
	if !ok {
		return ErrNoActiveSession
	}
	fn(ls.timer)
	return nil
}

// Submit finalizes the session: the countdown stops, the result is scored
// and stored, and the live slot is released.
func (m *Manager) Submit(ctx context.Context, t Type) (*Result, error) {
	m.mu.Lock()
	ls, ok := m.live[t]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	delete(m.live, t)
	snapshot := ls.session.clone()
	m.mu.Unlock()

	ls.timer.Stop()
	m.closeSubs(ls, snapshot.TimeRemaining <= 0)
	activeSessions.Dec()

	return m.svc.Submit(ctx, t, snapshot)
}

// Progress reports per-category answered/total tallies plus the overall
// answered count for the live session.
func (m *Manager) Progress(t Type) (map[string]CategoryProgress, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.live[t]
	if !ok {
		return nil, 0, ErrNoActiveSession
	}

	progress := make(map[string]CategoryProgress)
	for _, q := range ls.session.Questions {
		if q == nil {
			continue
		}
		entry := progress[q.Category]
		entry.Total++
		if _, answered := ls.session.Answers[q.ID]; answered {
			entry.Answered++
		}
		progress[q.Category] = entry
	}
	return progress, len(ls.session.Answers), nil
}

// Watch subscribes to countdown events for a live session. The returned
// cancel func must be called when the watcher goes away.
func (m *Manager) Watch(t Type) (<-chan TimerEvent, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.live[t]
	if !ok {
		return nil, func() {}, ErrNoActiveSession
	}

	ch := make(chan TimerEvent, 8)
	ls.subs[ch] = struct{}{}

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, still := ls.subs[ch]; still {
			delete(ls.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

func (m *Manager) onTick(t Type, remaining int) {
	m.mu.Lock()
	ls, ok := m.live[t]
	if ok {
		ls.session.TimeRemaining = remaining
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	m.broadcast(ls, TimerEvent{Remaining: remaining})
}

func (m *Manager) autosave(t Type, remaining int) {
	m.mu.Lock()
	ls, ok := m.live[t]
	var snapshot Session
	if ok {
		ls.session.TimeRemaining = remaining
		snapshot = ls.session.clone()
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if err := m.svc.SaveProgress(context.Background(), t, snapshot); err != nil {
		m.logger.Warn().Err(err).Str("exam_type", string(t)).Msg("periodic progress save failed")
	}
}

// onExpire runs once when the countdown hits zero: the remaining time is
// clamped to zero and the session is submitted automatically.
func (m *Manager) onExpire(t Type) {
	m.mu.Lock()
	ls, ok := m.live[t]
	if ok {
		ls.session.TimeRemaining = 0
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	m.logger.Info().Str("exam_type", string(t)).Msg("time expired, auto-submitting")
	if _, err := m.Submit(context.Background(), t); err != nil {
		m.logger.Error().Err(err).Str("exam_type", string(t)).Msg("auto-submit failed")
	}
}

func sessionHasQuestion(s *Session, questionID string) bool {
	for _, q := range s.Questions {
		if q != nil && q.ID == questionID {
			return true
		}
	}
	return false
}

func (m *Manager) broadcast(ls *liveSession, ev TimerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range ls.subs {
		select {
		case ch <- ev:
		default:
			// slow watcher, drop the tick
		}
	}
}

func (m *Manager) closeSubs(ls *liveSession, expired bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range ls.subs {
		if expired {
			select {
			case ch <- TimerEvent{Remaining: 0, Expired: true}:
			default:
			}
		}
		close(ch)
		delete(ls.subs, ch)
	}
}
