package exam

import (
	"sync"
	"time"
)

// autosaveEverySeconds is the default periodic checkpoint cadence. It bounds
// timer drift lost on an unclean shutdown.
const autosaveEverySeconds = 30

// TimerCallbacks hook the countdown into the session layer. All callbacks
// run on the timer goroutine.
type TimerCallbacks struct {
	OnTick     func(remaining int)
	OnAutosave func(remaining int)
	OnExpire   func()
}

// Timer is a pausable one-second countdown. Expiry fires exactly once, and
// the tick loop stops immediately at zero so a late tick can never re-enter
// submission. Pausing holds the remaining time without losing it.
type Timer struct {
	mu        sync.Mutex
	remaining int
	running   bool

	interval      time.Duration
	autosaveEvery int
	cb            TimerCallbacks

	stopCh     chan struct{}
	stopOnce   sync.Once
	expireOnce sync.Once
}

func NewTimer(seconds int, cb TimerCallbacks) *Timer {
	return &Timer{
		remaining:     seconds,
		running:       true,
		interval:      time.Second,
		autosaveEvery: autosaveEverySeconds,
		cb:            cb,
		stopCh:        make(chan struct{}),
	}
}

// Start launches the tick loop. A timer already at zero expires immediately.
func (t *Timer) Start() {
	go t.loop()
}

func (t *Timer) loop() {
	if t.Remaining() <= 0 {
		t.expire()
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			if expired := t.tick(); expired {
				return
			}
		}
	}
}

// tick advances one second; returns true once the countdown has expired.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return false
	}
	t.remaining--
	remaining := t.remaining
	t.mu.Unlock()

	if remaining <= 0 {
		t.expire()
		return true
	}

	if t.cb.OnTick != nil {
		t.cb.OnTick(remaining)
	}
	if remaining%t.autosaveEvery == 0 && t.cb.OnAutosave != nil {
		t.cb.OnAutosave(remaining)
	}
	return false
}

func (t *Timer) expire() {
	t.mu.Lock()
	t.remaining = 0
	t.mu.Unlock()

	t.Stop()
	t.expireOnce.Do(func() {
		if t.cb.OnExpire != nil {
			t.cb.OnExpire()
		}
	})
}

// Pause halts the decrement without discarding the remaining time.
func (t *Timer) Pause() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
}

// Resume restarts the decrement after a pause.
func (t *Timer) Resume() {
	t.mu.Lock()
	t.running = true
	t.mu.Unlock()
}

// Stop cancels the tick loop. Idempotent; a stopped timer never expires.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// Running reports whether the countdown is currently decrementing.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Remaining returns the seconds left on the countdown.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}
