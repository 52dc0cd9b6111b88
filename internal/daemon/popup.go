package daemon

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// popupRatePeriod caps attention popups at one per session per period, so a
// session flapping in and out of needs_attention does not spam the desktop.
const popupRatePeriod = time.Minute

// popupScheduler arms one in-process timer per session when it enters
// needs_attention and cancels it when the session leaves that state or
// ends. Replaces the detached timer subprocess of older designs: no process
// spawn, no file-based cancellation race.
type popupScheduler struct {
	mu       sync.Mutex
	delay    time.Duration
	timers   map[string]*time.Timer
	limiters map[string]*rate.Limiter
	fire     func(sessionID string)
}

func newPopupScheduler(delay time.Duration, fire func(sessionID string)) *popupScheduler {
	return &popupScheduler{
		delay:    delay,
		timers:   make(map[string]*time.Timer),
		limiters: make(map[string]*rate.Limiter),
		fire:     fire,
	}
}

// schedule arms the timer for sessionID, replacing any earlier one.
func (p *popupScheduler) schedule(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.timers[sessionID]; ok {
		t.Stop()
	}
	p.timers[sessionID] = time.AfterFunc(p.delay, func() {
		p.mu.Lock()
		delete(p.timers, sessionID)
		allowed := p.limiter(sessionID).Allow()
		p.mu.Unlock()
		if allowed {
			p.fire(sessionID)
		}
	})
}

// cancel disarms the timer for sessionID, if armed.
func (p *popupScheduler) cancel(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.timers[sessionID]; ok {
		t.Stop()
		delete(p.timers, sessionID)
	}
}

// forget drops all per-session bookkeeping (session ended).
func (p *popupScheduler) forget(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.timers[sessionID]; ok {
		t.Stop()
		delete(p.timers, sessionID)
	}
	delete(p.limiters, sessionID)
}

// setDelay applies a new delay to timers armed from now on (config reload).
func (p *popupScheduler) setDelay(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = delay
}

// limiter must be called with p.mu held.
func (p *popupScheduler) limiter(sessionID string) *rate.Limiter {
	l, ok := p.limiters[sessionID]
	if !ok {
		l = rate.NewLimiter(rate.Every(popupRatePeriod), 1)
		p.limiters[sessionID] = l
	}
	return l
}

// stopAll disarms every timer (daemon shutdown).
func (p *popupScheduler) stopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
	}
}
