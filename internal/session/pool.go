// Package session manages a bounded pool of warm CLI sessions keyed by
// thread ID.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"chathub/internal/usage"
)

// Handle is a live CLI session owned by the pool.
type Handle interface {
	Send(ctx context.Context, prompt string) (*usage.Result, error)
	Close()
	Alive() bool
}

// Factory creates a new session for a thread.
type Factory func(ctx context.Context, threadID, model string) (Handle, error)

// Config bounds the pool.
type Config struct {
	MaxSessions   int
	TTL           time.Duration
	SweepInterval time.Duration
}

type entry struct {
	handle       Handle
	model        string
	lastActivity time.Time
	seq          uint64
}

// Pool holds at most MaxSessions sessions, one per thread. Idle sessions are
// reaped by a periodic sweep; capacity pressure evicts the least recently
// active session.
type Pool struct {
	factory Factory
	cfg     Config
	log     logrus.FieldLogger

	mu      sync.Mutex
	entries map[string]*entry
	nextSeq uint64

	sweeping atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once

	// Overridable for tests.
	now func() time.Time
}

// NewPool creates a pool. Call Start to begin the TTL sweep.
func NewPool(cfg Config, factory Factory, log logrus.FieldLogger) *Pool {
	if cfg.MaxSessions < 1 {
		cfg.MaxSessions = 1
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Pool{
		factory: factory,
		cfg:     cfg,
		log:     log,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
}

// Start launches the periodic TTL sweep.
func (p *Pool) Start() {
	go func() {
		ticker := time.NewTicker(p.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.sweep()
			case <-p.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep goroutine. It does not close pooled sessions; use
// CloseAll for shutdown.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Get returns the warm session for a thread, creating one if needed. A pooled
// session is reused only when it is alive and matches the requested model;
// otherwise it is closed and replaced. When the pool is full, the least
// recently active session is evicted to make room.
func (p *Pool) Get(ctx context.Context, threadID, model string) (Handle, error) {
	p.mu.Lock()
	if e, ok := p.entries[threadID]; ok {
		if e.model == model && e.handle.Alive() {
			e.lastActivity = p.now()
			h := e.handle
			p.mu.Unlock()
			return h, nil
		}
		if e.model != model {
			p.log.Infof("Evicting session for thread %s: model switch %s -> %s", threadID, e.model, model)
		} else {
			p.log.Infof("Replacing dead session for thread %s", threadID)
		}
		e.handle.Close()
		delete(p.entries, threadID)
	}
	p.evictForCapacityLocked(threadID)
	p.mu.Unlock()

	// Session startup can be slow; keep it outside the lock.
	h, err := p.factory(ctx, threadID, model)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if old, ok := p.entries[threadID]; ok {
		// A concurrent Get won the race; the newest session wins.
		old.handle.Close()
	}
	p.evictForCapacityLocked(threadID)
	p.nextSeq++
	p.entries[threadID] = &entry{
		handle:       h,
		model:        model,
		lastActivity: p.now(),
		seq:          p.nextSeq,
	}
	p.mu.Unlock()
	return h, nil
}

// evictForCapacityLocked closes the least recently active session when the
// pool has no room for a new entry keyed by threadID. Ties on lastActivity
// break by insertion order.
func (p *Pool) evictForCapacityLocked(threadID string) {
	if _, ok := p.entries[threadID]; ok {
		return
	}
	for len(p.entries) >= p.cfg.MaxSessions {
		var victimID string
		var victim *entry
		for id, e := range p.entries {
			if victim == nil || e.lastActivity.Before(victim.lastActivity) ||
				(e.lastActivity.Equal(victim.lastActivity) && e.seq < victim.seq) {
				victimID, victim = id, e
			}
		}
		p.log.Infof("Evicting idle session for thread %s: pool at capacity", victimID)
		victim.handle.Close()
		delete(p.entries, victimID)
	}
}

// Evict closes and removes the session for a thread. Unknown threads are a
// no-op.
func (p *Pool) Evict(threadID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[threadID]; ok {
		e.handle.Close()
		delete(p.entries, threadID)
	}
}

// CloseAll closes every pooled session.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.entries {
		e.handle.Close()
		delete(p.entries, id)
	}
}

// Size returns the number of pooled sessions.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// sweep closes dead sessions and sessions idle past the TTL. Overlapping
// sweeps are skipped.
func (p *Pool) sweep() {
	if !p.sweeping.CompareAndSwap(false, true) {
		return
	}
	defer p.sweeping.Store(false)

	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.entries {
		if !e.handle.Alive() {
			p.log.Infof("Sweeping dead session for thread %s", id)
		} else if p.cfg.TTL > 0 && now.Sub(e.lastActivity) > p.cfg.TTL {
			p.log.Infof("Sweeping idle session for thread %s: idle %s", id, now.Sub(e.lastActivity).Round(time.Second))
		} else {
			continue
		}
		e.handle.Close()
		delete(p.entries, id)
	}
}
