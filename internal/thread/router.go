// Package thread routes inbound messages to conversation threads keyed by
// their external (source, source_id) identity.
package thread

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chathub/internal/domain"
	"chathub/internal/store"
)

// Router resolves and manages threads.
type Router struct {
	store store.Store
	log   logrus.FieldLogger
}

// NewRouter creates a router.
func NewRouter(st store.Store, log logrus.FieldLogger) *Router {
	return &Router{store: st, log: log}
}

// GetOrCreateParams identifies or describes a thread.
type GetOrCreateParams struct {
	Source   string
	SourceID string
	Kind     domain.ThreadKind
	Name     string
}

// GetOrCreate returns the thread for a (source, source_id) key, creating it
// when absent. Existing threads get their activity touched; the stored kind
// and name win over the params. Kind defaults to general.
func (r *Router) GetOrCreate(ctx context.Context, p GetOrCreateParams) (*domain.Thread, error) {
	if p.Source == "" || p.SourceID == "" {
		return nil, fmt.Errorf("source and source_id are required")
	}

	thread, err := r.store.GetThreadBySource(ctx, p.Source, p.SourceID)
	if err != nil {
		return nil, err
	}
	if thread != nil {
		if err := r.store.TouchThread(ctx, thread.ThreadID); err != nil {
			return nil, err
		}
		thread.LastActivity = time.Now()
		return thread, nil
	}

	kind := p.Kind
	if kind == "" {
		kind = domain.ThreadKindGeneral
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid thread kind: %s", kind)
	}

	now := time.Now()
	thread = &domain.Thread{
		ThreadID:     newThreadID(),
		Source:       p.Source,
		SourceID:     p.SourceID,
		Kind:         kind,
		Status:       domain.ThreadStatusActive,
		Name:         p.Name,
		LastActivity: now,
		CreatedAt:    now,
	}
	if err := r.store.CreateThread(ctx, thread); err != nil {
		return nil, err
	}
	r.log.Infof("Created thread %s for %s:%s (%s)", thread.ThreadID, p.Source, p.SourceID, kind)
	return thread, nil
}

// CreateSubThread creates a child thread under a parent. Sub-threads always
// get a fresh thread, never a lookup.
func (r *Router) CreateSubThread(ctx context.Context, parentThreadID, name string, kind domain.ThreadKind) (*domain.Thread, error) {
	parent, err := r.store.GetThread(ctx, parentThreadID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("parent thread not found: %s", parentThreadID)
	}

	if kind == "" {
		kind = domain.ThreadKindTask
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid thread kind: %s", kind)
	}

	now := time.Now()
	id := newThreadID()
	thread := &domain.Thread{
		ThreadID: id,
		Source:   parent.Source,
		// Sub-threads are internal; synthesize a unique source key so the
		// unique (source, source_id) index holds.
		SourceID:       parentThreadID + ":" + id,
		Kind:           kind,
		Status:         domain.ThreadStatusActive,
		Name:           name,
		ParentThreadID: parentThreadID,
		LastActivity:   now,
		CreatedAt:      now,
	}
	if err := r.store.CreateThread(ctx, thread); err != nil {
		return nil, err
	}
	r.log.Infof("Created sub-thread %s under %s", thread.ThreadID, parentThreadID)
	return thread, nil
}

// GetByID retrieves a thread, nil when absent.
func (r *Router) GetByID(ctx context.Context, threadID string) (*domain.Thread, error) {
	return r.store.GetThread(ctx, threadID)
}

// GetBySource retrieves a thread by its external key, nil when absent.
func (r *Router) GetBySource(ctx context.Context, source, sourceID string) (*domain.Thread, error) {
	return r.store.GetThreadBySource(ctx, source, sourceID)
}

// Close marks a thread closed.
func (r *Router) Close(ctx context.Context, threadID string) error {
	thread, err := r.store.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	if thread == nil {
		return fmt.Errorf("thread not found: %s", threadID)
	}
	return r.store.UpdateThreadStatus(ctx, threadID, domain.ThreadStatusClosed)
}

// GetChildren returns a thread's sub-threads, newest first.
func (r *Router) GetChildren(ctx context.Context, threadID string) ([]domain.Thread, error) {
	return r.store.ListChildThreads(ctx, threadID)
}

func newThreadID() string {
	return "thr_" + uuid.New().String()[:8]
}
