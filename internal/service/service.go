// Package service orchestrates the message pipeline: thread resolution,
// policy, plugin hooks, session pool, and event fan-out.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chathub/internal/config"
	"chathub/internal/domain"
	"chathub/internal/plugin"
	"chathub/internal/policy"
	"chathub/internal/session"
	"chathub/internal/store"
	"chathub/internal/thread"
)

// Service wires the hub's components together.
type Service struct {
	store   store.Store
	router  *thread.Router
	pool    *session.Pool
	plugins *plugin.Registry
	policy  *policy.Engine
	hub     plugin.Broadcaster
	cfg     *config.Config
	log     logrus.FieldLogger
}

// New creates the service.
func New(st store.Store, router *thread.Router, pool *session.Pool, plugins *plugin.Registry, policyEngine *policy.Engine, hub plugin.Broadcaster, cfg *config.Config, log logrus.FieldLogger) *Service {
	return &Service{
		store:   st,
		router:  router,
		pool:    pool,
		plugins: plugins,
		policy:  policyEngine,
		hub:     hub,
		cfg:     cfg,
		log:     log,
	}
}

// Router exposes the thread router to transports.
func (s *Service) Router() *thread.Router {
	return s.router
}

// Pool exposes the session pool.
func (s *Service) Pool() *session.Pool {
	return s.pool
}

// SendToThread accepts an inbound message, resolves its thread, persists the
// user turn, and runs the rest of the pipeline in the background. The
// response acknowledges acceptance, not completion.
func (s *Service) SendToThread(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("content is required")
	}
	model := req.Model
	if model == "" {
		model = s.cfg.DefaultModel
	}

	kind := domain.ThreadKindGeneral
	if req.Source == "cron" {
		kind = domain.ThreadKindCron
	}
	th, err := s.router.GetOrCreate(ctx, thread.GetOrCreateParams{
		Source:   req.Source,
		SourceID: req.SourceID,
		Kind:     kind,
	})
	if err != nil {
		return nil, err
	}
	if th.Status == domain.ThreadStatusClosed {
		return nil, fmt.Errorf("thread %s is closed", th.ThreadID)
	}

	msg := &domain.Message{
		MessageID: "msg_" + uuid.New().String()[:8],
		ThreadID:  th.ThreadID,
		Role:      domain.RoleUser,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	go s.runPipeline(th, req.Content, model)

	return &domain.SendMessageResponse{
		ThreadID:  th.ThreadID,
		MessageID: msg.MessageID,
	}, nil
}
