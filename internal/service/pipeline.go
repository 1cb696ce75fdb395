package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chathub/internal/domain"
	"chathub/internal/plugin"
	"chathub/internal/policy"
	"chathub/internal/usage"
)

// Slack on top of the CLI timeout for hooks and persistence.
const pipelineGrace = 30 * time.Second

// runPipeline drives one message through policy, hooks, and the model.
// Failures never propagate to the caller; they are logged and broadcast.
func (s *Service) runPipeline(th *domain.Thread, content, model string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CLITimeout+pipelineGrace)
	defer cancel()

	log := s.log.WithField("thread_id", th.ThreadID)

	decision, err := s.policy.Evaluate(ctx, policy.Input{
		Source:    th.Source,
		Kind:      string(th.Kind),
		Model:     model,
		PromptLen: len(content),
	})
	if err != nil {
		// Policy evaluation errors fail open.
		log.Warnf("Policy evaluation failed: %v", err)
		decision = "allow"
	}
	if decision != "allow" {
		log.Infof("Invocation blocked by policy")
		s.hub.Broadcast(th.ThreadID, map[string]interface{}{
			"type":      "blocked",
			"thread_id": th.ThreadID,
			"reason":    "blocked by policy",
		})
		return
	}

	active := s.plugins.Active()

	plugin.RunHook(active, "pipeline_start", func(h plugin.Hooks) error {
		if h.PipelineStart == nil {
			return nil
		}
		return h.PipelineStart(ctx, th.ThreadID)
	}, log)

	prompt := plugin.RunChainHook(active, "before_invoke", content, func(h plugin.Hooks, value string) (string, error) {
		if h.BeforeInvoke == nil {
			return value, nil
		}
		return h.BeforeInvoke(ctx, th.ThreadID, value)
	}, log)

	handle, err := s.pool.Get(ctx, th.ThreadID, model)
	if err != nil {
		s.failPipeline(th.ThreadID, fmt.Errorf("failed to acquire session: %w", err))
		return
	}

	res, err := handle.Send(ctx, prompt)
	if err != nil {
		s.failPipeline(th.ThreadID, err)
		return
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"input_tokens":  res.InputTokens,
		"output_tokens": res.OutputTokens,
		"cost_usd":      res.CostUSD,
		"duration_ms":   res.DurationMs,
	})
	reply := &domain.Message{
		MessageID: "msg_" + uuid.New().String()[:8],
		ThreadID:  th.ThreadID,
		Role:      domain.RoleAssistant,
		Content:   res.Text,
		Model:     model,
		CreatedAt: time.Now(),
		Metadata:  meta,
	}
	if err := s.store.CreateMessage(ctx, reply); err != nil {
		log.Errorf("Failed to persist assistant message: %v", err)
	}

	plugin.RunHook(active, "after_invoke", func(h plugin.Hooks) error {
		if h.AfterInvoke == nil {
			return nil
		}
		return h.AfterInvoke(ctx, th.ThreadID, res)
	}, log)

	plugin.RunHook(active, "pipeline_complete", func(h plugin.Hooks) error {
		if h.PipelineComplete == nil {
			return nil
		}
		return h.PipelineComplete(ctx, th.ThreadID, res)
	}, log)

	s.hub.Broadcast(th.ThreadID, map[string]interface{}{
		"type":      "message",
		"thread_id": th.ThreadID,
		"message":   reply,
	})
}

func (s *Service) failPipeline(threadID string, err error) {
	s.log.WithField("thread_id", threadID).Errorf("Pipeline failed: %v", err)
	s.hub.Broadcast(threadID, map[string]interface{}{
		"type":      "error",
		"thread_id": threadID,
		"error":     err.Error(),
	})
}

// BroadcastEvent fans an event out through plugin broadcast hooks. Plugins
// that push to the websocket hub handle delivery.
func (s *Service) BroadcastEvent(ctx context.Context, event string, payload interface{}) {
	plugin.RunHook(s.plugins.Active(), "on_broadcast", func(h plugin.Hooks) error {
		if h.OnBroadcast == nil {
			return nil
		}
		return h.OnBroadcast(ctx, event, payload)
	}, s.log)
}

// EstimateUsage is a convenience for transports that show a preview before
// sending.
func (s *Service) EstimateUsage(model, prompt string) *usage.Result {
	in := usage.EstimateTokens(prompt)
	return &usage.Result{
		Model:       model,
		InputTokens: in,
		CostUSD:     usage.Cost(model, in, 0),
	}
}
