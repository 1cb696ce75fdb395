package plugin

import (
	"context"
	"strings"
	"time"

	"chathub/internal/domain"
	"chathub/internal/usage"
)

// Builtins returns the plugins shipped with the hub.
func Builtins() []Definition {
	return []Definition{
		usageMetricsPlugin(),
		webEventsPlugin(),
		threadTitlePlugin(),
	}
}

// usageMetricsPlugin persists a usage metric row after every invocation.
func usageMetricsPlugin() Definition {
	return Definition{
		Name:    "usage-metrics",
		Version: "1.0.0",
		Register: func(pc *Context) (Hooks, error) {
			return Hooks{
				AfterInvoke: func(ctx context.Context, threadID string, res *usage.Result) error {
					return pc.Store.CreateUsageMetric(ctx, &domain.UsageMetric{
						ThreadID:     threadID,
						Model:        res.Model,
						InputTokens:  res.InputTokens,
						OutputTokens: res.OutputTokens,
						CostUSD:      res.CostUSD,
						CreatedAt:    time.Now(),
					})
				},
			}, nil
		},
	}
}

// webEventsPlugin forwards pipeline completions and broadcast events to
// connected websocket clients.
func webEventsPlugin() Definition {
	return Definition{
		Name:    "web-events",
		Version: "1.0.0",
		Register: func(pc *Context) (Hooks, error) {
			return Hooks{
				PipelineComplete: func(ctx context.Context, threadID string, res *usage.Result) error {
					pc.Broadcaster.Broadcast(threadID, map[string]interface{}{
						"type":      "pipeline_complete",
						"thread_id": threadID,
						"text":      res.Text,
						"model":     res.Model,
					})
					return nil
				},
				OnBroadcast: func(ctx context.Context, event string, payload interface{}) error {
					pc.Broadcaster.BroadcastAll(map[string]interface{}{
						"type":    event,
						"payload": payload,
					})
					return nil
				},
			}, nil
		},
	}
}

const maxTitleLen = 60

// threadTitlePlugin names untitled threads after their first prompt.
func threadTitlePlugin() Definition {
	return Definition{
		Name:    "thread-title",
		Version: "1.0.0",
		Register: func(pc *Context) (Hooks, error) {
			return Hooks{
				BeforeInvoke: func(ctx context.Context, threadID, prompt string) (string, error) {
					thread, err := pc.Store.GetThread(ctx, threadID)
					if err != nil || thread == nil || thread.Name != "" {
						return prompt, err
					}
					title := strings.TrimSpace(prompt)
					if idx := strings.IndexByte(title, '\n'); idx > 0 {
						title = title[:idx]
					}
					if len(title) > maxTitleLen {
						title = title[:maxTitleLen]
					}
					if title == "" {
						return prompt, nil
					}
					return prompt, pc.Store.UpdateThreadName(ctx, threadID, title)
				},
			}, nil
		},
	}
}
