// Package store provides persistence for threads, messages, plugin
// configuration, usage metrics, and scheduled tasks.
package store

import (
	"context"
	"encoding/json"

	"chathub/internal/domain"
)

// Store is the persistence interface used by the hub.
type Store interface {
	Close() error

	// Threads
	CreateThread(ctx context.Context, thread *domain.Thread) error
	GetThread(ctx context.Context, threadID string) (*domain.Thread, error)
	GetThreadBySource(ctx context.Context, source, sourceID string) (*domain.Thread, error)
	ListThreads(ctx context.Context, limit int) ([]domain.Thread, error)
	ListChildThreads(ctx context.Context, parentThreadID string) ([]domain.Thread, error)
	TouchThread(ctx context.Context, threadID string) error
	UpdateThreadStatus(ctx context.Context, threadID string, status domain.ThreadStatus) error
	UpdateThreadName(ctx context.Context, threadID, name string) error

	// Messages
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error)

	// Plugin configs
	CreatePluginConfig(ctx context.Context, cfg *domain.PluginConfig) error
	GetPluginConfig(ctx context.Context, pluginName string) (*domain.PluginConfig, error)
	ListPluginConfigs(ctx context.Context) ([]domain.PluginConfig, error)
	ListDisabledPluginNames(ctx context.Context) ([]string, error)
	DeletePluginConfig(ctx context.Context, pluginName string) error
	SetPluginEnabled(ctx context.Context, pluginName string, enabled bool) error
	UpdatePluginSettings(ctx context.Context, pluginName string, settings json.RawMessage) error

	// Usage metrics
	CreateUsageMetric(ctx context.Context, metric *domain.UsageMetric) error
	UsageSummary(ctx context.Context) ([]domain.UsageSummary, error)

	// Scheduled tasks
	CreateScheduledTask(ctx context.Context, task *domain.ScheduledTask) error
	ListScheduledTasks(ctx context.Context) ([]domain.ScheduledTask, error)
	DeleteScheduledTask(ctx context.Context, taskID string) error
}
