// Package domain defines the core data types shared across the hub.
package domain

import (
	"encoding/json"
	"time"
)

// Thread is a single conversation, keyed externally by (source, source_id).
type Thread struct {
	ThreadID       string       `json:"thread_id"`
	Source         string       `json:"source"`
	SourceID       string       `json:"source_id"`
	Kind           ThreadKind   `json:"kind"`
	Status         ThreadStatus `json:"status"`
	Name           string       `json:"name,omitempty"`
	ParentThreadID string       `json:"parent_thread_id,omitempty"`
	LastActivity   time.Time    `json:"last_activity"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Message is one turn of a thread's conversation.
type Message struct {
	MessageID string          `json:"message_id"`
	ThreadID  string          `json:"thread_id"`
	Role      MessageRole     `json:"role"`
	Content   string          `json:"content"`
	Model     string          `json:"model,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// PluginConfig is the persisted enable/disable state and settings of a plugin.
type PluginConfig struct {
	PluginName string          `json:"plugin_name"`
	Enabled    bool            `json:"enabled"`
	Settings   json.RawMessage `json:"settings,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// UsageMetric records token usage and cost for one model invocation.
type UsageMetric struct {
	ID           int64     `json:"id"`
	ThreadID     string    `json:"thread_id"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsageSummary is a per-model rollup of usage metrics.
type UsageSummary struct {
	Model        string  `json:"model"`
	Calls        int     `json:"calls"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// ScheduledTask is a cron-driven prompt delivered to its own thread.
type ScheduledTask struct {
	TaskID    string    `json:"task_id"`
	Name      string    `json:"name"`
	CronExpr  string    `json:"cron_expr"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
