package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"chathub/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			source_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			name TEXT,
			parent_thread_id TEXT,
			last_activity DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_threads_source ON threads(source, source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_parent ON threads(parent_thread_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			model TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			metadata TEXT,
			FOREIGN KEY (thread_id) REFERENCES threads(thread_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS plugin_configs (
			plugin_name TEXT PRIMARY KEY,
			enabled INTEGER NOT NULL DEFAULT 1,
			settings TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS usage_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			model TEXT NOT NULL,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			cost_usd REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_model ON usage_metrics(model, created_at)`,
		`CREATE TABLE IF NOT EXISTS scheduled_tasks (
			task_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			cron_expr TEXT NOT NULL,
			prompt TEXT NOT NULL,
			model TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateThread creates a new thread.
func (s *SQLiteStore) CreateThread(ctx context.Context, thread *domain.Thread) error {
	var name, parent sql.NullString
	if thread.Name != "" {
		name = sql.NullString{String: thread.Name, Valid: true}
	}
	if thread.ParentThreadID != "" {
		parent = sql.NullString{String: thread.ParentThreadID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (thread_id, source, source_id, kind, status, name, parent_thread_id, last_activity, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		thread.ThreadID, thread.Source, thread.SourceID, thread.Kind, thread.Status, name, parent, thread.LastActivity, thread.CreatedAt)
	return err
}

// GetThread retrieves a thread by ID.
func (s *SQLiteStore) GetThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	return s.scanThread(s.db.QueryRowContext(ctx,
		`SELECT thread_id, source, source_id, kind, status, name, parent_thread_id, last_activity, created_at FROM threads WHERE thread_id = ?`,
		threadID))
}

// GetThreadBySource retrieves a thread by its (source, source_id) key.
func (s *SQLiteStore) GetThreadBySource(ctx context.Context, source, sourceID string) (*domain.Thread, error) {
	return s.scanThread(s.db.QueryRowContext(ctx,
		`SELECT thread_id, source, source_id, kind, status, name, parent_thread_id, last_activity, created_at FROM threads WHERE source = ? AND source_id = ?`,
		source, sourceID))
}

func (s *SQLiteStore) scanThread(row *sql.Row) (*domain.Thread, error) {
	var thread domain.Thread
	var name, parent sql.NullString
	err := row.Scan(&thread.ThreadID, &thread.Source, &thread.SourceID, &thread.Kind, &thread.Status, &name, &parent, &thread.LastActivity, &thread.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if name.Valid {
		thread.Name = name.String
	}
	if parent.Valid {
		thread.ParentThreadID = parent.String
	}
	return &thread, nil
}

// ListThreads retrieves threads ordered by most recent activity.
func (s *SQLiteStore) ListThreads(ctx context.Context, limit int) ([]domain.Thread, error) {
	query := `SELECT thread_id, source, source_id, kind, status, name, parent_thread_id, last_activity, created_at FROM threads ORDER BY last_activity DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.queryThreads(ctx, query)
}

// ListChildThreads retrieves sub-threads of a parent, newest first.
func (s *SQLiteStore) ListChildThreads(ctx context.Context, parentThreadID string) ([]domain.Thread, error) {
	return s.queryThreads(ctx,
		`SELECT thread_id, source, source_id, kind, status, name, parent_thread_id, last_activity, created_at FROM threads WHERE parent_thread_id = ? ORDER BY created_at DESC`,
		parentThreadID)
}

func (s *SQLiteStore) queryThreads(ctx context.Context, query string, args ...interface{}) ([]domain.Thread, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []domain.Thread
	for rows.Next() {
		var thread domain.Thread
		var name, parent sql.NullString
		if err := rows.Scan(&thread.ThreadID, &thread.Source, &thread.SourceID, &thread.Kind, &thread.Status, &name, &parent, &thread.LastActivity, &thread.CreatedAt); err != nil {
			return nil, err
		}
		if name.Valid {
			thread.Name = name.String
		}
		if parent.Valid {
			thread.ParentThreadID = parent.String
		}
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

// TouchThread updates a thread's last activity timestamp.
func (s *SQLiteStore) TouchThread(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE threads SET last_activity = ? WHERE thread_id = ?`,
		time.Now(), threadID)
	return err
}

// UpdateThreadStatus updates the status of a thread.
func (s *SQLiteStore) UpdateThreadStatus(ctx context.Context, threadID string, status domain.ThreadStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE threads SET status = ? WHERE thread_id = ?`,
		status, threadID)
	return err
}

// UpdateThreadName sets a thread's display name.
func (s *SQLiteStore) UpdateThreadName(ctx context.Context, threadID, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE threads SET name = ? WHERE thread_id = ?`,
		name, threadID)
	return err
}

// CreateMessage creates a new message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	var model, metadata sql.NullString
	if message.Model != "" {
		model = sql.NullString{String: message.Model, Valid: true}
	}
	if message.Metadata != nil {
		metadata = sql.NullString{String: string(message.Metadata), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, thread_id, role, content, model, created_at, metadata) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		message.MessageID, message.ThreadID, message.Role, message.Content, model, message.CreatedAt, metadata)
	return err
}

// GetMessages retrieves messages for a thread in chronological order.
func (s *SQLiteStore) GetMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, thread_id, role, content, model, created_at, metadata FROM messages WHERE thread_id = ? ORDER BY created_at ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var model, metadata sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.ThreadID, &msg.Role, &msg.Content, &model, &msg.CreatedAt, &metadata); err != nil {
			return nil, err
		}
		if model.Valid {
			msg.Model = model.String
		}
		if metadata.Valid {
			msg.Metadata = json.RawMessage(metadata.String)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreatePluginConfig creates a plugin config row.
func (s *SQLiteStore) CreatePluginConfig(ctx context.Context, cfg *domain.PluginConfig) error {
	var settings sql.NullString
	if cfg.Settings != nil {
		settings = sql.NullString{String: string(cfg.Settings), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plugin_configs (plugin_name, enabled, settings, created_at) VALUES (?, ?, ?, ?)`,
		cfg.PluginName, cfg.Enabled, settings, cfg.CreatedAt)
	return err
}

// GetPluginConfig retrieves a plugin config by name.
func (s *SQLiteStore) GetPluginConfig(ctx context.Context, pluginName string) (*domain.PluginConfig, error) {
	var cfg domain.PluginConfig
	var settings sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT plugin_name, enabled, settings, created_at FROM plugin_configs WHERE plugin_name = ?`,
		pluginName).Scan(&cfg.PluginName, &cfg.Enabled, &settings, &cfg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if settings.Valid {
		cfg.Settings = json.RawMessage(settings.String)
	}
	return &cfg, nil
}

// ListPluginConfigs retrieves all plugin config rows.
func (s *SQLiteStore) ListPluginConfigs(ctx context.Context) ([]domain.PluginConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT plugin_name, enabled, settings, created_at FROM plugin_configs ORDER BY plugin_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []domain.PluginConfig
	for rows.Next() {
		var cfg domain.PluginConfig
		var settings sql.NullString
		if err := rows.Scan(&cfg.PluginName, &cfg.Enabled, &settings, &cfg.CreatedAt); err != nil {
			return nil, err
		}
		if settings.Valid {
			cfg.Settings = json.RawMessage(settings.String)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// ListDisabledPluginNames retrieves the names of all disabled plugins.
func (s *SQLiteStore) ListDisabledPluginNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT plugin_name FROM plugin_configs WHERE enabled = 0 ORDER BY plugin_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeletePluginConfig deletes a plugin config row.
func (s *SQLiteStore) DeletePluginConfig(ctx context.Context, pluginName string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM plugin_configs WHERE plugin_name = ?`, pluginName)
	return err
}

// SetPluginEnabled flips the enabled flag of a plugin config.
func (s *SQLiteStore) SetPluginEnabled(ctx context.Context, pluginName string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE plugin_configs SET enabled = ? WHERE plugin_name = ?`,
		enabled, pluginName)
	return err
}

// UpdatePluginSettings replaces the settings blob of a plugin config.
func (s *SQLiteStore) UpdatePluginSettings(ctx context.Context, pluginName string, settings json.RawMessage) error {
	var val sql.NullString
	if settings != nil {
		val = sql.NullString{String: string(settings), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE plugin_configs SET settings = ? WHERE plugin_name = ?`,
		val, pluginName)
	return err
}

// CreateUsageMetric records a usage metric row.
func (s *SQLiteStore) CreateUsageMetric(ctx context.Context, metric *domain.UsageMetric) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_metrics (thread_id, model, input_tokens, output_tokens, cost_usd, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		metric.ThreadID, metric.Model, metric.InputTokens, metric.OutputTokens, metric.CostUSD, metric.CreatedAt)
	return err
}

// UsageSummary returns per-model usage rollups.
func (s *SQLiteStore) UsageSummary(ctx context.Context) ([]domain.UsageSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, COUNT(*), SUM(input_tokens), SUM(output_tokens), SUM(cost_usd) FROM usage_metrics GROUP BY model ORDER BY model ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.UsageSummary
	for rows.Next() {
		var sum domain.UsageSummary
		if err := rows.Scan(&sum.Model, &sum.Calls, &sum.InputTokens, &sum.OutputTokens, &sum.CostUSD); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// CreateScheduledTask creates a scheduled task row.
func (s *SQLiteStore) CreateScheduledTask(ctx context.Context, task *domain.ScheduledTask) error {
	var model sql.NullString
	if task.Model != "" {
		model = sql.NullString{String: task.Model, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_tasks (task_id, name, cron_expr, prompt, model, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		task.TaskID, task.Name, task.CronExpr, task.Prompt, model, task.CreatedAt)
	return err
}

// ListScheduledTasks retrieves all scheduled tasks.
func (s *SQLiteStore) ListScheduledTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, name, cron_expr, prompt, model, created_at FROM scheduled_tasks ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		var task domain.ScheduledTask
		var model sql.NullString
		if err := rows.Scan(&task.TaskID, &task.Name, &task.CronExpr, &task.Prompt, &model, &task.CreatedAt); err != nil {
			return nil, err
		}
		if model.Valid {
			task.Model = model.String
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// DeleteScheduledTask deletes a scheduled task row.
func (s *SQLiteStore) DeleteScheduledTask(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM scheduled_tasks WHERE task_id = ?`, taskID)
	return err
}
