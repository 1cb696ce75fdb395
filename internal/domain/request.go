package domain

// SendMessageRequest is the inbound message payload from any transport.
type SendMessageRequest struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
	Content  string `json:"content"`
	Model    string `json:"model,omitempty"`
}

// SendMessageResponse acknowledges an accepted message.
type SendMessageResponse struct {
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
}

// CreateTaskRequest creates a scheduled task.
type CreateTaskRequest struct {
	Name     string `json:"name"`
	CronExpr string `json:"cron_expr"`
	Prompt   string `json:"prompt"`
	Model    string `json:"model,omitempty"`
}

// UpdatePluginSettingsRequest replaces a plugin's settings blob.
type UpdatePluginSettingsRequest struct {
	Settings map[string]interface{} `json:"settings"`
}
