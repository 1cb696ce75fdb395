package domain

// ThreadKind classifies how a thread came to exist.
type ThreadKind string

const (
	ThreadKindPrimary ThreadKind = "primary"
	ThreadKindTask    ThreadKind = "task"
	ThreadKindCron    ThreadKind = "cron"
	ThreadKindGeneral ThreadKind = "general"
)

// Valid reports whether k is a known thread kind.
func (k ThreadKind) Valid() bool {
	switch k {
	case ThreadKindPrimary, ThreadKindTask, ThreadKindCron, ThreadKindGeneral:
		return true
	}
	return false
}

// ThreadStatus is the lifecycle state of a thread.
type ThreadStatus string

const (
	ThreadStatusActive ThreadStatus = "active"
	ThreadStatusClosed ThreadStatus = "closed"
)

// MessageRole identifies the author of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)
