// Package plugin defines the hub's plugin model: a registry of definitions,
// a hook dispatch engine, and config synchronization against the store.
package plugin

import (
	"context"

	"github.com/sirupsen/logrus"

	"chathub/internal/config"
	"chathub/internal/domain"
	"chathub/internal/store"
	"chathub/internal/usage"
)

// Hooks is the capability set a plugin may implement. Nil fields are skipped
// by the dispatcher.
type Hooks struct {
	PipelineStart    func(ctx context.Context, threadID string) error
	BeforeInvoke     func(ctx context.Context, threadID, prompt string) (string, error)
	AfterInvoke      func(ctx context.Context, threadID string, res *usage.Result) error
	PipelineComplete func(ctx context.Context, threadID string, res *usage.Result) error
	OnBroadcast      func(ctx context.Context, event string, payload interface{}) error
}

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(threadID string, payload interface{})
	BroadcastAll(payload interface{})
}

// Sender dispatches a new message into the hub, as if it arrived from a
// transport.
type Sender interface {
	SendToThread(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error)
}

// Context is handed to each plugin at registration. Plugins hold onto it
// instead of reaching for package-level state.
type Context struct {
	Store       store.Store
	Config      *config.Config
	Logger      logrus.FieldLogger
	Broadcaster Broadcaster
	Sender      Sender
}

// Definition describes a plugin before registration.
type Definition struct {
	Name    string
	Version string

	// Register wires the plugin and returns its hooks.
	Register func(pc *Context) (Hooks, error)

	// Optional lifecycle callbacks.
	Start func(ctx context.Context) error
	Stop  func() error
}

// Active is a registered plugin.
type Active struct {
	Definition
	Hooks Hooks
}
