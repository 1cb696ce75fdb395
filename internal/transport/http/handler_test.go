package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chathub/internal/config"
	"chathub/internal/domain"
	"chathub/internal/plugin"
	"chathub/internal/policy"
	"chathub/internal/scheduler"
	"chathub/internal/service"
	"chathub/internal/session"
	"chathub/internal/store"
	"chathub/internal/thread"
	"chathub/internal/usage"
)

type fakeHandle struct{}

func (f *fakeHandle) Send(ctx context.Context, prompt string) (*usage.Result, error) {
	return &usage.Result{Text: "reply", Model: "claude-sonnet-4", InputTokens: 1, OutputTokens: 1}, nil
}
func (f *fakeHandle) Close()      {}
func (f *fakeHandle) Alive() bool { return true }

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(threadID string, payload interface{}) {}
func (nopBroadcaster) BroadcastAll(payload interface{})              {}

type testEnv struct {
	handler *Handler
	store   store.Store
	svc     *service.Service
	echo    *echo.Echo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{DefaultModel: "claude-sonnet-4", CLITimeout: 5 * time.Second, MaxSessions: 4}
	router := thread.NewRouter(st, log)
	pool := session.NewPool(session.Config{MaxSessions: cfg.MaxSessions}, func(ctx context.Context, threadID, model string) (session.Handle, error) {
		return &fakeHandle{}, nil
	}, log)

	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)

	registry := plugin.NewRegistry(plugin.Builtins(), log)
	require.NoError(t, registry.Init(ctx, st, &plugin.Context{Store: st, Config: cfg, Logger: log, Broadcaster: nopBroadcaster{}}))

	svc := service.New(st, router, pool, registry, engine, nopBroadcaster{}, cfg, log)
	sched := scheduler.New(st, svc, log)

	h := NewHandler(svc, st, registry, sched, nil, log)
	e := echo.New()
	h.RegisterRoutes(e)
	return &testEnv{handler: h, store: st, svc: svc, echo: e}
}

func (env *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestSendMessageAccepted(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/messages", `{"source":"web","source_id":"user-1","content":"hello"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp domain.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ThreadID)
	assert.NotEmpty(t, resp.MessageID)

	// The user turn is persisted synchronously.
	messages, err := env.store.GetMessages(context.Background(), resp.ThreadID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, messages)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/messages", `{"source":"web"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThreadEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.svc.SendToThread(ctx, domain.SendMessageRequest{Source: "web", SourceID: "user-1", Content: "hi"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/threads", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/threads/"+resp.ThreadID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var th domain.Thread
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &th))
	assert.Equal(t, "web", th.Source)

	rec = env.do(t, http.MethodGet, "/api/threads/thr_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/threads/"+resp.ThreadID+"/children", `{"name":"research"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/threads/"+resp.ThreadID+"/children", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var children struct {
		Threads []domain.Thread `json:"threads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &children))
	assert.Len(t, children.Threads, 1)

	rec = env.do(t, http.MethodPost, "/api/threads/"+resp.ThreadID+"/close", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	got, err := env.store.GetThread(ctx, resp.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, domain.ThreadStatusClosed, got.Status)
}

func TestPluginEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/plugins", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Plugins []pluginInfo `json:"plugins"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing.Plugins, len(plugin.Builtins()))

	rec = env.do(t, http.MethodPost, "/api/plugins/usage-metrics/disable", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	disabled, err := env.store.ListDisabledPluginNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"usage-metrics"}, disabled)

	rec = env.do(t, http.MethodPost, "/api/plugins/usage-metrics/enable", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/plugins/usage-metrics/settings", `{"settings":{"flush":true}}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/plugins/ghost/enable", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.CreateUsageMetric(ctx, &domain.UsageMetric{
		ThreadID: "thr_1", Model: "claude-sonnet-4", InputTokens: 10, OutputTokens: 5, CostUSD: 0.01, CreatedAt: time.Now(),
	}))

	rec := env.do(t, http.MethodGet, "/api/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Metrics []domain.UsageSummary `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Metrics, 1)
	assert.Equal(t, 1, body.Metrics[0].Calls)
}

func TestTaskEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/tasks", `{"name":"report","cron_expr":"0 9 * * *","prompt":"summarize"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var task domain.ScheduledTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.NotEmpty(t, task.TaskID)

	// Bad cron expressions are rejected before persisting.
	rec = env.do(t, http.MethodPost, "/api/tasks", `{"name":"bad","cron_expr":"nope","prompt":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Tasks []domain.ScheduledTask `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing.Tasks, 1)

	rec = env.do(t, http.MethodDelete, "/api/tasks/"+task.TaskID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/tasks", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Empty(t, listing.Tasks)
}
