package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func activePlugin(name string, hooks Hooks) Active {
	return Active{Definition: Definition{Name: name}, Hooks: hooks}
}

func TestRunHookInvokesAllPlugins(t *testing.T) {
	log, _ := test.NewNullLogger()
	ctx := context.Background()

	var order []string
	plugins := []Active{
		activePlugin("a", Hooks{PipelineStart: func(ctx context.Context, threadID string) error {
			order = append(order, "a")
			return nil
		}}),
		activePlugin("b", Hooks{}),
		activePlugin("c", Hooks{PipelineStart: func(ctx context.Context, threadID string) error {
			order = append(order, "c")
			return nil
		}}),
	}

	RunHook(plugins, "pipeline_start", func(h Hooks) error {
		if h.PipelineStart == nil {
			return nil
		}
		return h.PipelineStart(ctx, "thr_1")
	}, log)

	assert.Equal(t, []string{"a", "c"}, order)
}

func TestRunHookIsolatesErrors(t *testing.T) {
	log, recorded := test.NewNullLogger()
	ctx := context.Background()

	var ran []string
	plugins := []Active{
		activePlugin("boom", Hooks{PipelineStart: func(ctx context.Context, threadID string) error {
			ran = append(ran, "boom")
			return errors.New("kaput")
		}}),
		activePlugin("fine", Hooks{PipelineStart: func(ctx context.Context, threadID string) error {
			ran = append(ran, "fine")
			return nil
		}}),
	}

	RunHook(plugins, "pipeline_start", func(h Hooks) error {
		return h.PipelineStart(ctx, "thr_1")
	}, log)

	assert.Equal(t, []string{"boom", "fine"}, ran)

	entries := recorded.AllEntries()
	assert.Len(t, entries, 1)
	assert.Equal(t, logrus.ErrorLevel, entries[0].Level)
	assert.Equal(t, `Hook "pipeline_start" threw: kaput`, entries[0].Message)
	assert.Equal(t, "boom", entries[0].Data["plugin"])
}

func TestRunHookIsolatesPanics(t *testing.T) {
	log, recorded := test.NewNullLogger()
	ctx := context.Background()

	var ran []string
	plugins := []Active{
		activePlugin("panics", Hooks{PipelineStart: func(ctx context.Context, threadID string) error {
			panic("oh no")
		}}),
		activePlugin("fine", Hooks{PipelineStart: func(ctx context.Context, threadID string) error {
			ran = append(ran, "fine")
			return nil
		}}),
	}

	RunHook(plugins, "pipeline_start", func(h Hooks) error {
		return h.PipelineStart(ctx, "thr_1")
	}, log)

	assert.Equal(t, []string{"fine"}, ran)
	entries := recorded.AllEntries()
	assert.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, `Hook "pipeline_start" threw: panic: oh no`)
}

func chainFn(ctx context.Context) func(h Hooks, value string) (string, error) {
	return func(h Hooks, value string) (string, error) {
		if h.BeforeInvoke == nil {
			return value, nil
		}
		return h.BeforeInvoke(ctx, "thr_1", value)
	}
}

func TestRunChainHookThreadsValue(t *testing.T) {
	log, _ := test.NewNullLogger()
	ctx := context.Background()

	plugins := []Active{
		activePlugin("a", Hooks{BeforeInvoke: func(ctx context.Context, threadID, prompt string) (string, error) {
			return prompt + "+a", nil
		}}),
		activePlugin("skip", Hooks{}),
		activePlugin("b", Hooks{BeforeInvoke: func(ctx context.Context, threadID, prompt string) (string, error) {
			return prompt + "+b", nil
		}}),
	}

	got := RunChainHook(plugins, "before_invoke", "start", chainFn(ctx), log)
	assert.Equal(t, "start+a+b", got)
}

func TestRunChainHookErrorLeavesValueUntouched(t *testing.T) {
	log, recorded := test.NewNullLogger()
	ctx := context.Background()

	plugins := []Active{
		activePlugin("a", Hooks{BeforeInvoke: func(ctx context.Context, threadID, prompt string) (string, error) {
			return prompt + "+a", nil
		}}),
		activePlugin("boom", Hooks{BeforeInvoke: func(ctx context.Context, threadID, prompt string) (string, error) {
			return "", errors.New("kaput")
		}}),
		activePlugin("c", Hooks{BeforeInvoke: func(ctx context.Context, threadID, prompt string) (string, error) {
			return prompt + "+c", nil
		}}),
	}

	got := RunChainHook(plugins, "before_invoke", "start", chainFn(ctx), log)
	assert.Equal(t, "start+a+c", got)
	assert.Len(t, recorded.AllEntries(), 1)
}

func TestRunChainHookPanicLeavesValueUntouched(t *testing.T) {
	log, recorded := test.NewNullLogger()
	ctx := context.Background()

	plugins := []Active{
		activePlugin("a", Hooks{BeforeInvoke: func(ctx context.Context, threadID, prompt string) (string, error) {
			return prompt + "+a", nil
		}}),
		activePlugin("panics", Hooks{BeforeInvoke: func(ctx context.Context, threadID, prompt string) (string, error) {
			panic("oh no")
		}}),
	}

	got := RunChainHook(plugins, "before_invoke", "start", chainFn(ctx), log)
	assert.Equal(t, "start+a", got)
	assert.Len(t, recorded.AllEntries(), 1)
}

func TestRunHookNoPlugins(t *testing.T) {
	log, recorded := test.NewNullLogger()

	RunHook(nil, "pipeline_start", func(h Hooks) error { return nil }, log)
	got := RunChainHook(nil, "before_invoke", "unchanged", func(h Hooks, v string) (string, error) { return v, nil }, log)

	assert.Equal(t, "unchanged", got)
	assert.Empty(t, recorded.AllEntries())
}
