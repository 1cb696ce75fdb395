package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chathub/internal/store"
)

func defs(names ...string) []Definition {
	out := make([]Definition, 0, len(names))
	for _, name := range names {
		out = append(out, Definition{
			Name:     name,
			Version:  "1.0.0",
			Register: func(pc *Context) (Hooks, error) { return Hooks{}, nil },
		})
	}
	return out
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestFilterDisabledNothingDisabledReturnsSameSlice(t *testing.T) {
	log, recorded := test.NewNullLogger()
	plugins := defs("a", "b")

	got := FilterDisabled(plugins, nil, log)

	// Same backing slice, not a copy.
	assert.Same(t, &plugins[0], &got[0])
	assert.Len(t, got, 2)
	assert.Empty(t, recorded.AllEntries())
}

func TestFilterDisabledRemovesNamed(t *testing.T) {
	log, recorded := test.NewNullLogger()
	plugins := defs("a", "b", "c")

	got := FilterDisabled(plugins, []string{"b"}, log)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "c", got[1].Name)

	entries := recorded.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, "Plugin disabled by config: b", entries[0].Message)
}

func TestFilterDisabledUnknownNameWarnsAndIgnores(t *testing.T) {
	log, recorded := test.NewNullLogger()
	plugins := defs("a")

	got := FilterDisabled(plugins, []string{"ghost"}, log)

	assert.Len(t, got, 1)
	entries := recorded.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, `Disabled plugin "ghost" not found in registry — ignoring`, entries[0].Message)
}

func TestSyncConfigsCreatesMissingEnabled(t *testing.T) {
	log, recorded := test.NewNullLogger()
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, SyncConfigs(ctx, defs("a", "b"), st, log))

	rows, err := st.ListPluginConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.True(t, row.Enabled)
	}

	messages := make([]string, 0, len(recorded.AllEntries()))
	for _, e := range recorded.AllEntries() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Added plugin config for new plugin: a")
	assert.Contains(t, messages, "Added plugin config for new plugin: b")
}

func TestSyncConfigsDeletesStaleAndKeepsSurvivors(t *testing.T) {
	log, recorded := test.NewNullLogger()
	ctx := context.Background()
	st := newTestStore(t)

	// Seed a row for a plugin that still exists and one that does not, then
	// flip the survivor's state so we can tell it was left alone.
	require.NoError(t, SyncConfigs(ctx, defs("keeper", "stale"), st, log))
	require.NoError(t, st.SetPluginEnabled(ctx, "keeper", false))
	recorded.Reset()

	require.NoError(t, SyncConfigs(ctx, defs("keeper", "fresh"), st, log))

	rows, err := st.ListPluginConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byName := map[string]bool{}
	for _, row := range rows {
		byName[row.PluginName] = row.Enabled
	}
	enabled, ok := byName["keeper"]
	assert.True(t, ok)
	assert.False(t, enabled, "surviving row must not be touched")
	assert.True(t, byName["fresh"])
	_, stale := byName["stale"]
	assert.False(t, stale)

	messages := make([]string, 0, len(recorded.AllEntries()))
	for _, e := range recorded.AllEntries() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Added plugin config for new plugin: fresh")
	assert.Contains(t, messages, "Removed stale plugin config: stale")
}

func TestRegistryInitSkipsFailedRegister(t *testing.T) {
	log, _ := test.NewNullLogger()
	ctx := context.Background()
	st := newTestStore(t)

	plugins := []Definition{
		{
			Name:     "bad",
			Register: func(pc *Context) (Hooks, error) { return Hooks{}, errors.New("no config") },
		},
		{
			Name:     "good",
			Register: func(pc *Context) (Hooks, error) { return Hooks{}, nil },
		},
	}

	r := NewRegistry(plugins, log)
	require.NoError(t, r.Init(ctx, st, &Context{Store: st, Logger: log}))

	active := r.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "good", active[0].Name)
}

func TestRegistryInitHonorsDisabledConfig(t *testing.T) {
	log, _ := test.NewNullLogger()
	ctx := context.Background()
	st := newTestStore(t)

	plugins := defs("on", "off")
	r := NewRegistry(plugins, log)

	// First init creates both rows; disable one and re-init.
	require.NoError(t, r.Init(ctx, st, &Context{Store: st, Logger: log}))
	require.NoError(t, st.SetPluginEnabled(ctx, "off", false))

	r2 := NewRegistry(plugins, log)
	require.NoError(t, r2.Init(ctx, st, &Context{Store: st, Logger: log}))

	active := r2.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "on", active[0].Name)
}
