package cliagent

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chathub/internal/config"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestFactoryRequiresBinary(t *testing.T) {
	factory := NewFactory(&config.Config{}, testLogger())
	_, err := factory(context.Background(), "thr_1", "claude-sonnet-4")
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	factory := NewFactory(&config.Config{CLIBin: "claude", CLITimeout: time.Second}, testLogger())
	h, err := factory(context.Background(), "thr_1", "claude-sonnet-4")
	require.NoError(t, err)

	assert.True(t, h.Alive())
	h.Close()
	assert.False(t, h.Alive())

	_, err = h.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSessionRetiredAfterConsecutiveFailures(t *testing.T) {
	s := &Session{
		threadID: "thr_1",
		bin:      "/nonexistent/cli",
		timeout:  time.Second,
		log:      testLogger(),
	}

	for i := 0; i < maxConsecutiveFailures; i++ {
		assert.True(t, s.Alive())
		_, err := s.Send(context.Background(), "hello")
		assert.Error(t, err)
	}
	assert.False(t, s.Alive())
}
