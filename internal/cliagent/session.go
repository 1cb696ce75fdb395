// Package cliagent runs model invocations through an external CLI binary.
// Warmness is carried by the CLI's own session ID, replayed via --resume.
package cliagent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chathub/internal/config"
	"chathub/internal/session"
	"chathub/internal/usage"
)

// ErrClosed is returned when sending on a closed session.
var ErrClosed = errors.New("session closed")

// A session is retired after this many consecutive failed invocations.
const maxConsecutiveFailures = 3

// Session is one thread's CLI conversation.
type Session struct {
	threadID string
	model    string
	bin      string
	workDir  string
	timeout  time.Duration
	log      logrus.FieldLogger

	mu           sync.Mutex
	cliSessionID string
	closed       bool
	failures     int
}

// NewFactory returns a session.Factory backed by the configured CLI binary.
func NewFactory(cfg *config.Config, log logrus.FieldLogger) session.Factory {
	return func(ctx context.Context, threadID, model string) (session.Handle, error) {
		if cfg.CLIBin == "" {
			return nil, fmt.Errorf("cli binary not configured")
		}
		return &Session{
			threadID: threadID,
			model:    model,
			bin:      cfg.CLIBin,
			workDir:  cfg.CLIWorkDir,
			timeout:  cfg.CLITimeout,
			log:      log.WithField("thread_id", threadID),
		}, nil
	}
}

// Send runs one invocation, feeding the prompt on stdin. The CLI's reported
// session ID is kept so the next Send resumes the same conversation.
func (s *Session) Send(ctx context.Context, prompt string) (*usage.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	args := []string{"--print", "--output-format", "json"}
	if s.model != "" {
		args = append(args, "--model", s.model)
	}
	if s.cliSessionID != "" {
		args = append(args, "--resume", s.cliSessionID)
	}
	s.mu.Unlock()

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, s.bin, args...)
	cmd.Dir = s.workDir
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		s.mu.Lock()
		s.failures++
		s.mu.Unlock()
		s.log.Warnf("CLI invocation failed after %s: %v", elapsed.Round(time.Millisecond), err)
		return nil, fmt.Errorf("cli invocation failed: %w: %s", err, truncate(stderr.String(), 500))
	}

	res := usage.ParseCLIOutput(stdout.Bytes())
	res.Model = s.model
	res.DurationMs = elapsed.Milliseconds()
	if res.InputTokens == 0 {
		res.InputTokens = usage.EstimateTokens(prompt)
	}
	if res.OutputTokens == 0 {
		res.OutputTokens = usage.EstimateTokens(res.Text)
	}
	if res.CostUSD == 0 {
		res.CostUSD = usage.Cost(s.model, res.InputTokens, res.OutputTokens)
	}

	s.mu.Lock()
	s.failures = 0
	if res.CLISessionID != "" {
		s.cliSessionID = res.CLISessionID
	}
	s.mu.Unlock()

	if res.IsError {
		return res, fmt.Errorf("cli reported error: %s", truncate(res.Text, 500))
	}
	return res, nil
}

// Close marks the session dead. There is no resident process to kill; each
// Send runs its own.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Alive reports whether the session is usable.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.failures < maxConsecutiveFailures
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
