package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/veesix-networks/dhclient/pkg/logger"
)

const scriptPath = "PATH=/usr/bin:/usr/sbin:/bin:/sbin"

// CommandExecutor runs a program with the given environment and returns its
// exit status. err is set only when the program could not be run.
type CommandExecutor interface {
	Execute(ctx context.Context, path string, env []string) (status int, output []byte, err error)
}

type execExecutor struct{}

func (execExecutor) Execute(ctx context.Context, path string, env []string) (int, []byte, error) {
	cmd := exec.CommandContext(ctx, path)
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err == nil {
		return 0, out, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), out, nil
	}
	return 0, out, err
}

// Script runs an external program, dhclient-script style. One script runs
// at a time and the caller blocks until it exits.
type Script struct {
	path     string
	timeout  time.Duration
	executor CommandExecutor
	logger   *slog.Logger
}

func NewScript(path string) *Script {
	return &Script{
		path:     path,
		timeout:  time.Minute,
		executor: execExecutor{},
		logger:   logger.Get(logger.Hook),
	}
}

func (s *Script) WithExecutor(e CommandExecutor) *Script {
	s.executor = e
	return s
}

func (s *Script) Path() string {
	return s.path
}

// Run executes the script. A script that cannot be started is logged and
// counts as success.
func (s *Script) Run(ctx context.Context, env *Env) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	environ := append(env.Environ(), scriptPath)
	status, out, err := s.executor.Execute(ctx, s.path, environ)
	if err != nil {
		s.logger.Error("Failed to run script", "path", s.path, "reason", env.Reason(), "error", err)
		return 0
	}

	if len(out) > 0 {
		s.logger.Debug("Script output", "reason", env.Reason(), "output", strings.TrimSpace(string(out)))
	}
	if status != 0 {
		s.logger.Info("Script rejected change", "path", s.path, "reason", env.Reason(), "status", status)
	}
	return status
}

func (s *Script) String() string {
	return fmt.Sprintf("script(%s)", s.path)
}
