package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/veesix-networks/dhclient/pkg/dispatch"
	"github.com/veesix-networks/dhclient/pkg/logger"
)

const maxDatagram = 64 * 1024

// Server answers requests on a unix datagram socket. Requests are handled
// on the dispatcher goroutine, so the handler needs no locking.
type Server struct {
	path    string
	fd      int
	handler Handler
	history HistorySource
	logger  *slog.Logger
}

func Listen(path string, handler Handler) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create control socket directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale control socket: %w", err)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("control socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind control socket %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("chmod control socket: %w", err)
	}

	return &Server{
		path:    path,
		fd:      fd,
		handler: handler,
		logger:  logger.Get(logger.Control),
	}, nil
}

func (s *Server) SetHistory(h HistorySource) {
	s.history = h
}

func (s *Server) Register(d *dispatch.Dispatcher) {
	d.Register(dispatch.Source{Name: "control", FD: s.fd, OnReadable: s.serve})
}

func (s *Server) serve() {
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := unix.Recvfrom(s.fd, buf, 0)
		if err != nil {
			return
		}

		var req Request
		resp := &Response{}
		if err := json.Unmarshal(buf[:n], &req); err != nil {
			resp.Error = fmt.Sprintf("bad request: %v", err)
		} else {
			resp = s.Handle(&req)
		}

		if from == nil {
			continue
		}
		out, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error("Failed to encode response", "error", err)
			continue
		}
		if err := unix.Sendto(s.fd, out, 0, from); err != nil {
			s.logger.Warn("Failed to send response", "command", req.Command, "error", err)
		}
	}
}

// Handle runs one request against the handler.
func (s *Server) Handle(req *Request) *Response {
	s.logger.Debug("Control request", "command", req.Command, "interface", req.Interface)

	var err error
	resp := &Response{}
	switch req.Command {
	case CommandStatus:
		resp.Clients, err = s.handler.Status(req.Interface)
	case CommandRelease:
		err = s.handler.Release(req.Interface)
	case CommandRenew:
		err = s.handler.Renew(req.Interface)
	case CommandStop:
		err = s.handler.Stop(req.Interface)
	case CommandHistory:
		if s.history == nil {
			err = errors.New("lease history is not enabled")
			break
		}
		resp.History, err = s.history.History(req.Interface, req.Limit)
	case CommandLogLevel:
		resp.Levels, err = s.logLevel(req.Component, req.Level)
	default:
		err = fmt.Errorf("unknown command %q", req.Command)
	}

	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.OK = true
	return resp
}

// logLevel applies a component override and reports the resulting levels.
// An empty level only reports.
func (s *Server) logLevel(component, level string) (*LogLevels, error) {
	switch {
	case level == "":
	case component == "":
		return nil, errors.New("log level needs a component")
	case level == LevelDefault:
		logger.ClearComponentLevel(component)
		s.logger.Info("Cleared component log level", "component", component)
	default:
		lvl, err := logger.ParseLogLevel(level)
		if err != nil {
			return nil, err
		}
		logger.SetComponentLevel(component, lvl)
		s.logger.Info("Set component log level", "component", component, "level", lvl)
	}

	levels := &LogLevels{
		Default:    string(logger.GetDefaultLevel()),
		Components: make(map[string]string),
	}
	for name, lvl := range logger.ComponentLevels() {
		levels.Components[name] = string(lvl)
	}
	return levels, nil
}

func (s *Server) Close() error {
	err := unix.Close(s.fd)
	os.Remove(s.path)
	return err
}
