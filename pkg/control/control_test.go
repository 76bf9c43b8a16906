package control

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/dhclient/pkg/dispatch"
	"github.com/veesix-networks/dhclient/pkg/logger"
)

type mockHandler struct {
	mock.Mock
}

func (m *mockHandler) Status(ifname string) ([]ClientStatus, error) {
	args := m.Called(ifname)
	clients, _ := args.Get(0).([]ClientStatus)
	return clients, args.Error(1)
}

func (m *mockHandler) Release(ifname string) error { return m.Called(ifname).Error(0) }
func (m *mockHandler) Renew(ifname string) error   { return m.Called(ifname).Error(0) }
func (m *mockHandler) Stop(ifname string) error    { return m.Called(ifname).Error(0) }

func TestHandle(t *testing.T) {
	h := &mockHandler{}
	h.On("Status", "").Return([]ClientStatus{{Interface: "eth0", State: "BOUND"}}, nil)
	h.On("Release", "eth0").Return(nil)
	h.On("Renew", "eth9").Return(errors.New("no client on eth9"))

	s := &Server{handler: h, logger: testLogger()}

	resp := s.Handle(&Request{Command: CommandStatus})
	require.True(t, resp.OK)
	require.Len(t, resp.Clients, 1)
	assert.Equal(t, "BOUND", resp.Clients[0].State)

	assert.True(t, s.Handle(&Request{Command: CommandRelease, Interface: "eth0"}).OK)

	resp = s.Handle(&Request{Command: CommandRenew, Interface: "eth9"})
	assert.False(t, resp.OK)
	assert.Equal(t, "no client on eth9", resp.Error)

	resp = s.Handle(&Request{Command: "reboot"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown command")

	resp = s.Handle(&Request{Command: CommandHistory})
	assert.False(t, resp.OK)

	h.AssertExpectations(t)
}

func TestHandleLogLevel(t *testing.T) {
	s := &Server{handler: &mockHandler{}, logger: testLogger()}
	t.Cleanup(func() { logger.ClearComponentLevel(logger.Transport) })

	resp := s.Handle(&Request{Command: CommandLogLevel, Component: logger.Transport, Level: "debug"})
	require.True(t, resp.OK, resp.Error)
	require.NotNil(t, resp.Levels)
	assert.Equal(t, "debug", resp.Levels.Components[logger.Transport])
	assert.Equal(t, logger.LogLevelDebug, logger.ComponentLevels()[logger.Transport])

	resp = s.Handle(&Request{Command: CommandLogLevel})
	require.True(t, resp.OK)
	assert.Equal(t, string(logger.GetDefaultLevel()), resp.Levels.Default)
	assert.Equal(t, "debug", resp.Levels.Components[logger.Transport])

	resp = s.Handle(&Request{Command: CommandLogLevel, Component: logger.Transport, Level: "loud"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown log level")

	resp = s.Handle(&Request{Command: CommandLogLevel, Level: "debug"})
	assert.False(t, resp.OK)

	resp = s.Handle(&Request{Command: CommandLogLevel, Component: logger.Transport, Level: LevelDefault})
	require.True(t, resp.OK)
	assert.NotContains(t, resp.Levels.Components, logger.Transport)
	assert.NotContains(t, logger.ComponentLevels(), logger.Transport)
}

func TestClientServerRoundTrip(t *testing.T) {
	h := &mockHandler{}
	h.On("Status", "eth0").Return([]ClientStatus{{Interface: "eth0", State: "RENEWING", Address: "192.0.2.10"}}, nil)
	h.On("Stop", "eth0").Return(nil)

	path := filepath.Join(t.TempDir(), "dhclient.sock")
	srv, err := Listen(path, h)
	require.NoError(t, err)
	defer srv.Close()

	d, err := dispatch.New(dispatch.SystemClock{})
	require.NoError(t, err)
	srv.Register(d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	c := NewClient(path, 2*time.Second)
	clients, err := c.Status("eth0")
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "192.0.2.10", clients[0].Address)

	require.NoError(t, c.Command(CommandStop, "eth0"))

	err = c.Command("bogus", "")
	assert.Error(t, err)
}

func testLogger() *slog.Logger {
	return logger.Get(logger.Control)
}
