package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/dhclient/pkg/control"
)

type fakeController struct {
	status   []control.ClientStatus
	history  []control.HistoryEntry
	commands []string
	limit    int
	levels   map[string]string
}

func (f *fakeController) Status(ifname string) ([]control.ClientStatus, error) {
	var out []control.ClientStatus
	for _, s := range f.status {
		if ifname == "" || s.Interface == ifname {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeController) Command(command, ifname string) error {
	f.commands = append(f.commands, command+":"+ifname)
	return nil
}

func (f *fakeController) History(ifname string, limit int) ([]control.HistoryEntry, error) {
	f.limit = limit
	return f.history, nil
}

func (f *fakeController) LogLevel(component, level string) (*control.LogLevels, error) {
	if f.levels == nil {
		f.levels = make(map[string]string)
	}
	switch level {
	case "":
	case control.LevelDefault:
		delete(f.levels, component)
	default:
		f.levels[component] = level
	}
	out := &control.LogLevels{Default: "info", Components: make(map[string]string)}
	for name, lvl := range f.levels {
		out.Components[name] = lvl
	}
	return out, nil
}

func newTestCLI(format OutputFormat) (*CLI, *fakeController, *bytes.Buffer) {
	ctrl := &fakeController{
		status: []control.ClientStatus{
			{Interface: "eth0", State: "BOUND", Address: "192.0.2.10", ServerID: "192.0.2.1",
				Expiry: time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)},
			{Interface: "eth1", State: "SELECTING"},
		},
	}
	var out bytes.Buffer
	return NewCLI(ctrl, "/run/test.sock", format, &out), ctrl, &out
}

func TestExecute(t *testing.T) {
	cli, ctrl, out := newTestCLI(FormatYAML)
	ctx := context.Background()

	require.NoError(t, cli.tree.Execute(ctx, cli, "show status eth0"))
	assert.Contains(t, out.String(), "interface: eth0")
	assert.NotContains(t, out.String(), "eth1")

	require.NoError(t, cli.tree.Execute(ctx, cli, "renew eth1"))
	require.NoError(t, cli.tree.Execute(ctx, cli, "release"))
	assert.Equal(t, []string{"renew:eth1", "release:"}, ctrl.commands)

	require.NoError(t, cli.tree.Execute(ctx, cli, "show history all 5"))
	assert.Equal(t, 5, ctrl.limit)
	require.NoError(t, cli.tree.Execute(ctx, cli, "show history"))
	assert.Equal(t, defaultHistoryLimit, ctrl.limit)

	assert.EqualError(t, cli.tree.Execute(ctx, cli, "show history eth0 zero"), `invalid limit "zero"`)
	assert.EqualError(t, cli.tree.Execute(ctx, cli, "show"), "incomplete command")
	assert.EqualError(t, cli.tree.Execute(ctx, cli, "frobnicate"), "unrecognized command")
	assert.EqualError(t, cli.tree.Execute(ctx, cli, "stop eth0 eth1"), `unexpected argument "eth1"`)
}

func TestCompletions(t *testing.T) {
	tree := NewCommandTree()
	RegisterCommands(tree)

	assert.Equal(t, []string{"show"}, tree.GetCompletions("sh"))
	assert.Equal(t, []string{"status"}, tree.GetCompletions("show st"))
	assert.Equal(t, []string{"status", "history", "log-levels"}, tree.GetCompletions("show "))
	assert.ElementsMatch(t, []string{"release", "renew"}, tree.GetCompletions("re"))
	assert.Nil(t, tree.GetCompletions("bogus "))
}

func TestFormatCLI(t *testing.T) {
	cli, _, out := newTestCLI(FormatCLI)
	require.NoError(t, cli.tree.Execute(context.Background(), cli, "show status"))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "INTERFACE")
	assert.Contains(t, string(lines[1]), "192.0.2.10")
	assert.Contains(t, string(lines[2]), "SELECTING")
}

func TestLogLevelCommands(t *testing.T) {
	cli, ctrl, out := newTestCLI(FormatCLI)
	ctx := context.Background()

	require.NoError(t, cli.tree.Execute(ctx, cli, "log-level transport debug"))
	require.NoError(t, cli.tree.Execute(ctx, cli, "log-level dhclient warn"))
	assert.Equal(t, map[string]string{"transport": "debug", "dhclient": "warn"}, ctrl.levels)

	out.Reset()
	require.NoError(t, cli.tree.Execute(ctx, cli, "show log-levels"))
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[1]), "(default)")
	assert.Contains(t, string(lines[2]), "dhclient")
	assert.Contains(t, string(lines[3]), "transport")

	require.NoError(t, cli.tree.Execute(ctx, cli, "log-level transport default"))
	assert.Equal(t, map[string]string{"dhclient": "warn"}, ctrl.levels)

	assert.EqualError(t, cli.tree.Execute(ctx, cli, "log-level transport"), "missing required arguments: component, level")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
