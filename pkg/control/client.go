package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Client talks to a running daemon. Replies come back to an abstract
// socket named per client.
type Client struct {
	server  *net.UnixAddr
	timeout time.Duration
}

func NewClient(path string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		server:  &net.UnixAddr{Name: path, Net: "unixgram"},
		timeout: timeout,
	}
}

func (c *Client) Do(req *Request) (*Response, error) {
	local := &net.UnixAddr{Name: "@dhclientctl-" + uuid.NewString(), Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", local)
	if err != nil {
		return nil, fmt.Errorf("open reply socket: %w", err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.WriteToUnix(data, c.server); err != nil {
		return nil, fmt.Errorf("send to %s: %w", c.server.Name, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, maxDatagram)
	n, _, err := conn.ReadFromUnix(buf)
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if !resp.OK {
		return &resp, errors.New(resp.Error)
	}
	return &resp, nil
}

func (c *Client) Status(ifname string) ([]ClientStatus, error) {
	resp, err := c.Do(&Request{Command: CommandStatus, Interface: ifname})
	if err != nil {
		return nil, err
	}
	return resp.Clients, nil
}

func (c *Client) Command(command, ifname string) error {
	_, err := c.Do(&Request{Command: command, Interface: ifname})
	return err
}

func (c *Client) History(ifname string, limit int) ([]HistoryEntry, error) {
	resp, err := c.Do(&Request{Command: CommandHistory, Interface: ifname, Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.History, nil
}

// LogLevel sets the level of one component, or only reports the levels
// when level is empty.
func (c *Client) LogLevel(component, level string) (*LogLevels, error) {
	resp, err := c.Do(&Request{Command: CommandLogLevel, Component: component, Level: level})
	if err != nil {
		return nil, err
	}
	return resp.Levels, nil
}
