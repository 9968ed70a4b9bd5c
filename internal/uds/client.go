package uds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrNoSession is returned when nothing listens on the socket.
var ErrNoSession = errors.New("no session is running")

const defaultClientTimeout = 10 * time.Second

// Client issues one request per connection to a session's control socket.
type Client struct {
	socketPath string
	timeout    time.Duration
	dialer     net.Dialer
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: defaultClientTimeout}
}

// SetTimeout bounds dial, write and read together.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Send performs one round trip.
func (c *Client) Send(req *Request) (*Response, error) {
	return c.SendContext(context.Background(), req)
}

// SendContext is Send bounded by ctx as well as the client timeout.
func (c *Client) SendContext(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("dial %s: %w", c.socketPath, ctx.Err())
	}
	if err != nil {
		return nil, fmt.Errorf("%w at %s (start one with: devtimer run): %v", ErrNoSession, c.socketPath, err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := WriteFrame(conn, req); err != nil {
		return nil, fmt.Errorf("%s: send request: %w", req.Command, err)
	}
	resp := new(Response)
	if err := ReadFrame(conn, resp); err != nil {
		return nil, fmt.Errorf("%s: read response: %w", req.Command, err)
	}
	return resp, nil
}

// Call sends command and decodes a successful response's data into out,
// which may be nil. A failed response is returned as *ErrorDetail.
func (c *Client) Call(command string, params, out any) error {
	return c.CallContext(context.Background(), command, params, out)
}

func (c *Client) CallContext(ctx context.Context, command string, params, out any) error {
	req, err := NewRequest(command, params)
	if err != nil {
		return err
	}
	resp, err := c.SendContext(ctx, req)
	if err != nil {
		return err
	}
	switch {
	case !resp.Success && resp.Error != nil:
		return resp.Error
	case !resp.Success:
		return &ErrorDetail{Code: ErrCodeInternal, Message: command + " failed"}
	case out == nil || len(resp.Data) == 0:
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", command, err)
	}
	return nil
}
