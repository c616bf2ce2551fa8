// Package client implements the wire client for the auth server: one TCP
// connection carrying newline-delimited JSON requests and responses.
package client

import (
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/authcore/internal/protocol"
)

// ErrServerFailure wraps a response with success=false; the server's message
// is the error text.
var ErrServerFailure = errors.New("server refused request")

// Client is a synchronous request/response client. It is not safe for
// concurrent use; the protocol guarantees one response per request in order,
// so callers must serialize their calls.
type Client struct {
	conn  net.Conn
	codec *protocol.Codec
}

// Dial connects to the auth server at addr.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection. Useful for tests over net.Pipe.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, codec: protocol.NewCodec(conn)}
}

// Do sends one request and waits for its response. A success=false response
// is returned alongside an error wrapping ErrServerFailure so callers can
// show the server's message.
func (c *Client) Do(action protocol.Action, fields map[string]string) (*protocol.Response, error) {
	if err := c.codec.WriteRequest(protocol.NewRequest(action, fields)); err != nil {
		return nil, err
	}
	resp, err := c.codec.ReadResponse()
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return resp, &serverFailure{message: resp.Message}
	}
	return resp, nil
}

type serverFailure struct {
	message string
}

func (e *serverFailure) Error() string { return e.message }
func (e *serverFailure) Unwrap() error { return ErrServerFailure }

func (c *Client) Close() error {
	return c.conn.Close()
}
