package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
)

// ErrClientClosed is returned for calls on a closed client
var ErrClientClosed = errors.New("rpc: client closed")

// Client sends requests over one connection and matches replies by id.
// It is safe for concurrent use.
type Client struct {
	conn    net.Conn
	encoder *Encoder

	mu      sync.Mutex
	pending map[string]chan *Response
	err     error
	done    chan struct{}
}

// Dial connects to a server at addr
func Dial(ctx context.Context, addr string) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	c := &Client{
		conn:    conn,
		encoder: NewEncoder(conn),
		pending: make(map[string]chan *Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()

	return c, nil
}

// Send issues a request and waits for its reply.
// A reply carrying an error is returned as *models.RPCError.
func (c *Client) Send(ctx context.Context, pattern string, data interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	id := uuid.NewString()
	rawID, _ := json.Marshal(id)
	reply := make(chan *Response, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.encoder.Encode(&Request{Pattern: pattern, Data: payload, ID: rawID}); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case resp := <-reply:
		if resp.Err != nil {
			return nil, resp.Err
		}
		return resp.Response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.closeErr()
	}
}

// Call is Send followed by decoding the reply into out
func (c *Client) Call(ctx context.Context, pattern string, data interface{}, out interface{}) error {
	raw, err := c.Send(ctx, pattern, data)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Emit sends an event; the server never replies to it
func (c *Client) Emit(_ context.Context, pattern string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := c.closeErr(); err != nil {
		return err
	}
	return c.encoder.Encode(&Request{Pattern: pattern, Data: payload})
}

// Close closes the connection and fails pending calls
func (c *Client) Close() error {
	c.fail(ErrClientClosed)
	return c.conn.Close()
}

func (c *Client) readLoop() {
	decoder := NewDecoder(c.conn)
	for {
		raw, err := decoder.Decode()
		if err != nil {
			if errors.Is(err, ErrMalformedMessage) {
				continue
			}
			c.fail(err)
			return
		}

		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			continue
		}
		var id string
		if err := json.Unmarshal(resp.ID, &id); err != nil {
			continue
		}

		c.mu.Lock()
		reply, ok := c.pending[id]
		c.mu.Unlock()
		if ok {
			select {
			case reply <- &resp:
			default:
			}
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = err
	close(c.done)
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
