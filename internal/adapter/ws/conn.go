package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client serializes writes to one websocket connection. gorilla/websocket
// allows a single concurrent writer, and the janitor and question-generation
// goroutines both send frames.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	hook func(Outbound)
}

func NewClient(conn *websocket.Conn) *Client { return &Client{conn: conn} }

// SetSendHook replaces the websocket sender (used in tests).
func (c *Client) SetSendHook(fn func(Outbound)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send writes one frame. Write errors are dropped; the read loop notices a
// dead connection and triggers the disconnect path.
func (c *Client) Send(frame Outbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		c.hook(frame)
		return
	}
	if c.conn == nil {
		return
	}
	_ = c.conn.WriteJSON(frame)
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
