package hub

import (
	"time"

	"github.com/gofiber/contrib/websocket"
)

const (
	writeTimeout   = 10 * time.Second
	idleTimeout    = 60 * time.Second
	keepalive      = idleTimeout * 9 / 10
	maxInboundSize = 4 * 1024 // peers only answer pings
	queueSize      = 64
)

// Client is one websocket peer of a Hub. Only the writer goroutine
// started by Run touches the connection for output.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closed bool // guarded by hub.mu
}

// NewClient registers conn with a running hub. It returns ErrStopped
// once the hub's Run loop has ended.
func NewClient(h *Hub, conn *websocket.Conn) (*Client, error) {
	c := &Client{hub: h, conn: conn, send: make(chan []byte, queueSize)}
	if err := h.join(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Queue adds data ahead of later broadcasts. It reports false when the
// queue is full or the hub has dropped the client.
func (c *Client) Queue(data []byte) bool {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Run serves the connection until the peer goes away or the hub drops it.
func (c *Client) Run() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop discards inbound frames; it exists to process pongs and to
// notice the peer closing.
func (c *Client) readLoop() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	extend := func() { c.conn.SetReadDeadline(time.Now().Add(idleTimeout)) }
	c.conn.SetReadLimit(maxInboundSize)
	extend()
	c.conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writeLoop() {
	ping := time.NewTicker(keepalive)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case data, open := <-c.send:
			if !open {
				c.write(websocket.CloseMessage, nil)
				return
			}
			err = c.write(websocket.TextMessage, data)
		case <-ping.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) write(kind int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(kind, data)
}
