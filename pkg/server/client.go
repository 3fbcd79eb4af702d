package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// client is one websocket subscriber. Slow clients lose messages instead of
// stalling the controller.
type client struct {
	id     string
	conn   *websocket.Conn
	sendCh chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{id: id, conn: conn, sendCh: make(chan []byte, 64)}
}

func (c *client) enqueue(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.sendCh <- b:
	default:
	}
}

func (c *client) loop() {
	for msg := range c.sendCh {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	_ = c.conn.Close()
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
}
