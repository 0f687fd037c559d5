package main

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
)

// Client is a single websocket participant. The id is the opaque
// connection handle; name and allowed are owned by the session
// coordinator and only touched on its goroutine.
type Client struct {
	id      string
	name    string
	allowed bool

	conn    *websocket.Conn
	session *Session
	send    chan ServerEvent
	done    chan struct{}
	closed  atomic.Bool
}

func NewClient(conn *websocket.Conn, session *Session) *Client {
	id := uuid.NewString()
	return &Client{
		id:      id,
		name:    "user-" + id[:8],
		conn:    conn,
		session: session,
		send:    make(chan ServerEvent, sendBufferSize),
		done:    make(chan struct{}),
	}
}

func (c *Client) readLoop() {
	defer c.close()
	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("read message")
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.pushError("invalid message")
			continue
		}
		c.session.Route(c, msg)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Str("conn", c.id).Msg("write json")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// push never blocks the coordinator: when the queue is full the oldest
// queued event is dropped in favor of the new one.
func (c *Client) push(ev ServerEvent) {
	select {
	case c.send <- ev:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- ev:
	default:
	}
}

func (c *Client) pushError(reason string) {
	c.push(ServerEvent{Type: evtError, Reason: reason})
}

func (c *Client) close() {
	if c.closed.Swap(true) {
		return
	}
	c.session.Detach(c)
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
