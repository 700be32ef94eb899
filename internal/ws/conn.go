package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBufferSize = 64
)

// Conn wraps one live websocket connection for an authenticated user.
// Writes go through a buffered channel drained by a single write pump so
// that any goroutine may Send without coordinating with the others.
type Conn struct {
	UserID string

	ws   *websocket.Conn
	send chan Event
	done chan struct{}

	closeOnce sync.Once
}

func NewConn(userID string, wsConn *websocket.Conn) *Conn {
	c := &Conn{
		UserID: userID,
		ws:     wsConn,
		send:   make(chan Event, sendBufferSize),
		done:   make(chan struct{}),
	}

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	return c
}

// Send queues an event for delivery. Events for a slow consumer are dropped
// once the buffer is full rather than blocking the coordinator.
func (c *Conn) Send(event Event) {
	select {
	case <-c.done:
	case c.send <- event:
	default:
		log.Warn().
			Str("userId", c.UserID).
			Str("type", event.Type).
			Msg("client event buffer full, dropping event")
	}
}

// ReadEvent blocks until the next inbound event arrives or the connection
// fails.
func (c *Conn) ReadEvent() (Event, error) {
	var event Event
	if err := c.ws.ReadJSON(&event); err != nil {
		return Event{}, err
	}
	return event, nil
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case event := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(event); err != nil {
				log.Debug().Err(err).Str("userId", c.UserID).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
