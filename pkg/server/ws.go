package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/layout"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	maxMessage   = 64 << 10
	sendBuffer   = 64
)

type msgType string

const (
	msgHello msgType = "hello"
	msgFrame msgType = "frame"
	msgTick  msgType = "tick"
	msgError msgType = "error"
)

// message is one server-to-browser websocket message.
type message struct {
	Type    msgType          `json:"type"`
	Session string           `json:"session,omitempty"`
	Frame   *engine.Frame    `json:"frame,omitempty"`
	Tick    *layout.Snapshot `json:"tick,omitempty"`
	Error   *errorBody       `json:"error,omitempty"`
}

// client is one websocket attached to a viewer.
type client struct {
	conn *websocket.Conn
	send chan message
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan message, sendBuffer),
		done: make(chan struct{}),
	}
}

// offer queues m without blocking. A full buffer drops ticks first;
// a frame that does not fit closes the socket, since the browser would
// otherwise show a stale view.
func (c *client) offer(m message) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- m:
	default:
		if m.Type != msgTick {
			c.close()
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewerFor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, w.Header().Clone())
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	c := newClient(conn)
	v.attach(c)
	frame := v.controller().Frame()
	c.offer(message{Type: msgHello, Session: v.id, Frame: &frame})

	go s.writeLoop(c)
	s.readLoop(r.Context(), v, c)
}

func (s *Server) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case m := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				s.logger.Debug("websocket write failed", "err", err)
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readLoop decodes actions until the socket closes. A bad action is
// answered with an error message; the socket stays open.
func (s *Server) readLoop(ctx context.Context, v *viewer, c *client) {
	defer v.detach(c)

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket closed", "session", v.id, "err", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var a filter.Action
		if err := json.Unmarshal(data, &a); err != nil {
			c.offer(message{Type: msgError, Error: newErrorBody(
				errors.Wrap(errors.ErrCodeInvalidAction, err, "malformed action"))})
			continue
		}
		// dispatch broadcasts the frame to this socket too.
		if _, err := v.dispatch(ctx, a); err != nil {
			c.offer(message{Type: msgError, Error: newErrorBody(err)})
		}
	}
}
