package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/vearne/httpcap/channel"
	"github.com/vearne/httpcap/consts"
	"github.com/vearne/httpcap/model"
	slog "github.com/vearne/simplelog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendQueue  = 256
)

// client is one websocket subscriber. It is registered with the engine as
// a destination, so Send must never block the capture worker.
type client struct {
	id   string
	kind string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn, kind string) *client {
	return &client{
		id:   uuid.NewString(),
		kind: kind,
		ws:   conn,
		send: make(chan []byte, sendQueue),
		done: make(chan struct{}),
	}
}

func (c *client) sendJSON(v interface{}) error {
	select {
	case <-c.done:
		return consts.ErrDestinationClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return consts.ErrDestinationClosed
	default:
		return consts.ErrDestinationFull
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// subscription forwards events to the destination that was registered
// before the websocket client, and to the client. Only the newest client
// receives events, as with any other registration.
type subscription[T any] struct {
	base   channel.Destination[T]
	client *client
}

func (sub *subscription[T]) Send(v T) error {
	var err error
	if sub.base != nil {
		if e := sub.base.Send(v); e != nil {
			err = e
		}
	}
	if e := sub.client.sendJSON(v); e != nil {
		err = errors.Wrapf(e, "websocket client %v", sub.client.id)
	}
	return err
}

func newSubscription[T any](cur channel.Destination[T], c *client) *subscription[T] {
	base := cur
	if prev, ok := cur.(*subscription[T]); ok {
		base = prev.base
	}
	return &subscription[T]{base: base, client: c}
}

// unsubscribe registers sub.base again if sub is still the registered
// destination.
func unsubscribe[T any](sub *subscription[T], cur channel.Destination[T], register func(channel.Destination[T])) {
	if cur, ok := cur.(*subscription[T]); ok && cur == sub {
		register(sub.base)
	}
}

func (s *Server) handleStatusWebSocket(w http.ResponseWriter, r *http.Request) {
	c := s.accept(w, r, "status")
	if c == nil {
		return
	}

	s.mu.Lock()
	sub := newSubscription[model.CaptureStatus](s.engine.StatusChannel(), c)
	s.engine.RegisterStatusChannel(sub)
	s.mu.Unlock()
	// the subscriber starts from the current snapshot
	s.engine.PublishStatus()

	s.serve(c)

	s.mu.Lock()
	unsubscribe[model.CaptureStatus](sub, s.engine.StatusChannel(), s.engine.RegisterStatusChannel)
	s.mu.Unlock()
}

func (s *Server) handleRequestsWebSocket(w http.ResponseWriter, r *http.Request) {
	c := s.accept(w, r, "http-request")
	if c == nil {
		return
	}

	s.mu.Lock()
	sub := newSubscription[*model.HTTPRequest](s.engine.RequestChannel(), c)
	s.engine.RegisterRequestChannel(sub)
	s.mu.Unlock()

	s.serve(c)

	s.mu.Lock()
	unsubscribe[*model.HTTPRequest](sub, s.engine.RequestChannel(), s.engine.RegisterRequestChannel)
	s.mu.Unlock()
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request, kind string) *client {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade %s websocket: %v", kind, err)
		return nil
	}
	c := newClient(conn, kind)
	slog.Info("websocket client connected, id:%v, kind:%v, remote:%v", c.id, kind, r.RemoteAddr)

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	return c
}

func (s *Server) serve(c *client) {
	go c.writePump()
	c.readPump()

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	slog.Info("websocket client disconnected, id:%v, kind:%v", c.id, c.kind)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *client) readPump() {
	defer func() {
		c.close()
		c.ws.Close()
	}()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket error, id:%v, %v", c.id, err)
			}
			break
		}
	}
}
