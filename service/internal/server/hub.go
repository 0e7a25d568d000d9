package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/groupsolitaire/service/internal/game"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// Client is one websocket connection watching a session.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	log  logrus.FieldLogger
}

func newClient(conn *websocket.Conn, log logrus.FieldLogger) *Client {
	return &Client{conn: conn, send: make(chan []byte, sendBuffer), log: log}
}

// enqueue queues data without blocking and reports whether it fit.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// writePump writes queued messages until the hub closes send or a write
// fails.
func (c *Client) writePump(ctx context.Context) {
	for data := range c.send {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.conn.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			c.log.WithError(err).Debug("server: websocket write failed")
			c.conn.CloseNow()
			for range c.send {
			}
			return
		}
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
}

// Hub fans a session's events out to its connections.
type Hub struct {
	session *game.Session
	log     logrus.FieldLogger
	now     func() time.Time

	mu        sync.Mutex
	clients   map[*Client]struct{}
	idleSince time.Time // Zero while a client is connected.
	won       bool
}

// newHub wires the session's broadcasts and win hook to the hub.
func newHub(sess *game.Session, log logrus.FieldLogger, now func() time.Time) *Hub {
	h := &Hub{
		session:   sess,
		log:       log.WithField("game", sess.ID),
		now:       now,
		clients:   make(map[*Client]struct{}),
		idleSince: now(),
	}
	sess.Mu.Lock()
	sess.BroadcastFn = h.broadcast
	sess.OnWin = h.finish
	sess.Mu.Unlock()
	return h
}

// finish records that the round is over. Called with the session lock held.
func (h *Hub) finish(sess *game.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.won = true
	h.log.WithFields(logrus.Fields{
		"player":  sess.PlayerID,
		"clients": len(h.clients),
	}).Info("server: round finished")
}

// finished reports whether the round has been won.
func (h *Hub) finished() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.won
}

// idle reports whether no client has been connected since before cutoff.
func (h *Hub) idle(cutoff time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) == 0 && !h.idleSince.After(cutoff)
}

// ID returns the session id.
func (h *Hub) ID() uuid.UUID { return h.session.ID }

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast sends ev to every client. Clients whose buffer is full are
// dropped; their write pump then closes the connection.
func (h *Hub) broadcast(ev game.GameEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("server: failed to encode event")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.enqueue(data) {
			h.log.WithField("event", ev.Type).Warn("server: dropping slow client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// sendTo sends ev to a single client.
func (h *Hub) sendTo(c *Client, ev game.GameEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("server: failed to encode event")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok && !c.enqueue(data) {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.idleSince = time.Time{}
}

// unregister removes c and returns how many clients remain.
func (h *Hub) unregister(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	if len(h.clients) == 0 && h.idleSince.IsZero() {
		h.idleSince = h.now()
	}
	return len(h.clients)
}

// closeAll tells every client the server is going away.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		}()
	}
	wg.Wait()
}

// Registry holds the hubs of the sessions being played.
type Registry struct {
	mu   sync.Mutex
	hubs map[uuid.UUID]*Hub
	log  logrus.FieldLogger
	now  func() time.Time
}

// NewRegistry returns an empty registry. A nil now uses time.Now.
func NewRegistry(log logrus.FieldLogger, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{hubs: make(map[uuid.UUID]*Hub), log: log, now: now}
}

// Add registers a new session and returns its hub.
func (r *Registry) Add(sess *game.Session) *Hub {
	h := newHub(sess, r.log, r.now)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hubs[sess.ID] = h
	return h
}

// Get returns the hub of session id.
func (r *Registry) Get(id uuid.UUID) (*Hub, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hubs[id]
	return h, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hubs)
}

// adopt registers a loaded session unless another request registered the
// same id first, in which case that hub wins.
func (r *Registry) adopt(sess *game.Session) *Hub {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hubs[sess.ID]; ok {
		return h
	}
	h := newHub(sess, r.log, r.now)
	r.hubs[sess.ID] = h
	return h
}

// attach adds c to the live hub for h's session, re-registering h if it was
// released in the meantime.
func (r *Registry) attach(h *Hub, c *Client) *Hub {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.hubs[h.ID()]; ok {
		h = cur
	} else {
		r.hubs[h.ID()] = h
	}
	h.register(c)
	return h
}

// detach removes c from h. When release is set and no client is left, the
// session is dropped from memory.
func (r *Registry) detach(h *Hub, c *Client, release bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.unregister(c) == 0 && release && r.hubs[h.ID()] == h {
		delete(r.hubs, h.ID())
		r.log.WithField("game", h.ID()).Debug("server: released idle session")
	}
}

// release drops h from memory if no client is connected to it.
func (r *Registry) release(h *Hub) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hubs[h.ID()] != h || h.Len() > 0 {
		return false
	}
	delete(r.hubs, h.ID())
	return true
}

// Sweep drops every session that has had no client for maxIdle and returns
// how many were dropped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, h := range r.hubs {
		if h.idle(cutoff) {
			delete(r.hubs, id)
			n++
		}
	}
	if n > 0 {
		r.log.WithField("released", n).Info("server: swept idle sessions")
	}
	return n
}

// closeAll closes every connection of every hub.
func (r *Registry) closeAll() {
	r.mu.Lock()
	hubs := make([]*Hub, 0, len(r.hubs))
	for _, h := range r.hubs {
		hubs = append(hubs, h)
	}
	r.mu.Unlock()
	for _, h := range hubs {
		h.closeAll()
	}
}
