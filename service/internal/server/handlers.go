package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/groupsolitaire/engine"
	"github.com/jason-s-yu/groupsolitaire/engine/deck"
	"github.com/jason-s-yu/groupsolitaire/service/internal/game"
	"github.com/jason-s-yu/groupsolitaire/service/internal/save"
)

var errEmptyDeck = errors.New("deck has no playable groups")

type createGameRequest struct {
	DeckID     string  `json:"deckId"`
	GroupCount *int    `json:"groupCount"`
	Seed       *uint64 `json:"seed"`
	PlayerID   string  `json:"playerId"`
}

type createGameResponse struct {
	GameID uuid.UUID         `json:"gameId"`
	Token  string            `json:"token"`
	State  game.ObfGameState `json:"state"`
}

// createGame builds a deck, deals a round and returns a token for it.
func (s *Server) createGame(c echo.Context) error {
	var req createGameRequest
	if err := c.Bind(&req); err != nil {
		return s.mapError(c, err)
	}
	if req.GroupCount != nil && *req.GroupCount < 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "groupCount must not be negative"})
	}
	ctx := c.Request().Context()
	settings := s.loadSettings(ctx, req.PlayerID)

	d, err := s.buildDeck(ctx, req, settings)
	if err != nil {
		return s.mapError(c, err)
	}
	if err := playable(d); err != nil {
		return s.mapError(c, err)
	}

	sess := game.NewSession(d, req.Seed,
		game.WithStore(s.store),
		game.WithLogger(s.log),
		game.WithPlayer(req.PlayerID),
	)
	hub := s.registry.Add(sess)
	saveErr := sess.Save(ctx)

	token, err := s.signer.Issue(sess.ID, req.PlayerID)
	if err != nil {
		return s.mapError(c, err)
	}

	sess.Mu.Lock()
	state := sess.GetCurrentObfuscatedGameState()
	groupIDs := sess.DeckGroupIDs()
	sess.Mu.Unlock()

	if s.store != nil {
		if req.PlayerID != "" {
			settings.RememberGroups(groupIDs)
			if err := s.store.SaveSettings(ctx, req.PlayerID, settings); err != nil {
				s.log.WithError(err).WithField("player", req.PlayerID).Warn("server: failed to save settings")
			}
		}
		// A saved round reloads on connect; an unsaved one stays in memory.
		if saveErr == nil {
			s.releaseIfIdle(hub)
		}
	}
	return c.JSON(http.StatusCreated, createGameResponse{GameID: sess.ID, Token: token, State: state})
}

// buildDeck resolves the requested deck, or draws a random one that avoids
// the player's recent groups.
func (s *Server) buildDeck(ctx context.Context, req createGameRequest, settings save.Settings) (engine.Deck, error) {
	if req.DeckID != "" {
		return s.manager.BuildDeck(ctx, req.DeckID)
	}
	count := s.defaultGroupCount
	switch {
	case req.GroupCount != nil:
		count = *req.GroupCount
	case settings.GroupCount > 0:
		count = settings.GroupCount
	}
	opts := deck.RandomOptions{GroupCount: count, Seed: req.Seed, Exclude: settings.RecentGroupIDs}
	d, err := s.manager.BuildRandomDeck(ctx, opts)
	if errors.Is(err, deck.ErrInsufficientGroups) && len(opts.Exclude) > 0 {
		// Recent groups are a preference; retry from the whole catalogue.
		opts.Exclude = nil
		d, err = s.manager.BuildRandomDeck(ctx, opts)
	}
	return d, err
}

// loadSettings returns the player's settings, or the defaults.
func (s *Server) loadSettings(ctx context.Context, playerID string) save.Settings {
	if s.store == nil || playerID == "" {
		return save.DefaultSettings()
	}
	settings, err := s.store.LoadSettings(ctx, playerID)
	if err != nil {
		if !errors.Is(err, save.ErrNotFound) {
			s.log.WithError(err).WithField("player", playerID).Warn("server: failed to load settings")
		}
		return save.DefaultSettings()
	}
	return settings
}

// getGame returns the client view of a round. The token must belong to it.
func (s *Server) getGame(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid game id"})
	}
	sid, _, err := s.verify(c)
	if err != nil {
		return s.mapError(c, err)
	}
	if sid != id {
		return c.JSON(http.StatusForbidden, errorResponse{Error: "token is for another game"})
	}
	hub, err := s.hubFor(c.Request().Context(), id)
	if err != nil {
		return s.mapError(c, err)
	}
	hub.session.Mu.Lock()
	state := hub.session.GetCurrentObfuscatedGameState()
	hub.session.Mu.Unlock()
	if s.store != nil {
		s.releaseIfIdle(hub)
	}
	return c.JSON(http.StatusOK, state)
}

// serveWS upgrades to a websocket bound to the token's session. The client
// gets a sync_state first, then every event of the session; each text
// message it sends is decoded as a game.Action.
func (s *Server) serveWS(c echo.Context) error {
	sid, _, err := s.verify(c)
	if err != nil {
		return s.mapError(c, err)
	}
	ctx := c.Request().Context()
	hub, err := s.hubFor(ctx, sid)
	if err != nil {
		return s.mapError(c, err)
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), s.acceptOptions())
	if err != nil {
		s.log.WithError(err).Debug("server: websocket upgrade failed")
		return nil
	}
	log := s.log.WithFields(logrus.Fields{"game": sid, "request_id": c.Get("request_id")})
	client := newClient(conn, log)
	hub = s.registry.attach(hub, client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.writePump(ctx)
	}()

	hub.session.Mu.Lock()
	state := hub.session.GetCurrentObfuscatedGameState()
	hub.session.Mu.Unlock()
	hub.sendTo(client, game.GameEvent{Type: game.EventSyncState, State: &state})
	log.Debug("server: client connected")

	s.readLoop(ctx, hub, client)

	release := s.store != nil || hub.finished()
	s.registry.detach(hub, client, release)
	<-done
	log.Debug("server: client disconnected")
	return nil
}

// releaseIfIdle drops a persisted session nobody is connected to. The store
// holds the round until a client asks for it again.
func (s *Server) releaseIfIdle(h *Hub) {
	if s.registry.release(h) {
		s.log.WithField("game", h.ID()).Debug("server: released idle session")
	}
}

// readLoop applies client actions until the connection closes.
func (s *Server) readLoop(ctx context.Context, hub *Hub, client *Client) {
	for {
		typ, data, err := client.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				client.log.WithError(err).Debug("server: websocket read failed")
			}
			return
		}
		if typ != websocket.MessageText {
			hub.sendTo(client, game.GameEvent{Type: game.EventError, Reason: "expected a text message"})
			continue
		}
		var a game.Action
		if err := json.Unmarshal(data, &a); err != nil {
			hub.sendTo(client, game.GameEvent{Type: game.EventError, Reason: "malformed action: " + err.Error()})
			continue
		}
		if _, err := hub.session.HandleAction(ctx, a); err != nil {
			hub.sendTo(client, game.GameEvent{Type: game.EventError, Reason: err.Error()})
		}
	}
}
