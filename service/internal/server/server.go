// Package server exposes play sessions over HTTP and websockets.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/groupsolitaire/engine"
	"github.com/jason-s-yu/groupsolitaire/engine/deck"
	"github.com/jason-s-yu/groupsolitaire/service/internal/auth"
	"github.com/jason-s-yu/groupsolitaire/service/internal/game"
	"github.com/jason-s-yu/groupsolitaire/service/internal/save"
)

// Options configures a Server.
type Options struct {
	Manager *deck.Manager
	Signer  *auth.Signer
	// Store persists rounds and settings; nil keeps rounds in memory only.
	Store             save.Store
	Logger            logrus.FieldLogger
	DefaultGroupCount int
	// OriginPatterns lists extra hosts allowed to open websockets.
	OriginPatterns []string
	// IdleTimeout drops sessions with no client for this long; 0 keeps them.
	IdleTimeout time.Duration
}

// Server routes requests to sessions.
type Server struct {
	echo     *echo.Echo
	manager  *deck.Manager
	signer   *auth.Signer
	store    save.Store
	registry *Registry
	log      logrus.FieldLogger

	defaultGroupCount int
	originPatterns    []string
	idleTimeout       time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds the server and registers its routes.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		echo:              echo.New(),
		manager:           opts.Manager,
		signer:            opts.Signer,
		store:             opts.Store,
		registry:          NewRegistry(log, nil),
		log:               log,
		defaultGroupCount: opts.DefaultGroupCount,
		originPatterns:    opts.OriginPatterns,
		idleTimeout:       opts.IdleTimeout,
		stop:              make(chan struct{}),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(requestIDMiddleware())
	s.echo.Use(loggingMiddleware(log))

	s.echo.GET("/healthz", s.healthz)
	s.echo.POST("/api/games", s.createGame)
	s.echo.GET("/api/games/:id", s.getGame)
	s.echo.GET("/ws", s.serveWS)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Registry returns the live sessions.
func (s *Server) Registry() *Registry { return s.registry }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("server: listening")
	if s.idleTimeout > 0 {
		go s.sweepIdle()
	}
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests, closes open websockets and waits for
// in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.registry.closeAll()
	return s.echo.Shutdown(ctx)
}

// sweepIdle drops abandoned sessions until Shutdown.
func (s *Server) sweepIdle() {
	ticker := time.NewTicker(max(s.idleTimeout/4, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.registry.Sweep(s.idleTimeout)
		}
	}
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

type errorResponse struct {
	Error string `json:"error"`
}

// verify checks the session token from the Authorization header or the
// token query parameter.
func (s *Server) verify(c echo.Context) (uuid.UUID, auth.Claims, error) {
	token := c.QueryParam("token")
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	claims, err := s.signer.Verify(token)
	if err != nil {
		return uuid.Nil, auth.Claims{}, err
	}
	id, err := claims.Session()
	return id, claims, err
}

// hubFor returns the live hub of id, loading the round from the store when
// it is not in memory.
func (s *Server) hubFor(ctx context.Context, id uuid.UUID) (*Hub, error) {
	if h, ok := s.registry.Get(id); ok {
		return h, nil
	}
	if s.store == nil {
		return nil, save.ErrNotFound
	}
	sess, err := game.LoadSession(ctx, s.store, id, game.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	return s.registry.adopt(sess), nil
}

// mapError turns service errors into HTTP responses.
func (s *Server) mapError(c echo.Context, err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		msg, _ := he.Message.(string)
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		return c.JSON(he.Code, errorResponse{Error: msg})
	case errors.Is(err, auth.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid session token"})
	case errors.Is(err, save.ErrNotFound), errors.Is(err, deck.ErrNoDeckDefinition):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, deck.ErrInsufficientGroups), errors.Is(err, errEmptyDeck):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, deck.ErrNoGroupsFound):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		requestID, _ := c.Get("request_id").(string)
		s.log.WithError(err).WithField("request_id", requestID).Error("server: internal error")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// acceptOptions returns the websocket upgrade options.
func (s *Server) acceptOptions() *websocket.AcceptOptions {
	return &websocket.AcceptOptions{OriginPatterns: s.originPatterns}
}

// playable rejects decks that cannot produce a round.
func playable(d engine.Deck) error {
	if d.GroupCount() == 0 {
		return errEmptyDeck
	}
	return nil
}
