// Command server runs the group patience play service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/groupsolitaire/engine/deck"
	"github.com/jason-s-yu/groupsolitaire/service/internal/auth"
	"github.com/jason-s-yu/groupsolitaire/service/internal/config"
	"github.com/jason-s-yu/groupsolitaire/service/internal/save"
	redisstore "github.com/jason-s-yu/groupsolitaire/service/internal/save/redis"
	"github.com/jason-s-yu/groupsolitaire/service/internal/save/sqlite"
	"github.com/jason-s-yu/groupsolitaire/service/internal/server"
	"github.com/jason-s-yu/groupsolitaire/service/internal/source/embedded"
	"github.com/jason-s-yu/groupsolitaire/service/internal/source/postgres"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("server: exiting")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := openSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	signer, err := auth.NewSigner(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Manager:           deck.NewManager(src, deck.WithLogger(log.WithField("component", "deck"))),
		Signer:            signer,
		Store:             store,
		Logger:            log,
		DefaultGroupCount: cfg.DefaultGroupCount,
		IdleTimeout:       cfg.IdleTimeout,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("server: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openSource returns the configured definition source and its cleanup.
func openSource(ctx context.Context, cfg config.Config, log *logrus.Logger) (deck.Source, func(), error) {
	bundled := embedded.New()
	if cfg.Source == config.SourceEmbedded {
		log.Info("source: using bundled definitions")
		return bundled, func() {}, nil
	}

	pg, err := postgres.Connect(ctx, cfg.PostgresURL, log.WithField("source", "postgres"))
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	if cfg.PostgresImport {
		groups, err := pg.LoadGroups(ctx)
		if err != nil {
			pg.Close()
			return nil, nil, err
		}
		if len(groups) == 0 {
			ids, err := bundled.DeckIDs(ctx)
			if err == nil {
				err = pg.Import(ctx, bundled, ids)
			}
			if err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
	}
	return pg, pg.Close, nil
}

// openStore returns the configured save backend, or nil when saving is off.
func openStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (save.Store, error) {
	switch cfg.SaveBackend {
	case config.SaveRedis:
		store, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.SaveTTL, log.WithField("store", "redis"))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.SaveSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		log.Warn("store: saving disabled, rounds are lost on restart")
		return nil, nil
	}
}
