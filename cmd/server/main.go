// @title                       Direct Chat API
// @version                     1.0
// @description                 One-to-one chat with presence, typing indicators and read receipts.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "github.com/directchat/chat-server/docs"
	"github.com/directchat/chat-server/internal/api"
	"github.com/directchat/chat-server/internal/api/handler"
	"github.com/directchat/chat-server/internal/api/ws"
	"github.com/directchat/chat-server/internal/core/service"
	"github.com/directchat/chat-server/internal/infrastructure/db/memory"
	"github.com/directchat/chat-server/internal/infrastructure/db/mongo"
	"github.com/directchat/chat-server/internal/infrastructure/db/redis"
	"github.com/directchat/chat-server/internal/pkg/config"
	"github.com/directchat/chat-server/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadContext(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "chat-server",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := api.Deps{
		JWTSecret:  cfg.JWTSecret,
		Logger:     log,
		RequestLog: true,
		Ready:      map[string]handler.Pinger{},
		WS: ws.Options{
			AllowedOrigins:  cfg.WS.AllowedOrigins,
			SendQueue:       cfg.WS.SendQueue,
			MaxMessageBytes: cfg.WS.MaxMessageBytes,
			PingInterval:    cfg.WS.PingInterval,
			PongWait:        cfg.WS.PongWait,
			WriteWait:       cfg.WS.WriteWait,
			EventsPerSecond: cfg.WS.EventsPerSecond,
			EventBurst:      cfg.WS.EventBurst,
		},
	}

	// --- Store ---
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		deps.Users = memory.NewUserStore()
		deps.Messages = memory.NewMessageStore()

	default:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			_ = client.Disconnect(context.Background())
		}()

		stores := mongo.NewStores(db)
		if err := stores.EnsureIndexes(ctx); err != nil {
			return err
		}
		deps.Users = stores.Users
		deps.Messages = stores.Messages
		deps.Ready["mongodb"] = handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		})
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")
	}

	// --- Send dedup (optional) ---
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, clientId dedup disabled")
		} else {
			defer func() { _ = rdb.Close() }()
			deps.Dedup = redis.NewSendDedup(rdb, cfg.Redis.DedupTTL)
			deps.Ready["redis"] = redisPinger(rdb)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
		}
	}

	deps.Auth = service.NewAuthService(deps.Users, cfg.JWTSecret, cfg.TokenTTL)
	srv := api.NewRouter(deps)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Echo,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Str("store", cfg.StoreDriver).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		// Hijacked WebSocket connections are not tracked by Shutdown. Their
		// offline writes must finish before the deferred store teardown.
		return srv.Sessions.Drain(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("stopped cleanly")
	return nil
}

func redisPinger(rdb *goredis.Client) handler.Pinger {
	return handler.PingFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
}
