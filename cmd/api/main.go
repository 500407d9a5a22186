package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"voice-broker/internal/auth"
	"voice-broker/internal/calls"
	"voice-broker/internal/channels"
	"voice-broker/internal/config"
	"voice-broker/internal/conversations"
	"voice-broker/internal/httpapi"
	"voice-broker/internal/identity"
	"voice-broker/internal/roomservice"
	"voice-broker/internal/session"
	"voice-broker/internal/store"
	"voice-broker/pkg/logger"
	"voice-broker/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.DB.Driver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			log.Error("sqlite data dir init failed", "path", cfg.DB.Path, "err", err)
			os.Exit(1)
		}
	}

	db, err := utils.OpenDB(rootCtx, cfg.SQLDriverName(), cfg.DSN(), utils.DBPoolConfig{})
	if err != nil {
		log.Error("database init failed", "driver", cfg.DB.Driver, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	st := store.New(db, cfg.SQLDriverName())
	if cfg.DB.AutoMigrate || cfg.DB.Driver == config.DriverSQLite {
		if err := st.Migrate(rootCtx); err != nil {
			log.Error("migration failed", "err", err)
			os.Exit(1)
		}
	}

	if cfg.Seed.ChannelsFile != "" {
		f, err := channels.LoadSeedFile(cfg.Seed.ChannelsFile)
		if err != nil {
			log.Error("channel seed load failed", "err", err)
			os.Exit(1)
		}
		if _, err := channels.Seed(rootCtx, st, f, log); err != nil {
			log.Error("channel seed failed", "err", err)
			os.Exit(1)
		}
	}

	var trackerOpts []calls.Option
	var slots session.SlotLimiter
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()

		trackerOpts = append(trackerOpts, calls.WithPublisher(calls.NewRedisPublisher(rdb)))
		if cfg.Calls.MaxPerChannel > 0 {
			slots = session.NewRedisSlots(rdb, cfg.Calls.MaxPerChannel, cfg.Calls.CapTTL)
		}
	} else {
		log.Info("redis disabled; status publishing and call caps off")
	}

	tracker := calls.NewTracker(st, st, trackerOpts...)
	broker, err := session.NewBroker(session.Deps{
		Channels:      st,
		Identities:    identity.NewResolver(st),
		Conversations: conversations.NewOpener(st),
		Tracker:       tracker,
		Issuer:        auth.NewIssuer(),
		Rooms:         roomservice.NewHTTPClient(cfg.RoomService.Timeout),
		Slots:         slots,
	}, cfg.RoomService)
	if err != nil {
		log.Error("broker init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, httpapi.Handlers{
		Broker:      broker,
		Status:      tracker,
		FrontendURL: cfg.Widget.FrontendURL,
	}, st)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Join waits on the room service; leave headroom over its timeout.
		WriteTimeout: cfg.RoomService.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "db_driver", cfg.DB.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
