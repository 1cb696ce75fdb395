package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"chathub/internal/cliagent"
	"chathub/internal/config"
	"chathub/internal/plugin"
	"chathub/internal/policy"
	"chathub/internal/scheduler"
	"chathub/internal/service"
	"chathub/internal/session"
	"chathub/internal/store"
	"chathub/internal/thread"
	handler "chathub/internal/transport/http"
	"chathub/internal/transport/ws"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := config.Load()

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.Infof("Starting chathub...")
	log.Infof("HTTP Port: %d", cfg.HTTPPort)
	log.Infof("Database: %s", cfg.DatabaseURL)
	log.Infof("CLI: %s (model %s)", cfg.CLIBin, cfg.DefaultModel)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize websocket hub
	hub := ws.NewHub(log.WithField("component", "ws"))
	go hub.Run()
	wsServer := ws.NewServer(hub, log.WithField("component", "ws"))

	// Initialize session pool over the CLI agent factory
	factory := cliagent.NewFactory(cfg, log.WithField("component", "cliagent"))
	pool := session.NewPool(session.Config{
		MaxSessions:   cfg.MaxSessions,
		TTL:           cfg.SessionTTL,
		SweepInterval: cfg.SweepInterval,
	}, factory, log.WithField("component", "pool"))
	pool.Start()

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize thread router
	router := thread.NewRouter(db, log.WithField("component", "router"))

	// Initialize plugin registry
	registry := plugin.NewRegistry(plugin.Builtins(), log.WithField("component", "plugins"))

	// Initialize service
	svc := service.New(db, router, pool, registry, policyEngine, hub, cfg, log.WithField("component", "service"))

	// Register plugins
	pluginCtx := &plugin.Context{
		Store:       db,
		Config:      cfg,
		Logger:      log.WithField("component", "plugins"),
		Broadcaster: hub,
		Sender:      svc,
	}
	if err := registry.Init(ctx, db, pluginCtx); err != nil {
		log.Fatalf("Failed to initialize plugins: %v", err)
	}

	// Initialize scheduler
	sched := scheduler.New(db, svc, log.WithField("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Initialize HTTP server
	h := handler.NewHandler(svc, db, registry, sched, wsServer, log.WithField("component", "http"))
	server := handler.NewServer(h)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Infof("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down chathub...")

	sched.Stop()
	registry.Stop()
	pool.Stop()
	pool.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Failed to shutdown server gracefully: %v", err)
	}

	log.Info("Chathub stopped")
}
