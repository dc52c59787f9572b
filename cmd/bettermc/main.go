package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lolostheman/bettermc/internal/api"
	"github.com/lolostheman/bettermc/internal/auth"
	"github.com/lolostheman/bettermc/internal/config"
	"github.com/lolostheman/bettermc/internal/db"
	"github.com/lolostheman/bettermc/internal/docker"
	"github.com/lolostheman/bettermc/internal/game"
	"github.com/lolostheman/bettermc/internal/journal"
	"github.com/lolostheman/bettermc/internal/monitor"
	"github.com/lolostheman/bettermc/internal/rcon"
	"github.com/lolostheman/bettermc/internal/reset"
	"github.com/lolostheman/bettermc/internal/server"
	"github.com/lolostheman/bettermc/internal/store"
	"github.com/lolostheman/bettermc/internal/tail"
	"github.com/lolostheman/bettermc/internal/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := db.Migrate(database); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	authSvc := auth.NewService(database)
	if err := authSvc.EnsureDefaultUser(cfg.DefaultUser, cfg.DefaultPass); err != nil {
		log.Fatalf("failed to ensure default user: %v", err)
	}

	dockerClient, err := docker.NewClient()
	if err != nil {
		log.Fatalf("failed to create docker client: %v", err)
	}
	defer dockerClient.Close()

	playerStore := store.New(cfg.PlayersPath)
	counts, err := playerStore.Load()
	if err != nil {
		log.Fatalf("failed to load player store: %v", err)
	}
	log.Printf("loaded %d players from %s", len(counts), cfg.PlayersPath)

	j, err := journal.New(database)
	if err != nil {
		log.Fatalf("failed to open journal: %v", err)
	}

	session := rcon.NewSession(cfg.RCONHost, cfg.RCONPort, cfg.RCONPassword)
	session.MaxAttempts = cfg.RCONMaxAttempts
	defer session.Close()

	resetSvc := reset.NewService(dockerClient, playerStore, cfg.ContainerName, cfg.WorldDir, cfg.DataDir)

	state := game.NewServerState(counts, cfg.Multiplier)
	engine := game.NewEngine(state, session, playerStore, resetSvc, j, cfg.Multiplier, cfg.SmiteTarget)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := monitor.New(dockerClient, cfg.ContainerName)
	mon.Start(ctx)

	hub := api.NewHub()
	pipeline := watch.New(tail.New(cfg.LogPath), engine, hub)
	go pipeline.Run(ctx)

	srv := server.New(authSvc, engine, mon, j, hub)
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("bettermc listening on %s, tailing %s", cfg.ListenAddr, cfg.LogPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
