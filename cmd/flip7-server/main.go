package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/lox/flip7odds/internal/deck"
	"github.com/lox/flip7odds/internal/odds"
	"github.com/lox/flip7odds/internal/roundlog"
	"github.com/lox/flip7odds/internal/server"
	"github.com/lox/flip7odds/internal/store"
)

var CLI struct {
	Config   string `short:"c" default:"flip7-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Listen address as host:port (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Deck     string `short:"d" help:"Deck composition YAML (overrides config)" type:"path"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// A local .env can provide DATABASE_URL
	_ = godotenv.Load()

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Deck != "" {
		cfg.Deck = &server.DeckSettings{Composition: CLI.Deck}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	addr := cfg.Addr()
	if CLI.Addr != "" {
		addr = CLI.Addr
	}

	// Setup logging
	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	comp := deck.Standard()
	if path := cfg.DeckPath(); path != "" {
		comp, err = deck.LoadCompositionFile(path)
		if err != nil {
			logger.Error("Failed to load deck composition", "path", path, "error", err)
			ctx.Exit(1)
		}
		logger.Info("Loaded deck composition", "path", path, "cards", comp.Total())
	}

	engine, err := odds.NewEngine(comp)
	if err != nil {
		logger.Error("Failed to create engine", "error", err)
		ctx.Exit(1)
	}

	recorder := roundlog.NewRecorder(logger, roundlog.Config{
		BaseDir:       cfg.History.Dir,
		FlushInterval: cfg.FlushInterval(),
		FlushEntries:  cfg.History.FlushEntries,
	})

	var db *store.DB
	if dsn := cfg.DatabaseURL(); dsn != "" {
		db, err = store.Open(dsn)
		if err != nil {
			logger.Error("Failed to open store", "error", err)
			ctx.Exit(1)
		}
		migrateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.Migrate(migrateCtx, db); err != nil {
			cancel()
			logger.Error("Failed to migrate store", "error", err)
			ctx.Exit(1)
		}
		cancel()
		logger.Info("Evaluation store enabled")
	}

	logger.Info("Starting Flip 7 odds server",
		"addr", addr,
		"deck", comp.Total(),
		"history", cfg.History.Dir,
		"store", db != nil)

	srv, err := server.New(logger, server.Options{
		Addr:     addr,
		Engine:   engine,
		Recorder: recorder,
		Store:    db,
	})
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		ctx.Exit(1)
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}

		recorder.Shutdown()
		if db != nil {
			db.Close(shutdownCtx)
		}
		os.Exit(0)
	}()

	// Start server (this blocks)
	if err := srv.Start(); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}
