package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/ranktoken/internal/randutil"
	"github.com/lox/ranktoken/internal/server"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"ranktoken-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Address to bind to (overrides config)"`
	Port     int    `short:"p" long:"port" help:"Port to listen on (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	Seed     int64  `long:"seed" help:"Deterministic shuffle seed (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.Port != 0 {
		cfg.Server.Port = CLI.Port
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Seed != 0 {
		cfg.Match.Seed = CLI.Seed
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

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

	rng := randutil.NewAuto()
	if cfg.Match.Seed != 0 {
		rng = randutil.New(cfg.Match.Seed)
		logger.Warn("Using deterministic shuffle seed", "seed", cfg.Match.Seed)
	}

	host := server.NewHost(logger, rng, cfg.Match)
	wsServer := server.NewServer(cfg.ListenAddress(), host, logger)

	logger.Info("Starting rank token server",
		"addr", cfg.ListenAddress(),
		"match", host.MatchID(),
		"minPlayers", cfg.Match.MinPlayers,
		"maxPlayers", cfg.Match.MaxPlayers)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return host.Run(gctx)
	})
	g.Go(func() error {
		return wsServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		return wsServer.Stop()
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}
