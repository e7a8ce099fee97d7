package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/gophnotes/internal/server"
	"github.com/iudanet/gophnotes/internal/server/storage/memory"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", "localhost:8080", "Address to listen on")
	token := flag.String("token", os.Getenv("GOPHNOTES_TOKEN"), "Bearer token required from clients (empty disables auth)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("GophNotes relay starting", "version", Version)

	srv := server.New(server.Config{Addr: *addr, Token: *token}, logger, memory.New())
	if err := srv.Run(ctx); err != nil {
		logger.Error("Relay stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Relay stopped")
}

func printVersion() {
	fmt.Printf("GophNotes Relay\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
