package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-assistant/internal/config"
	"github.com/brandon/mail-assistant/internal/email"
	"github.com/brandon/mail-assistant/internal/journal"
	"github.com/brandon/mail-assistant/internal/mcp"
	"github.com/brandon/mail-assistant/internal/tools"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
	configPath  = flag.String("config", ".env", "Path to the dotenv settings file")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("mail-assistant-server version %s\n", version)
		os.Exit(0)
	}

	// Set up logging; stdout carries JSON-RPC
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	// Load configuration
	settings, err := config.NewProvider(*configPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	cfg := settings.Current()
	setLogLevel(logger, cfg.LogLevel)

	logger.WithField("addr", cfg.IMAP.Addr()).Info("Starting mail assistant server")

	deps := tools.Deps{Settings: settings}

	// Initialize journal
	var runJournal email.Journal
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize journal")
		}
		defer j.Close()
		runJournal = j
		deps.Runs = j
	}

	manager := email.NewManager(settings, runJournal, logger)
	deps.Mailer = manager

	settings.Watch(func(cfg *config.Config) {
		setLogLevel(logger, cfg.LogLevel)
	})

	server := mcp.NewServer(tools.NewRegistry(deps, logger), version, logger)

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Run server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(ctx)
	}()

	// Wait for shutdown signal, end of input or error
	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.WithError(err).Error("Server error")
		}
		cancel()
	}

	logger.Info("Shutting down mail assistant server")
}

func setLogLevel(logger *logrus.Logger, name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}
