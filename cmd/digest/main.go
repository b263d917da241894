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
	"github.com/brandon/mail-assistant/internal/report"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
	configPath  = flag.String("config", ".env", "Path to the dotenv settings file")
	dryRun      = flag.Bool("dry-run", false, "Only fetch and print; never mark read or move")
	snippetLen  = flag.Int("snippet", 200, "Maximum preview length per message")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("mail-assistant-digest version %s\n", version)
		os.Exit(0)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	settings, err := config.NewProvider(*configPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	cfg := settings.Current()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var runJournal email.Journal
	if cfg.JournalPath != "" && !*dryRun {
		j, err := journal.Open(cfg.JournalPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize journal")
		}
		defer j.Close()
		runJournal = j
	}

	manager := email.NewManager(settings, runJournal, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, manager); err != nil {
		logger.WithError(err).Error("Digest failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, manager *email.Manager) error {
	if *dryRun {
		records, err := manager.Fetch(ctx, email.PolicyOverrides{})
		if err != nil {
			return err
		}
		return report.WriteRecords(os.Stdout, records, *snippetLen)
	}

	batch, err := manager.Process(ctx, nil)
	if batch != nil {
		if writeErr := report.WriteBatch(os.Stdout, batch, *snippetLen); writeErr != nil && err == nil {
			err = writeErr
		}
	}
	return err
}
