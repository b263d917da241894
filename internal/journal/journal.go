package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Journal is the SQLite processing journal
type Journal struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// Open creates or opens the journal database at dbPath
func Open(dbPath string, logger *logrus.Logger) (*Journal, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// All writes go through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.WithField("path", dbPath).Info("Journal initialized")
	return &Journal{db: db, logger: logger}, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
