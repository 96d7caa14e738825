package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// The statements below are valid for both MySQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		min_price DECIMAL(12,2),
		views_count INT NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS negotiation_sessions (
		id CHAR(26) PRIMARY KEY,
		product_id VARCHAR(64) NOT NULL,
		user_id VARCHAR(128) NOT NULL,
		created_at DATETIME NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS negotiation_turns (
		id CHAR(26) PRIMARY KEY,
		session_id CHAR(26) NOT NULL,
		sender VARCHAR(10) NOT NULL,
		message TEXT,
		proposed_price DECIMAL(12,2),
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES negotiation_sessions(id)
	)`,
	`CREATE TABLE IF NOT EXISTS training_records (
		id CHAR(26) PRIMARY KEY,
		product_id VARCHAR(64) NOT NULL,
		product_price DECIMAL(12,2) NOT NULL,
		product_min_price DECIMAL(12,2) NOT NULL,
		proposed_price DECIMAL(12,2) NOT NULL,
		user_message TEXT NOT NULL,
		agent_message TEXT NOT NULL,
		accepted BOOLEAN NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX idx_sessions_product_user ON negotiation_sessions (product_id, user_id, active)`,
	`CREATE INDEX idx_turns_session_created ON negotiation_turns (session_id, created_at)`,
}

// Migrate creates the tables and indexes. Running it again is a no-op.
func Migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			// MySQL has no CREATE INDEX IF NOT EXISTS, so an existing index surfaces as an error.
			if isAlreadyExists(err) {
				logger.Debug("skipping existing schema object", zap.String("query", head(q)), zap.Error(err))
				continue
			}
			return fmt.Errorf("execute %q: %w", head(q), err)
		}
		logger.Debug("executed schema statement", zap.String("query", head(q)))
	}
	logger.Info("migration completed", zap.Int("statements", len(schema)))
	return nil
}

func isAlreadyExists(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key name") ||
		strings.Contains(msg, "Duplicate column name") ||
		strings.Contains(msg, "already exists")
}

func head(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if len(q) > 48 {
		return q[:48] + "..."
	}
	return q
}
