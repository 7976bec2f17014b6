package audit

import (
	"context"
	"database/sql"
	"fmt"
)

type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Log records operational events in the activity_log table and mirrors
// every event to the structured logger. The database write is best
// effort; a failed insert is reported through the logger and otherwise
// ignored so logging never breaks the operation being logged.
type Log struct {
	db     *sql.DB
	logger Logger
}

func NewLog(db *sql.DB, logger Logger) *Log {
	return &Log{db: db, logger: logger}
}

// EnsureTable creates the activity_log table when missing.
func (l *Log) EnsureTable(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS activity_log (
	id int NOT NULL AUTO_INCREMENT PRIMARY KEY,
	level varchar(16) NOT NULL,
	operation varchar(64) NOT NULL,
	category varchar(64) NOT NULL,
	detail text,
	subject_id int DEFAULT NULL,
	created_at timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB;`)
	if err != nil {
		return fmt.Errorf("ensure activity_log table: %w", err)
	}
	return nil
}

func (l *Log) Info(ctx context.Context, operation, category, detail string, subjectID int64) {
	l.record(ctx, "info", operation, category, detail, subjectID)
	l.logger.Info(detail, "operation", operation, "category", category)
}

func (l *Log) Error(ctx context.Context, operation, category, detail string, subjectID int64) {
	l.record(ctx, "error", operation, category, detail, subjectID)
	l.logger.Error(detail, "operation", operation, "category", category)
}

func (l *Log) record(ctx context.Context, level, operation, category, detail string, subjectID int64) {
	subject := sql.NullInt64{Int64: subjectID, Valid: subjectID > 0}
	_, err := l.db.ExecContext(ctx, `
INSERT INTO activity_log (level, operation, category, detail, subject_id)
VALUES (?, ?, ?, ?, ?)`,
		level, operation, category, detail, subject)
	if err != nil {
		l.logger.Error("activity log insert failed", "operation", operation, "error", err)
	}
}
