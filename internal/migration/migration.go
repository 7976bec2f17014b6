package migration

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrGroupNotFound    = errors.New("migration group not found")
	ErrInvalidDirection = errors.New("invalid migration direction")
)

// Direction selects which side of a recorded group the executor replays.
type Direction string

const (
	DirectionApply    Direction = "APPLY"
	DirectionRollback Direction = "ROLLBACK"
)

// ParseDirection accepts the two recognized directions, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case DirectionApply:
		return DirectionApply, nil
	case DirectionRollback:
		return DirectionRollback, nil
	default:
		return "", ErrInvalidDirection
	}
}

// Operation tags an entry as a column addition or removal. Updated columns
// never produce entries.
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationDelete Operation = "DELETE"
)

// Group bundles one sync pass's structural changes to one table as forward
// and reverse statement lists. DownQueries always mirrors UpQueries in
// exact reverse order. Rows are append-only: nothing in this subsystem
// mutates or deletes them after recording.
type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	UpQueries   []string  `json:"up_queries"`
	DownQueries []string  `json:"down_queries"`
	CreatedAt   time.Time `json:"created_at"`
}

// Entry is a single column-level change within a group.
type Entry struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	TableName  string    `json:"table_name"`
	ColumnName string    `json:"column_name"`
	Operation  Operation `json:"operation"`
	Up         string    `json:"up"`
	Down       string    `json:"down"`
	GroupID    int64     `json:"migration_group_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ActivityLog is the logging surface the recorder and executor report
// through.
type ActivityLog interface {
	Info(ctx context.Context, operation, category, detail string, subjectID int64)
	Error(ctx context.Context, operation, category, detail string, subjectID int64)
}
