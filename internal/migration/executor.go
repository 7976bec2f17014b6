package migration

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Executor replays recorded groups. A replay runs every statement of the
// chosen direction inside one transaction and rolls the transaction back
// on the first failure. The group row itself is never modified by a
// replay, so the same group can be applied and rolled back repeatedly;
// re-applying an already-applied group fails at the database level.
type Executor struct {
	db       *sql.DB
	activity ActivityLog
}

func NewExecutor(db *sql.DB, activity ActivityLog) *Executor {
	return &Executor{db: db, activity: activity}
}

// CreateGroup records a hand-written group for later replay. An empty
// name gets a generated one.
func (e *Executor) CreateGroup(ctx context.Context, name string, upQueries, downQueries []string) (*Group, error) {
	if name == "" {
		name = "manual-" + uuid.NewString()
	}
	up, err := marshalQueries(upQueries)
	if err != nil {
		return nil, fmt.Errorf("encode up queries: %w", err)
	}
	down, err := marshalQueries(downQueries)
	if err != nil {
		return nil, fmt.Errorf("encode down queries: %w", err)
	}
	id, err := createGroup(ctx, e.db, name, up, down)
	if err != nil {
		return nil, err
	}
	e.activity.Info(ctx, "create_group", "migration",
		fmt.Sprintf("created %s: %d up, %d down", name, len(upQueries), len(downQueries)), id)
	return GetGroup(ctx, e.db, id)
}

// ExecuteGroup replays group id in the given direction.
func (e *Executor) ExecuteGroup(ctx context.Context, id int64, direction Direction) error {
	if direction != DirectionApply && direction != DirectionRollback {
		e.activity.Error(ctx, "execute_group", "migration",
			fmt.Sprintf("group %d: direction %q", id, direction), id)
		return ErrInvalidDirection
	}

	g, err := GetGroup(ctx, e.db, id)
	if err != nil {
		e.activity.Error(ctx, "execute_group", "migration",
			fmt.Sprintf("group %d: %v", id, err), id)
		return err
	}

	queries := g.UpQueries
	if direction == DirectionRollback {
		queries = g.DownQueries
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replay of group %d: %w", id, err)
	}
	for _, q := range queries {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			e.activity.Error(ctx, "execute_group", "migration",
				fmt.Sprintf("%s %s failed on %q: %v", direction, g.Name, q, err), id)
			return fmt.Errorf("%s group %d: %w", direction, id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replay of group %d: %w", id, err)
	}

	e.activity.Info(ctx, "execute_group", "migration",
		fmt.Sprintf("%s %s: %d statements", direction, g.Name, len(queries)), id)
	return nil
}
