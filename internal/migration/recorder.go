package migration

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"finbook/internal/schema"
)

// Recorder turns an applied change set into a migration group plus one
// entry per structural column change. Updated columns are counted in the
// group but produce no entries and no replayable statements.
type Recorder struct {
	db       *sql.DB
	activity ActivityLog
}

func NewRecorder(db *sql.DB, activity ActivityLog) *Recorder {
	return &Recorder{db: db, activity: activity}
}

// Record persists cs for the given model. The down list is built in
// reverse order of the up list so a rollback undoes statements
// last-applied-first. Recording failures are reported by the caller, not
// here; a failed Record never undoes applied DDL.
func (r *Recorder) Record(ctx context.Context, m schema.Model, cs schema.ChangeSet) error {
	if cs.Empty() {
		return nil
	}

	name := fmt.Sprintf("%s-%s", m.Table, uuid.NewString())
	groupID, err := createGroup(ctx, r.db, name, "[]", "[]")
	if err != nil {
		return err
	}

	var upQueries, downQueries []string

	for _, columnName := range cs.Added {
		c, ok := m.Column(columnName)
		if !ok {
			continue
		}
		up := schema.AddColumnSQL(m.Table, c)
		down := schema.DropColumnSQL(m.Table, columnName)
		upQueries = append(upQueries, up)
		downQueries = append([]string{down}, downQueries...)
		entryName := fmt.Sprintf("add_%s_to_%s", columnName, m.Table)
		r.insertEntry(ctx, entryName, m.Table, columnName, OperationCreate, up, down, groupID)
	}

	for _, columnName := range cs.Removed {
		up := schema.DropColumnSQL(m.Table, columnName)
		down := schema.RestoreColumnSQL(m.Table, columnName)
		upQueries = append(upQueries, up)
		downQueries = append([]string{down}, downQueries...)
		entryName := fmt.Sprintf("drop_%s_from_%s", columnName, m.Table)
		r.insertEntry(ctx, entryName, m.Table, columnName, OperationDelete, up, down, groupID)
	}

	up, err := marshalQueries(upQueries)
	if err != nil {
		return fmt.Errorf("encode up queries: %w", err)
	}
	down, err := marshalQueries(downQueries)
	if err != nil {
		return fmt.Errorf("encode down queries: %w", err)
	}
	if err := updateGroupQueries(ctx, r.db, groupID, up, down); err != nil {
		return err
	}

	r.activity.Info(ctx, "record_group", "migration",
		fmt.Sprintf("recorded %s: %d added, %d updated, %d removed", name, len(cs.Added), len(cs.Updated), len(cs.Removed)),
		groupID)
	return nil
}

// insertEntry is best effort. A lost entry row degrades the per-column
// audit trail but the group statement lists remain complete, so replay
// is unaffected.
func (r *Recorder) insertEntry(ctx context.Context, name, table, column string, op Operation, up, down string, groupID int64) {
	if _, err := createEntry(ctx, r.db, name, table, column, op, up, down, groupID); err != nil {
		r.activity.Error(ctx, "record_entry", "migration",
			fmt.Sprintf("entry %s: %v", name, err), groupID)
	}
}
