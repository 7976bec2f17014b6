package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// Recorder persists an applied change-set as a replayable migration group.
type Recorder interface {
	Record(ctx context.Context, m Model, cs ChangeSet) error
}

// ActivityLog receives one entry per structural change and per failure.
// How entries are stored or displayed is not this package's concern.
type ActivityLog interface {
	Info(ctx context.Context, operation, category, detail string, subjectID int64)
	Error(ctx context.Context, operation, category, detail string, subjectID int64)
}

// Summary totals one SyncAll run, for the startup log and metrics.
type Summary struct {
	TablesCreated  int
	ColumnsAdded   int
	ColumnsUpdated int
	ColumnsRemoved int
	GroupsRecorded int
}

// Synchronizer reconciles declared models with the live schema. It is the
// only component that issues CREATE/ALTER/DROP directly; everything else
// goes through recorded migration replay.
type Synchronizer struct {
	db       *sql.DB
	insp     *Introspector
	recorder Recorder
	activity ActivityLog
}

func NewSynchronizer(db *sql.DB, recorder Recorder, activity ActivityLog) *Synchronizer {
	return &Synchronizer{
		db:       db,
		insp:     NewIntrospector(db),
		recorder: recorder,
		activity: activity,
	}
}

// SyncAll processes models one at a time, strictly in declaration order:
// later models may reference tables created by earlier passes. The first
// table whose pass fails aborts the run.
func (s *Synchronizer) SyncAll(ctx context.Context, models []Model) (Summary, error) {
	var sum Summary
	for _, m := range models {
		if err := s.syncTable(ctx, m, &sum); err != nil {
			return sum, fmt.Errorf("sync table %s: %w", m.Table, err)
		}
	}
	return sum, nil
}

// syncTable runs one table's full pass: introspect, diff, apply, record.
// Recording failures never undo applied structure; migrations are a history
// log, not a gate.
func (s *Synchronizer) syncTable(ctx context.Context, m Model, sum *Summary) error {
	applied, err := s.applyStructure(ctx, m, sum)
	if err != nil {
		return err
	}

	if err := s.recorder.Record(ctx, m, applied); err != nil {
		s.activity.Error(ctx, "record_group", "migration", fmt.Sprintf("table %s: %v", m.Table, err), 0)
		return nil
	}
	if !applied.Empty() {
		sum.GroupsRecorded++
	}
	return nil
}

func (s *Synchronizer) applyStructure(ctx context.Context, m Model, sum *Summary) (ChangeSet, error) {
	var applied ChangeSet

	exists, err := s.insp.TableExists(ctx, m.Table)
	if err != nil {
		s.activity.Error(ctx, "introspect_table", "schema", fmt.Sprintf("table %s: %v", m.Table, err), 0)
		return applied, err
	}

	if !exists {
		if _, err := s.db.ExecContext(ctx, CreateTableSQL(m)); err != nil {
			s.activity.Error(ctx, "create_table", "schema", fmt.Sprintf("table %s: %v", m.Table, err), 0)
			return applied, err
		}
		sum.TablesCreated++
		s.activity.Info(ctx, "create_table", "schema", fmt.Sprintf("created table %s", m.Table), 0)
		return applied, nil
	}

	live, err := s.insp.ListColumns(ctx, m.Table)
	if err != nil {
		s.activity.Error(ctx, "introspect_columns", "schema", fmt.Sprintf("table %s: %v", m.Table, err), 0)
		return applied, err
	}
	fks, err := s.insp.ListForeignKeyColumns(ctx, m.Table)
	if err != nil {
		s.activity.Error(ctx, "introspect_foreign_keys", "schema", fmt.Sprintf("table %s: %v", m.Table, err), 0)
		return applied, err
	}

	planned := Diff(m, live, fks)
	added := toSet(planned.Added)
	updated := toSet(planned.Updated)

	for _, c := range m.Columns {
		if c.Name == "id" {
			continue
		}
		s.applyConstraints(ctx, m.Table, c)

		switch {
		case added[c.Name]:
			if _, err := s.db.ExecContext(ctx, AddColumnSQL(m.Table, c)); err != nil {
				s.activity.Error(ctx, "add_column", "schema", fmt.Sprintf("%s.%s: %v", m.Table, c.Name, err), 0)
				return applied, err
			}
			applied.Added = append(applied.Added, c.Name)
			sum.ColumnsAdded++
			s.activity.Info(ctx, "add_column", "schema", fmt.Sprintf("added column %s.%s", m.Table, c.Name), 0)
		case updated[c.Name]:
			if _, err := s.db.ExecContext(ctx, ModifyColumnSQL(m.Table, c)); err != nil {
				s.activity.Error(ctx, "update_column", "schema", fmt.Sprintf("%s.%s: %v", m.Table, c.Name, err), 0)
				return applied, err
			}
			applied.Updated = append(applied.Updated, c.Name)
			sum.ColumnsUpdated++
			s.activity.Info(ctx, "update_column", "schema", fmt.Sprintf("updated column %s.%s", m.Table, c.Name), 0)
		}
	}

	for _, name := range planned.Removed {
		if _, err := s.db.ExecContext(ctx, DropColumnSQL(m.Table, name)); err != nil {
			// Best-effort cleanup: a failed drop must not abort the pass,
			// and an unapplied drop is not recorded.
			s.activity.Error(ctx, "drop_column", "schema", fmt.Sprintf("%s.%s: %v", m.Table, name, err), 0)
			continue
		}
		applied.Removed = append(applied.Removed, name)
		sum.ColumnsRemoved++
		s.activity.Info(ctx, "drop_column", "schema", fmt.Sprintf("dropped column %s.%s", m.Table, name), 0)
	}

	return applied, nil
}

// applyConstraints adds declared unique/index constraints. Constraint
// application is idempotent by convention: already-exists errors happen on
// every pass after the first and are swallowed. Unique takes precedence
// when a column sets both flags; no plain index is added alongside it.
func (s *Synchronizer) applyConstraints(ctx context.Context, table string, c Column) {
	if c.Unique {
		_, _ = s.db.ExecContext(ctx, AddUniqueSQL(table, c.Name))
	} else if c.Index {
		_, _ = s.db.ExecContext(ctx, AddIndexSQL(table, c.Name))
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
