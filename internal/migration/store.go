package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// The two control tables below are owned by this subsystem. Recorded rows
// are never updated after finalization and never deleted here; retention
// is an external policy.

// EnsureTables creates the migration control tables when missing. Called
// once at startup, before the first sync pass.
func EnsureTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS migration_groups (
	id int NOT NULL AUTO_INCREMENT PRIMARY KEY,
	name varchar(255) NOT NULL,
	up text,
	down text,
	created_at timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB;`, `
CREATE TABLE IF NOT EXISTS migrations (
	id int NOT NULL AUTO_INCREMENT PRIMARY KEY,
	name varchar(255) NOT NULL,
	table_name varchar(255) NOT NULL,
	column_name varchar(255) NOT NULL,
	operation varchar(16) NOT NULL,
	up text,
	down text,
	migration_group_id int NOT NULL,
	created_at timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	INDEX migrations_group_idx (migration_group_id)
) ENGINE=InnoDB;`}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure migration tables: %w", err)
		}
	}
	return nil
}

func createGroup(ctx context.Context, db *sql.DB, name, up, down string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO migration_groups (name, up, down) VALUES (?, ?, ?)`,
		name, up, down)
	if err != nil {
		return 0, fmt.Errorf("insert migration group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("migration group id: %w", err)
	}
	return id, nil
}

// updateGroupQueries finalizes a group with its assembled statement lists.
// This is the only write a group row ever sees after insertion.
func updateGroupQueries(ctx context.Context, db *sql.DB, id int64, up, down string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE migration_groups SET up = ?, down = ? WHERE id = ?`,
		up, down, id)
	if err != nil {
		return fmt.Errorf("update migration group %d: %w", id, err)
	}
	return nil
}

func createEntry(ctx context.Context, db *sql.DB, name, table, column string, op Operation, up, down string, groupID int64) (int64, error) {
	res, err := db.ExecContext(ctx, `
INSERT INTO migrations (name, table_name, column_name, operation, up, down, migration_group_id)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, table, column, string(op), up, down, groupID)
	if err != nil {
		return 0, fmt.Errorf("insert migration entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("migration entry id: %w", err)
	}
	return id, nil
}

// GetGroup loads one recorded group with its statement lists deserialized.
func GetGroup(ctx context.Context, db *sql.DB, id int64) (*Group, error) {
	var (
		g        Group
		up, down sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, name, up, down, created_at FROM migration_groups WHERE id = ?`,
		id).Scan(&g.ID, &g.Name, &up, &down, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("get migration group %d: %w", id, err)
	}
	if g.UpQueries, err = unmarshalQueries(up); err != nil {
		return nil, fmt.Errorf("decode up queries of group %d: %w", id, err)
	}
	if g.DownQueries, err = unmarshalQueries(down); err != nil {
		return nil, fmt.Errorf("decode down queries of group %d: %w", id, err)
	}
	return &g, nil
}

// ListGroups returns recorded groups, newest first.
func ListGroups(ctx context.Context, db *sql.DB, limit int) ([]Group, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, up, down, created_at FROM migration_groups ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list migration groups: %w", err)
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var (
			g        Group
			up, down sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.Name, &up, &down, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan migration group: %w", err)
		}
		if g.UpQueries, err = unmarshalQueries(up); err != nil {
			return nil, fmt.Errorf("decode up queries of group %d: %w", g.ID, err)
		}
		if g.DownQueries, err = unmarshalQueries(down); err != nil {
			return nil, fmt.Errorf("decode down queries of group %d: %w", g.ID, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListEntries returns a group's column-level entries in recording order.
func ListEntries(ctx context.Context, db *sql.DB, groupID int64) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, name, table_name, column_name, operation, up, down, migration_group_id, created_at, updated_at
FROM migrations
WHERE migration_group_id = ?
ORDER BY id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list migration entries of group %d: %w", groupID, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			op       string
			up, down sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.TableName, &e.ColumnName, &op, &up, &down, &e.GroupID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan migration entry: %w", err)
		}
		e.Operation = Operation(op)
		e.Up = up.String
		e.Down = down.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalQueries(queries []string) (string, error) {
	if queries == nil {
		queries = []string{}
	}
	b, err := json.Marshal(queries)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalQueries(raw sql.NullString) ([]string, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}
