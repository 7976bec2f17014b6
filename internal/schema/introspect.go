package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// IntrospectedColumn is one live column as reported by information_schema.
// Read fresh on every sync pass; never cached, since an earlier model's
// pass may have changed the schema already.
type IntrospectedColumn struct {
	Name    string
	SQLType string
	Default sql.NullString
	Extra   string
}

// Introspector answers structural questions about single tables in the
// connected database. All queries are read-only.
type Introspector struct {
	db *sql.DB
}

func NewIntrospector(db *sql.DB) *Introspector {
	return &Introspector{db: db}
}

func (in *Introspector) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := in.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_name = ?`, table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return count > 0, nil
}

func (in *Introspector) ListColumns(ctx context.Context, table string) ([]IntrospectedColumn, error) {
	rows, err := in.db.QueryContext(ctx, `
SELECT column_name, column_type, column_default, extra
FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = ?
ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	defer rows.Close()

	var out []IntrospectedColumn
	for rows.Next() {
		var c IntrospectedColumn
		if err := rows.Scan(&c.Name, &c.SQLType, &c.Default, &c.Extra); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListForeignKeyColumns returns the columns of a table that participate in
// a referential constraint. Those columns are never removed automatically.
func (in *Introspector) ListForeignKeyColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := in.db.QueryContext(ctx, `
SELECT column_name
FROM information_schema.key_column_usage
WHERE table_schema = DATABASE() AND table_name = ? AND referenced_table_name IS NOT NULL`, table)
	if err != nil {
		return nil, fmt.Errorf("list foreign key columns of %s: %w", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan foreign key column of %s: %w", table, err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
