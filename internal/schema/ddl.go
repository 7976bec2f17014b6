package schema

import (
	"fmt"
	"strings"
)

// The generator is pure string assembly: identical descriptors always
// produce identical SQL. The differ and the migration recorder both rely
// on that determinism.

func quoteIdent(name string) string {
	return fmt.Sprintf("`%s`", strings.ReplaceAll(name, "`", "``"))
}

func quoteValue(value string) string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(value, "'", "''"))
}

// ColumnType maps a declared column to its MySQL column type. Enum columns
// render inline with every declared value quoted.
func ColumnType(c Column) string {
	switch c.Type {
	case TypeString:
		return "varchar(255)"
	case TypeText:
		return "text"
	case TypeInteger:
		return "int"
	case TypeDecimal:
		return "decimal(12,2)"
	case TypeBoolean:
		return "tinyint(1)"
	case TypeDate:
		return "date"
	case TypeTimestamp:
		return "timestamp"
	case TypeEnum:
		values := make([]string, 0, len(c.EnumValues))
		for _, v := range c.EnumValues {
			values = append(values, quoteValue(v))
		}
		return fmt.Sprintf("enum(%s)", strings.Join(values, ","))
	default:
		return "varchar(255)"
	}
}

// DefaultClause renders the default portion of a column definition. A nil
// default becomes an explicit DEFAULT NULL so live columns always carry a
// comparable default; bools map to the 0/1 the database stores.
func DefaultClause(c Column) string {
	var clause string
	switch v := c.Default.(type) {
	case nil:
		clause = "DEFAULT NULL"
	case currentTimestampSentinel:
		clause = "DEFAULT CURRENT_TIMESTAMP"
	case bool:
		if v {
			clause = "DEFAULT 1"
		} else {
			clause = "DEFAULT 0"
		}
	default:
		clause = fmt.Sprintf("DEFAULT %s", quoteValue(fmt.Sprintf("%v", v)))
	}
	if c.OnUpdateTimestamp {
		clause += " ON UPDATE CURRENT_TIMESTAMP"
	}
	return clause
}

// ColumnDefinition renders the definition used by CREATE TABLE, ADD COLUMN
// and MODIFY COLUMN alike.
func ColumnDefinition(c Column) string {
	return fmt.Sprintf("%s %s %s", quoteIdent(c.Name), ColumnType(c), DefaultClause(c))
}

// CreateTableSQL renders the CREATE TABLE statement for a model with the
// id primary key first, whether or not the model declares it.
func CreateTableSQL(m Model) string {
	defs := []string{fmt.Sprintf("%s int NOT NULL AUTO_INCREMENT PRIMARY KEY", quoteIdent("id"))}
	for _, c := range m.Columns {
		if c.Name == "id" {
			continue
		}
		defs = append(defs, ColumnDefinition(c))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n) ENGINE=InnoDB", quoteIdent(m.Table), strings.Join(defs, ",\n\t"))
}

func AddColumnSQL(table string, c Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(table), ColumnDefinition(c))
}

func ModifyColumnSQL(table string, c Column) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", quoteIdent(table), ColumnDefinition(c))
}

func DropColumnSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quoteIdent(table), quoteIdent(column))
}

// RestoreColumnSQL is the down statement for a dropped column. The dropped
// type is not recoverable from the recorded change, so restored columns
// come back as varchar(255). Known lossy.
func RestoreColumnSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s varchar(255) DEFAULT NULL", quoteIdent(table), quoteIdent(column))
}

func AddUniqueSQL(table, column string) string {
	name := fmt.Sprintf("%s_%s_unique", table, column)
	return fmt.Sprintf("ALTER TABLE %s ADD UNIQUE INDEX %s (%s)", quoteIdent(table), quoteIdent(name), quoteIdent(column))
}

func AddIndexSQL(table, column string) string {
	name := fmt.Sprintf("%s_%s_idx", table, column)
	return fmt.Sprintf("ALTER TABLE %s ADD INDEX %s (%s)", quoteIdent(table), quoteIdent(name), quoteIdent(column))
}
