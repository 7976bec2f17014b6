package schema

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// ChangeSet lists the column names one sync pass added, updated and
// removed for one table. It is consumed immediately by the migration
// recorder and never persisted itself.
type ChangeSet struct {
	Added   []string `json:"added"`
	Updated []string `json:"updated"`
	Removed []string `json:"removed"`
}

// Empty reports whether the pass changed nothing.
func (cs ChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Updated) == 0 && len(cs.Removed) == 0
}

// Diff compares declared columns against the live table. A column is
// removed only when it is absent from the declaration, is not id, and does
// not participate in a foreign-key constraint the synchronizer did not
// create. Cosmetic differences in the SQL type text never count as drift;
// only enum sets, normalized defaults and the on-update trigger do.
func Diff(m Model, live []IntrospectedColumn, fkColumns []string) ChangeSet {
	liveByName := make(map[string]IntrospectedColumn, len(live))
	for _, c := range live {
		liveByName[c.Name] = c
	}
	fks := make(map[string]bool, len(fkColumns))
	for _, name := range fkColumns {
		fks[name] = true
	}

	var cs ChangeSet
	declared := make(map[string]bool, len(m.Columns))
	for _, c := range m.Columns {
		if c.Name == "id" {
			continue
		}
		declared[c.Name] = true
		liveCol, ok := liveByName[c.Name]
		if !ok {
			cs.Added = append(cs.Added, c.Name)
			continue
		}
		if needsUpdate(c, liveCol) {
			cs.Updated = append(cs.Updated, c.Name)
		}
	}

	for _, c := range live {
		if c.Name == "id" || declared[c.Name] || fks[c.Name] {
			continue
		}
		cs.Removed = append(cs.Removed, c.Name)
	}

	return cs
}

func needsUpdate(declared Column, live IntrospectedColumn) bool {
	if declared.Type == TypeEnum && !enumValuesEqual(declared.EnumValues, parseEnumType(live.SQLType)) {
		return true
	}
	if normalizeDeclaredDefault(declared) != normalizeLiveDefault(live.Default) {
		return true
	}
	if declared.OnUpdateTimestamp && !strings.Contains(strings.ToLower(live.Extra), "on update current_timestamp") {
		return true
	}
	return false
}

// parseEnumType extracts the value list from a live enum column type such
// as enum('income','expense'). Non-enum types yield nil.
func parseEnumType(sqlType string) []string {
	if !strings.HasPrefix(strings.ToLower(sqlType), "enum(") || !strings.HasSuffix(sqlType, ")") {
		return nil
	}
	body := sqlType[len("enum(") : len(sqlType)-1]

	var values []string
	var current strings.Builder
	inQuote := false
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == '\'':
			// Doubled quotes inside a quoted value are an escaped quote.
			if inQuote && i+1 < len(body) && body[i+1] == '\'' {
				current.WriteByte('\'')
				i++
				continue
			}
			if inQuote {
				values = append(values, current.String())
				current.Reset()
			}
			inQuote = !inQuote
		case inQuote:
			current.WriteByte(ch)
		}
	}
	return values
}

// enumValuesEqual compares value sets order-independently.
func enumValuesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// normalizeDeclaredDefault renders a declared default in the shape
// information_schema reports it, so representation differences do not read
// as drift.
func normalizeDeclaredDefault(c Column) string {
	switch v := c.Default.(type) {
	case nil:
		return ""
	case currentTimestampSentinel:
		return "CURRENT_TIMESTAMP"
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// normalizeLiveDefault maps a stored default to the same normal form: NULL
// and absent collapse to empty, quote wrapping is stripped, and the
// parenthesised current_timestamp() spelling folds to the sentinel.
func normalizeLiveDefault(def sql.NullString) string {
	if !def.Valid {
		return ""
	}
	v := strings.TrimSpace(def.String)
	if strings.EqualFold(v, "NULL") {
		return ""
	}
	if len(v) >= 2 && strings.HasPrefix(v, "'") && strings.HasSuffix(v, "'") {
		v = strings.ReplaceAll(v[1:len(v)-1], "''", "'")
	}
	switch strings.ToUpper(v) {
	case "CURRENT_TIMESTAMP", "CURRENT_TIMESTAMP()", "NOW()":
		return "CURRENT_TIMESTAMP"
	}
	return v
}
