package models

import (
	"testing"

	"finbook/internal/schema"
)

func TestRegistry_SyncOrder(t *testing.T) {
	want := []string{"accounts", "categories", "credit_cards", "tags", "transactions", "transaction_tags"}
	got := Registry()
	if len(got) != len(want) {
		t.Fatalf("Registry has %d models, want %d", len(got), len(want))
	}
	for i, m := range got {
		if m.Table != want[i] {
			t.Errorf("Registry[%d].Table = %q, want %q", i, m.Table, want[i])
		}
	}
}

func TestRegistry_NoDeclaredID(t *testing.T) {
	for _, m := range Registry() {
		if _, ok := m.Column("id"); ok {
			t.Errorf("table %s declares id; the synchronizer owns that column", m.Table)
		}
	}
}

func TestRegistry_NoDuplicateColumns(t *testing.T) {
	for _, m := range Registry() {
		seen := make(map[string]bool, len(m.Columns))
		for _, c := range m.Columns {
			if seen[c.Name] {
				t.Errorf("table %s declares column %s twice", m.Table, c.Name)
			}
			seen[c.Name] = true
		}
	}
}

func TestRegistry_UniqueAndIndexAreExclusive(t *testing.T) {
	for _, m := range Registry() {
		for _, c := range m.Columns {
			if c.Unique && c.Index {
				t.Errorf("table %s column %s sets both Unique and Index; only the unique index would be applied", m.Table, c.Name)
			}
		}
	}
}

func TestRegistry_EnumsAreWellFormed(t *testing.T) {
	for _, m := range Registry() {
		for _, c := range m.Columns {
			if c.Type != schema.TypeEnum {
				continue
			}
			if len(c.EnumValues) == 0 {
				t.Errorf("%s.%s is an enum with no values", m.Table, c.Name)
				continue
			}
			def, ok := c.Default.(string)
			if !ok {
				t.Errorf("%s.%s enum default %v is not a string", m.Table, c.Name, c.Default)
				continue
			}
			found := false
			for _, v := range c.EnumValues {
				if v == def {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("%s.%s default %q is not one of its enum values %v", m.Table, c.Name, def, c.EnumValues)
			}
		}
	}
}

func TestRegistry_ReferenceColumnsIndexed(t *testing.T) {
	for _, m := range Registry() {
		for _, c := range m.Columns {
			if len(c.Name) > 3 && c.Name[len(c.Name)-3:] == "_id" && !c.Index {
				t.Errorf("%s.%s references another table but is not indexed", m.Table, c.Name)
			}
		}
	}
}

func TestRegistry_TimestampsCarryDatabaseClock(t *testing.T) {
	for _, m := range Registry() {
		for _, c := range m.Columns {
			if c.Type != schema.TypeTimestamp {
				continue
			}
			if c.Default != schema.CurrentTimestamp {
				t.Errorf("%s.%s should default to the database clock", m.Table, c.Name)
			}
			if c.Name == "updated_at" && !c.OnUpdateTimestamp {
				t.Errorf("%s.updated_at should refresh on update", m.Table)
			}
		}
	}
}
