package schema

// Type is the logical type a model declares for a column. The DDL
// generator maps it to the concrete MySQL column type.
type Type string

const (
	TypeString    Type = "string"
	TypeText      Type = "text"
	TypeInteger   Type = "integer"
	TypeDecimal   Type = "decimal"
	TypeBoolean   Type = "boolean"
	TypeDate      Type = "date"
	TypeTimestamp Type = "timestamp"
	TypeEnum      Type = "enum"
)

// CurrentTimestamp is the sentinel default for columns that should take the
// database clock on insert.
var CurrentTimestamp = currentTimestampSentinel{}

type currentTimestampSentinel struct{}

// Column declares the intended shape of one table column. Declarations are
// plain data, assembled once at startup and immutable afterwards.
//
// Default may be nil (explicit DEFAULT NULL), a bool (stored as 0/1),
// CurrentTimestamp, or any other value rendered as a quoted literal.
type Column struct {
	Name              string
	Type              Type
	EnumValues        []string
	Default           any
	Unique            bool
	Index             bool
	OnUpdateTimestamp bool
}

// Model pairs a table name with its declared columns in declaration order.
// Every table implicitly carries an auto-incrementing id primary key; the
// synchronizer manages it and never offers it for alteration or removal.
type Model struct {
	Table   string
	Columns []Column
}

// Column returns the declared column with the given name.
func (m Model) Column(name string) (Column, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
