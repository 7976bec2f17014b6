package schema

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

type captureRecorder struct {
	models []Model
	sets   []ChangeSet
	err    error
}

func (r *captureRecorder) Record(ctx context.Context, m Model, cs ChangeSet) error {
	r.models = append(r.models, m)
	r.sets = append(r.sets, cs)
	return r.err
}

type nopActivity struct{}

func (nopActivity) Info(ctx context.Context, operation, category, detail string, subjectID int64)  {}
func (nopActivity) Error(ctx context.Context, operation, category, detail string, subjectID int64) {}

const (
	tableExistsQuery = `SELECT COUNT(*) FROM information_schema.tables`
	listColumnsQuery = `SELECT column_name, column_type, column_default, extra FROM information_schema.columns`
	listFKsQuery     = `SELECT column_name FROM information_schema.key_column_usage`
)

func columnRows(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mock.NewRows([]string{"column_name", "column_type", "column_default", "extra"})
}

func TestSyncAll_CreatesMissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m := Model{Table: "tags", Columns: []Column{
		{Name: "name", Type: TypeString},
		{Name: "created_at", Type: TypeTimestamp, Default: CurrentTimestamp},
	}}

	mock.ExpectQuery(regexp.QuoteMeta(tableExistsQuery)).WithArgs("tags").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(CreateTableSQL(m))).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := &captureRecorder{}
	sum, err := NewSynchronizer(db, rec, nopActivity{}).SyncAll(context.Background(), []Model{m})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if sum.TablesCreated != 1 {
		t.Errorf("TablesCreated = %d, want 1", sum.TablesCreated)
	}
	if sum.GroupsRecorded != 0 {
		t.Errorf("GroupsRecorded = %d, want 0 for a fresh table", sum.GroupsRecorded)
	}
	if len(rec.sets) != 1 || !rec.sets[0].Empty() {
		t.Errorf("recorder should see one empty change set, got %+v", rec.sets)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSyncAll_AddsMissingColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m := Model{Table: "accounts", Columns: []Column{
		{Name: "name", Type: TypeString},
		{Name: "currency", Type: TypeString, Default: "USD"},
	}}

	mock.ExpectQuery(regexp.QuoteMeta(tableExistsQuery)).WithArgs("accounts").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(listColumnsQuery)).WithArgs("accounts").
		WillReturnRows(columnRows(mock).
			AddRow("id", "int", nil, "auto_increment").
			AddRow("name", "varchar(255)", nil, ""))
	mock.ExpectQuery(regexp.QuoteMeta(listFKsQuery)).WithArgs("accounts").
		WillReturnRows(mock.NewRows([]string{"column_name"}))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `accounts` ADD COLUMN `currency` varchar(255) DEFAULT 'USD'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := &captureRecorder{}
	sum, err := NewSynchronizer(db, rec, nopActivity{}).SyncAll(context.Background(), []Model{m})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if sum.ColumnsAdded != 1 {
		t.Errorf("ColumnsAdded = %d, want 1", sum.ColumnsAdded)
	}
	if sum.GroupsRecorded != 1 {
		t.Errorf("GroupsRecorded = %d, want 1", sum.GroupsRecorded)
	}
	if len(rec.sets) != 1 || len(rec.sets[0].Added) != 1 || rec.sets[0].Added[0] != "currency" {
		t.Errorf("recorded change set = %+v, want added [currency]", rec.sets)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSyncAll_UpdatesDriftedColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m := Model{Table: "accounts", Columns: []Column{
		{Name: "currency", Type: TypeString, Default: "USD"},
	}}

	mock.ExpectQuery(regexp.QuoteMeta(tableExistsQuery)).WithArgs("accounts").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(listColumnsQuery)).WithArgs("accounts").
		WillReturnRows(columnRows(mock).
			AddRow("id", "int", nil, "auto_increment").
			AddRow("currency", "varchar(255)", "EUR", ""))
	mock.ExpectQuery(regexp.QuoteMeta(listFKsQuery)).WithArgs("accounts").
		WillReturnRows(mock.NewRows([]string{"column_name"}))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `accounts` MODIFY COLUMN `currency` varchar(255) DEFAULT 'USD'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := &captureRecorder{}
	sum, err := NewSynchronizer(db, rec, nopActivity{}).SyncAll(context.Background(), []Model{m})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if sum.ColumnsUpdated != 1 {
		t.Errorf("ColumnsUpdated = %d, want 1", sum.ColumnsUpdated)
	}
	// An updated-only pass still records a group even though updates
	// produce no replayable statements.
	if sum.GroupsRecorded != 1 {
		t.Errorf("GroupsRecorded = %d, want 1", sum.GroupsRecorded)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSyncAll_DropFailureContinues(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m := Model{Table: "accounts", Columns: []Column{
		{Name: "name", Type: TypeString},
	}}

	mock.ExpectQuery(regexp.QuoteMeta(tableExistsQuery)).WithArgs("accounts").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(listColumnsQuery)).WithArgs("accounts").
		WillReturnRows(columnRows(mock).
			AddRow("id", "int", nil, "auto_increment").
			AddRow("name", "varchar(255)", nil, "").
			AddRow("legacy_a", "varchar(255)", nil, "").
			AddRow("legacy_b", "varchar(255)", nil, ""))
	mock.ExpectQuery(regexp.QuoteMeta(listFKsQuery)).WithArgs("accounts").
		WillReturnRows(mock.NewRows([]string{"column_name"}))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `accounts` DROP COLUMN `legacy_a`")).
		WillReturnError(errors.New("row size too large"))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `accounts` DROP COLUMN `legacy_b`")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := &captureRecorder{}
	sum, err := NewSynchronizer(db, rec, nopActivity{}).SyncAll(context.Background(), []Model{m})
	if err != nil {
		t.Fatalf("a failed drop must not abort the pass: %v", err)
	}
	if sum.ColumnsRemoved != 1 {
		t.Errorf("ColumnsRemoved = %d, want 1", sum.ColumnsRemoved)
	}
	if len(rec.sets) != 1 || len(rec.sets[0].Removed) != 1 || rec.sets[0].Removed[0] != "legacy_b" {
		t.Errorf("only the applied drop may be recorded, got %+v", rec.sets)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSyncAll_AddFailureAborts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m := Model{Table: "accounts", Columns: []Column{
		{Name: "currency", Type: TypeString, Default: "USD"},
	}}

	mock.ExpectQuery(regexp.QuoteMeta(tableExistsQuery)).WithArgs("accounts").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(listColumnsQuery)).WithArgs("accounts").
		WillReturnRows(columnRows(mock).AddRow("id", "int", nil, "auto_increment"))
	mock.ExpectQuery(regexp.QuoteMeta(listFKsQuery)).WithArgs("accounts").
		WillReturnRows(mock.NewRows([]string{"column_name"}))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `accounts` ADD COLUMN `currency`")).
		WillReturnError(errors.New("disk full"))

	rec := &captureRecorder{}
	_, err = NewSynchronizer(db, rec, nopActivity{}).SyncAll(context.Background(), []Model{m})
	if err == nil {
		t.Fatal("a failed add must abort the run")
	}
	if len(rec.sets) != 0 {
		t.Errorf("nothing may be recorded for an aborted pass, got %+v", rec.sets)
	}
}

func TestSyncAll_IntrospectionFailureAborts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m := Model{Table: "accounts", Columns: []Column{{Name: "name", Type: TypeString}}}

	mock.ExpectQuery(regexp.QuoteMeta(tableExistsQuery)).WithArgs("accounts").
		WillReturnError(errors.New("connection reset"))

	_, err = NewSynchronizer(db, &captureRecorder{}, nopActivity{}).SyncAll(context.Background(), []Model{m})
	if err == nil {
		t.Fatal("introspection failure must abort the run")
	}
}

func TestSyncAll_RecordFailureKeepsPass(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m := Model{Table: "accounts", Columns: []Column{
		{Name: "currency", Type: TypeString, Default: "USD"},
	}}

	mock.ExpectQuery(regexp.QuoteMeta(tableExistsQuery)).WithArgs("accounts").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(listColumnsQuery)).WithArgs("accounts").
		WillReturnRows(columnRows(mock).AddRow("id", "int", nil, "auto_increment"))
	mock.ExpectQuery(regexp.QuoteMeta(listFKsQuery)).WithArgs("accounts").
		WillReturnRows(mock.NewRows([]string{"column_name"}))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `accounts` ADD COLUMN `currency`")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := &captureRecorder{err: errors.New("insert denied")}
	sum, err := NewSynchronizer(db, rec, nopActivity{}).SyncAll(context.Background(), []Model{m})
	if err != nil {
		t.Fatalf("a recording failure must not fail the sync: %v", err)
	}
	if sum.ColumnsAdded != 1 {
		t.Errorf("ColumnsAdded = %d, want 1", sum.ColumnsAdded)
	}
	if sum.GroupsRecorded != 0 {
		t.Errorf("GroupsRecorded = %d, want 0 when recording failed", sum.GroupsRecorded)
	}
}

func TestSyncAll_ConstraintFailureSwallowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m := Model{Table: "tags", Columns: []Column{
		{Name: "name", Type: TypeString, Unique: true},
	}}

	mock.ExpectQuery(regexp.QuoteMeta(tableExistsQuery)).WithArgs("tags").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(listColumnsQuery)).WithArgs("tags").
		WillReturnRows(columnRows(mock).
			AddRow("id", "int", nil, "auto_increment").
			AddRow("name", "varchar(255)", nil, ""))
	mock.ExpectQuery(regexp.QuoteMeta(listFKsQuery)).WithArgs("tags").
		WillReturnRows(mock.NewRows([]string{"column_name"}))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `tags` ADD UNIQUE INDEX `tags_name_unique`")).
		WillReturnError(errors.New("Duplicate key name 'tags_name_unique'"))

	_, err = NewSynchronizer(db, &captureRecorder{}, nopActivity{}).SyncAll(context.Background(), []Model{m})
	if err != nil {
		t.Fatalf("constraint failures are swallowed on every pass: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
