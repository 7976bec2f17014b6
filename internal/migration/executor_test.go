package migration

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

const selectGroupQuery = `SELECT id, name, up, down, created_at FROM migration_groups WHERE id = ?`

func groupFixture(t *testing.T) (up, down []string, upJSON, downJSON string) {
	t.Helper()
	up = []string{
		"ALTER TABLE `accounts` ADD COLUMN `notes` text",
		"ALTER TABLE `accounts` ADD COLUMN `color` varchar(255) DEFAULT NULL",
	}
	down = []string{
		"ALTER TABLE `accounts` DROP COLUMN `color`",
		"ALTER TABLE `accounts` DROP COLUMN `notes`",
	}
	var err error
	if upJSON, err = marshalQueries(up); err != nil {
		t.Fatal(err)
	}
	if downJSON, err = marshalQueries(down); err != nil {
		t.Fatal(err)
	}
	return up, down, upJSON, downJSON
}

func TestExecuteGroup_InvalidDirection(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	err = NewExecutor(db, &logCapture{}).ExecuteGroup(context.Background(), 5, Direction("SIDEWAYS"))
	if !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("err = %v, want ErrInvalidDirection", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestExecuteGroup_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectGroupQuery)).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	err = NewExecutor(db, &logCapture{}).ExecuteGroup(context.Background(), 99, DirectionApply)
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("err = %v, want ErrGroupNotFound", err)
	}
}

func TestExecuteGroup_ApplyRunsUpInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	up, _, upJSON, downJSON := groupFixture(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectGroupQuery)).
		WithArgs(int64(5)).
		WillReturnRows(mock.NewRows([]string{"id", "name", "up", "down", "created_at"}).
			AddRow(5, "accounts-abc", upJSON, downJSON, time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(up[0])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(up[1])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	activity := &logCapture{}
	if err := NewExecutor(db, activity).ExecuteGroup(context.Background(), 5, DirectionApply); err != nil {
		t.Fatalf("ExecuteGroup: %v", err)
	}
	if len(activity.infos) != 1 || activity.infos[0] != "execute_group" {
		t.Errorf("activity infos = %v", activity.infos)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestExecuteGroup_RollbackRunsDownList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	_, down, upJSON, downJSON := groupFixture(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectGroupQuery)).
		WithArgs(int64(5)).
		WillReturnRows(mock.NewRows([]string{"id", "name", "up", "down", "created_at"}).
			AddRow(5, "accounts-abc", upJSON, downJSON, time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(down[0])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(down[1])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := NewExecutor(db, &logCapture{}).ExecuteGroup(context.Background(), 5, DirectionRollback); err != nil {
		t.Fatalf("ExecuteGroup: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestExecuteGroup_MidStatementFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	up, _, upJSON, downJSON := groupFixture(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectGroupQuery)).
		WithArgs(int64(5)).
		WillReturnRows(mock.NewRows([]string{"id", "name", "up", "down", "created_at"}).
			AddRow(5, "accounts-abc", upJSON, downJSON, time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(up[0])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(up[1])).WillReturnError(errors.New("duplicate column name 'color'"))
	mock.ExpectRollback()

	activity := &logCapture{}
	err = NewExecutor(db, activity).ExecuteGroup(context.Background(), 5, DirectionApply)
	if err == nil {
		t.Fatal("a failed statement must fail the replay")
	}
	if len(activity.errs) != 1 || activity.errs[0] != "execute_group" {
		t.Errorf("activity errs = %v", activity.errs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateGroup(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertGroupQuery)).
		WithArgs("seed-v2", `["U1"]`, `["D1"]`).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectGroupQuery)).
		WithArgs(int64(3)).
		WillReturnRows(mock.NewRows([]string{"id", "name", "up", "down", "created_at"}).
			AddRow(3, "seed-v2", `["U1"]`, `["D1"]`, time.Now()))

	g, err := NewExecutor(db, &logCapture{}).CreateGroup(context.Background(), "seed-v2", []string{"U1"}, []string{"D1"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if g.ID != 3 || g.Name != "seed-v2" || len(g.UpQueries) != 1 {
		t.Errorf("group = %+v", g)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateGroup_GeneratesName(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertGroupQuery)).
		WithArgs(sqlmock.AnyArg(), `[]`, `[]`).
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectGroupQuery)).
		WithArgs(int64(4)).
		WillReturnRows(mock.NewRows([]string{"id", "name", "up", "down", "created_at"}).
			AddRow(4, "manual-generated", `[]`, `[]`, time.Now()))

	if _, err := NewExecutor(db, &logCapture{}).CreateGroup(context.Background(), "", nil, nil); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
