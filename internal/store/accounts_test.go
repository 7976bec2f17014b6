package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var accountColumns = []string{"id", "name", "type", "currency", "opening_balance", "active", "notes", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func accountRow(mock sqlmock.Sqlmock, id int64, name, accountType, currency, balance string, active bool) *sqlmock.Rows {
	now := time.Now()
	return mock.NewRows(accountColumns).AddRow(id, name, accountType, currency, balance, active, nil, now, now)
}

func TestCreateAccount_Defaults(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WithArgs("Everyday", "checking", "USD", "0.00", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts`)).
		WithArgs(int64(1)).
		WillReturnRows(accountRow(mock, 1, "Everyday", "checking", "USD", "0.00", true))

	a, err := CreateAccount(context.Background(), db, CreateAccountInput{Name: "  Everyday  "})
	require.NoError(t, err)
	require.Equal(t, "Everyday", a.Name)
	require.Equal(t, "checking", a.Type)
	require.Equal(t, "USD", a.Currency)
	require.Equal(t, "0.00", a.OpeningBalance)
	require.True(t, a.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_NormalizesInput(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WithArgs("Nest Egg", "savings", "EUR", "2500.00", "long term").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts`)).
		WithArgs(int64(2)).
		WillReturnRows(accountRow(mock, 2, "Nest Egg", "savings", "EUR", "2500.00", true))

	_, err := CreateAccount(context.Background(), db, CreateAccountInput{
		Name:           "Nest Egg",
		Type:           " Savings ",
		Currency:       "eur",
		OpeningBalance: "2500.00",
		Notes:          "long term",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_Validation(t *testing.T) {
	db, _ := newMock(t)
	ctx := context.Background()

	_, err := CreateAccount(ctx, db, CreateAccountInput{Name: "   "})
	require.ErrorIs(t, err, ErrAccountNameEmpty)

	_, err = CreateAccount(ctx, db, CreateAccountInput{Name: "A", Type: "offshore"})
	require.ErrorIs(t, err, ErrAccountBadType)

	_, err = CreateAccount(ctx, db, CreateAccountInput{Name: "A", OpeningBalance: "12.345"})
	require.ErrorIs(t, err, ErrBadAmount)
}

func TestGetAccount_NotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts`)).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := GetAccount(context.Background(), db, 42)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpdateAccount_MergesProvidedFields(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts`)).
		WithArgs(int64(1)).
		WillReturnRows(accountRow(mock, 1, "Everyday", "checking", "USD", "0.00", true))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts`)).
		WithArgs("Everyday", "checking", "EUR", "", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts`)).
		WithArgs(int64(1)).
		WillReturnRows(accountRow(mock, 1, "Everyday", "checking", "EUR", "0.00", true))

	currency := "eur"
	a, err := UpdateAccount(context.Background(), db, 1, UpdateAccountInput{Currency: &currency})
	require.NoError(t, err)
	require.Equal(t, "EUR", a.Currency)
	require.Equal(t, "Everyday", a.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAccount_RejectsBadType(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts`)).
		WithArgs(int64(1)).
		WillReturnRows(accountRow(mock, 1, "Everyday", "checking", "USD", "0.00", true))

	badType := "offshore"
	_, err := UpdateAccount(context.Background(), db, 1, UpdateAccountInput{Type: &badType})
	require.ErrorIs(t, err, ErrAccountBadType)
}

func TestDeactivateAccount(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts`)).
		WithArgs(int64(1)).
		WillReturnRows(accountRow(mock, 1, "Everyday", "checking", "USD", "0.00", false))
	// Zero affected rows is fine: the account may already be inactive.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts SET active = 0 WHERE id = ?`)).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, DeactivateAccount(context.Background(), db, 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateAccount_NotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts`)).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	require.ErrorIs(t, DeactivateAccount(context.Background(), db, 42), ErrAccountNotFound)
}
