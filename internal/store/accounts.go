package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountNameEmpty = errors.New("account name required")
	ErrAccountBadType   = errors.New("invalid account type")
)

type Account struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Currency       string    `json:"currency"`
	OpeningBalance string    `json:"opening_balance"`
	Active         bool      `json:"active"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateAccountInput struct {
	Name           string
	Type           string
	Currency       string
	OpeningBalance string
	Notes          string
}

type UpdateAccountInput struct {
	Name     *string
	Type     *string
	Currency *string
	Notes    *string
}

func CreateAccount(ctx context.Context, db *sql.DB, input CreateAccountInput) (*Account, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrAccountNameEmpty
	}
	accountType := strings.ToLower(strings.TrimSpace(input.Type))
	if accountType == "" {
		accountType = "checking"
	}
	if err := validateAccountType(accountType); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	balance := strings.TrimSpace(input.OpeningBalance)
	if balance == "" {
		balance = "0.00"
	}
	if err := validateAmount(balance); err != nil {
		return nil, err
	}

	res, err := db.ExecContext(ctx, `
INSERT INTO accounts (name, type, currency, opening_balance, notes)
VALUES (?, ?, ?, ?, ?)`,
		name, accountType, currency, balance, input.Notes)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return GetAccount(ctx, db, id)
}

func ListAccounts(ctx context.Context, db *sql.DB) ([]Account, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, name, type, currency, opening_balance, active, notes, created_at, updated_at
FROM accounts
ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func GetAccount(ctx context.Context, db *sql.DB, id int64) (*Account, error) {
	row := db.QueryRowContext(ctx, `
SELECT id, name, type, currency, opening_balance, active, notes, created_at, updated_at
FROM accounts
WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}

func UpdateAccount(ctx context.Context, db *sql.DB, id int64, input UpdateAccountInput) (*Account, error) {
	account, err := GetAccount(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		account.Name = strings.TrimSpace(*input.Name)
	}
	if input.Type != nil {
		accountType := strings.ToLower(strings.TrimSpace(*input.Type))
		if err := validateAccountType(accountType); err != nil {
			return nil, err
		}
		account.Type = accountType
	}
	if input.Currency != nil && strings.TrimSpace(*input.Currency) != "" {
		account.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if input.Notes != nil {
		account.Notes = *input.Notes
	}

	_, err = db.ExecContext(ctx, `
UPDATE accounts
SET name = ?, type = ?, currency = ?, notes = ?
WHERE id = ?`,
		account.Name, account.Type, account.Currency, account.Notes, id)
	if err != nil {
		return nil, err
	}
	return GetAccount(ctx, db, id)
}

// DeactivateAccount soft-deletes. Transactions keep pointing at the
// account; it just stops accepting new ones. The existence check comes
// first because MySQL reports zero affected rows for an update that
// changes nothing.
func DeactivateAccount(ctx context.Context, db *sql.DB, id int64) error {
	if _, err := GetAccount(ctx, db, id); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `UPDATE accounts SET active = 0 WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		a     Account
		notes sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Currency, &a.OpeningBalance, &a.Active, &notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Notes = notes.String
	return &a, nil
}

func validateAccountType(accountType string) error {
	switch accountType {
	case "checking", "savings", "wallet", "investment":
		return nil
	default:
		return ErrAccountBadType
	}
}
