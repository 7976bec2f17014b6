package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	ErrCreditCardNotFound  = errors.New("credit card not found")
	ErrCreditCardNameEmpty = errors.New("credit card name required")
	ErrCreditCardBadDay    = errors.New("statement days must be between 1 and 28")
)

// Statement days stop at 28 so every month has the configured day.
type CreditCard struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	AccountID   int64     `json:"account_id"`
	CreditLimit string    `json:"credit_limit"`
	ClosingDay  int       `json:"closing_day"`
	DueDay      int       `json:"due_day"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateCreditCardInput struct {
	Name        string
	AccountID   int64
	CreditLimit string
	ClosingDay  int
	DueDay      int
}

type UpdateCreditCardInput struct {
	Name        *string
	CreditLimit *string
	ClosingDay  *int
	DueDay      *int
}

func CreateCreditCard(ctx context.Context, db *sql.DB, input CreateCreditCardInput) (*CreditCard, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrCreditCardNameEmpty
	}
	if _, err := GetAccount(ctx, db, input.AccountID); err != nil {
		return nil, err
	}
	limit := strings.TrimSpace(input.CreditLimit)
	if limit == "" {
		limit = "0.00"
	}
	if err := validateAmount(limit); err != nil {
		return nil, err
	}
	closingDay := input.ClosingDay
	if closingDay == 0 {
		closingDay = 1
	}
	dueDay := input.DueDay
	if dueDay == 0 {
		dueDay = 10
	}
	if err := validateStatementDay(closingDay); err != nil {
		return nil, err
	}
	if err := validateStatementDay(dueDay); err != nil {
		return nil, err
	}

	res, err := db.ExecContext(ctx, `
INSERT INTO credit_cards (name, account_id, credit_limit, closing_day, due_day)
VALUES (?, ?, ?, ?, ?)`,
		name, input.AccountID, limit, closingDay, dueDay)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return GetCreditCard(ctx, db, id)
}

func ListCreditCards(ctx context.Context, db *sql.DB) ([]CreditCard, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, name, account_id, credit_limit, closing_day, due_day, active, created_at, updated_at
FROM credit_cards
ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []CreditCard
	for rows.Next() {
		var c CreditCard
		if err := rows.Scan(&c.ID, &c.Name, &c.AccountID, &c.CreditLimit, &c.ClosingDay, &c.DueDay, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func GetCreditCard(ctx context.Context, db *sql.DB, id int64) (*CreditCard, error) {
	var c CreditCard
	err := db.QueryRowContext(ctx, `
SELECT id, name, account_id, credit_limit, closing_day, due_day, active, created_at, updated_at
FROM credit_cards
WHERE id = ?`, id).Scan(&c.ID, &c.Name, &c.AccountID, &c.CreditLimit, &c.ClosingDay, &c.DueDay, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCreditCardNotFound
		}
		return nil, err
	}
	return &c, nil
}

func UpdateCreditCard(ctx context.Context, db *sql.DB, id int64, input UpdateCreditCardInput) (*CreditCard, error) {
	card, err := GetCreditCard(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		card.Name = strings.TrimSpace(*input.Name)
	}
	if input.CreditLimit != nil {
		limit := strings.TrimSpace(*input.CreditLimit)
		if err := validateAmount(limit); err != nil {
			return nil, err
		}
		card.CreditLimit = limit
	}
	if input.ClosingDay != nil {
		if err := validateStatementDay(*input.ClosingDay); err != nil {
			return nil, err
		}
		card.ClosingDay = *input.ClosingDay
	}
	if input.DueDay != nil {
		if err := validateStatementDay(*input.DueDay); err != nil {
			return nil, err
		}
		card.DueDay = *input.DueDay
	}

	_, err = db.ExecContext(ctx, `
UPDATE credit_cards
SET name = ?, credit_limit = ?, closing_day = ?, due_day = ?
WHERE id = ?`,
		card.Name, card.CreditLimit, card.ClosingDay, card.DueDay, id)
	if err != nil {
		return nil, err
	}
	return GetCreditCard(ctx, db, id)
}

func DeactivateCreditCard(ctx context.Context, db *sql.DB, id int64) error {
	if _, err := GetCreditCard(ctx, db, id); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `UPDATE credit_cards SET active = 0 WHERE id = ?`, id)
	return err
}

func validateStatementDay(day int) error {
	if day < 1 || day > 28 {
		return ErrCreditCardBadDay
	}
	return nil
}
