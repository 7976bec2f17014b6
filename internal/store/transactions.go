package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionBadKind  = errors.New("invalid transaction kind")
	ErrDescriptionEmpty    = errors.New("transaction description required")
	ErrOccurredOnEmpty     = errors.New("transaction date required")
)

const dateLayout = "2006-01-02"

type Transaction struct {
	ID           int64     `json:"id"`
	Description  string    `json:"description"`
	Amount       string    `json:"amount"`
	Kind         string    `json:"kind"`
	OccurredOn   string    `json:"occurred_on"`
	AccountID    int64     `json:"account_id"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	CreditCardID *int64    `json:"credit_card_id,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Tags         []Tag     `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateTransactionInput struct {
	Description  string
	Amount       string
	Kind         string
	OccurredOn   time.Time
	AccountID    int64
	CategoryID   *int64
	CreditCardID *int64
	Notes        string
	TagIDs       []int64
}

type UpdateTransactionInput struct {
	Description  *string
	Amount       *string
	Kind         *string
	OccurredOn   *time.Time
	CategoryID   *int64
	CreditCardID *int64
	Notes        *string
	TagIDs       []int64
}

// TransactionFilter narrows ListTransactions. Zero values mean no
// constraint on that dimension.
type TransactionFilter struct {
	AccountID    int64
	CategoryID   int64
	CreditCardID int64
	TagID        int64
	Kind         string
	Query        string
	From         time.Time
	To           time.Time
	Limit        int
}

func CreateTransaction(ctx context.Context, db *sql.DB, input CreateTransactionInput) (*Transaction, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, ErrDescriptionEmpty
	}
	amount := strings.TrimSpace(input.Amount)
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if kind == "" {
		kind = "expense"
	}
	if err := validateTransactionKind(kind); err != nil {
		return nil, err
	}
	if input.OccurredOn.IsZero() {
		return nil, ErrOccurredOnEmpty
	}
	if _, err := GetAccount(ctx, db, input.AccountID); err != nil {
		return nil, err
	}
	if input.CategoryID != nil {
		if _, err := GetCategory(ctx, db, *input.CategoryID); err != nil {
			return nil, err
		}
	}
	if input.CreditCardID != nil {
		if _, err := GetCreditCard(ctx, db, *input.CreditCardID); err != nil {
			return nil, err
		}
	}
	for _, tagID := range input.TagIDs {
		if _, err := GetTag(ctx, db, tagID); err != nil {
			return nil, err
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO transactions (description, amount, kind, occurred_on, account_id, category_id, credit_card_id, notes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		description, amount, kind, input.OccurredOn.Format(dateLayout),
		input.AccountID, input.CategoryID, input.CreditCardID, input.Notes)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := replaceTransactionTags(ctx, tx, id, input.TagIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return GetTransaction(ctx, db, id)
}

func ListTransactions(ctx context.Context, db *sql.DB, filter TransactionFilter) ([]Transaction, error) {
	query := `
SELECT t.id, t.description, t.amount, t.kind, t.occurred_on, t.account_id, t.category_id, t.credit_card_id, t.notes, t.created_at, t.updated_at
FROM transactions t`
	var (
		conds []string
		args  []any
	)
	if filter.AccountID > 0 {
		conds = append(conds, "t.account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.CategoryID > 0 {
		conds = append(conds, "t.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.CreditCardID > 0 {
		conds = append(conds, "t.credit_card_id = ?")
		args = append(args, filter.CreditCardID)
	}
	if filter.TagID > 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM transaction_tags tt WHERE tt.transaction_id = t.id AND tt.tag_id = ?)")
		args = append(args, filter.TagID)
	}
	if filter.Kind != "" {
		if err := validateTransactionKind(filter.Kind); err != nil {
			return nil, err
		}
		conds = append(conds, "t.kind = ?")
		args = append(args, filter.Kind)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + q + "%"
		conds = append(conds, "(t.description LIKE ? OR t.notes LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "t.occurred_on >= ?")
		args = append(args, filter.From.Format(dateLayout))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "t.occurred_on <= ?")
		args = append(args, filter.To.Format(dateLayout))
	}
	if len(conds) > 0 {
		query += "\nWHERE " + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += "\nORDER BY t.occurred_on DESC, t.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func GetTransaction(ctx context.Context, db *sql.DB, id int64) (*Transaction, error) {
	row := db.QueryRowContext(ctx, `
SELECT t.id, t.description, t.amount, t.kind, t.occurred_on, t.account_id, t.category_id, t.credit_card_id, t.notes, t.created_at, t.updated_at
FROM transactions t
WHERE t.id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if t.Tags, err = listTransactionTags(ctx, db, id); err != nil {
		return nil, err
	}
	return t, nil
}

func UpdateTransaction(ctx context.Context, db *sql.DB, id int64, input UpdateTransactionInput) (*Transaction, error) {
	transaction, err := GetTransaction(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if input.Description != nil && strings.TrimSpace(*input.Description) != "" {
		transaction.Description = strings.TrimSpace(*input.Description)
	}
	if input.Amount != nil {
		amount := strings.TrimSpace(*input.Amount)
		if err := validateAmount(amount); err != nil {
			return nil, err
		}
		transaction.Amount = amount
	}
	if input.Kind != nil {
		kind := strings.ToLower(strings.TrimSpace(*input.Kind))
		if err := validateTransactionKind(kind); err != nil {
			return nil, err
		}
		transaction.Kind = kind
	}
	if input.OccurredOn != nil && !input.OccurredOn.IsZero() {
		transaction.OccurredOn = input.OccurredOn.Format(dateLayout)
	}
	if input.CategoryID != nil {
		if _, err := GetCategory(ctx, db, *input.CategoryID); err != nil {
			return nil, err
		}
		transaction.CategoryID = input.CategoryID
	}
	if input.CreditCardID != nil {
		if _, err := GetCreditCard(ctx, db, *input.CreditCardID); err != nil {
			return nil, err
		}
		transaction.CreditCardID = input.CreditCardID
	}
	if input.Notes != nil {
		transaction.Notes = *input.Notes
	}
	if input.TagIDs != nil {
		for _, tagID := range input.TagIDs {
			if _, err := GetTag(ctx, db, tagID); err != nil {
				return nil, err
			}
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
UPDATE transactions
SET description = ?, amount = ?, kind = ?, occurred_on = ?, category_id = ?, credit_card_id = ?, notes = ?
WHERE id = ?`,
		transaction.Description, transaction.Amount, transaction.Kind, transaction.OccurredOn,
		transaction.CategoryID, transaction.CreditCardID, transaction.Notes, id)
	if err != nil {
		return nil, err
	}
	if input.TagIDs != nil {
		if err := replaceTransactionTags(ctx, tx, id, input.TagIDs); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return GetTransaction(ctx, db, id)
}

func DeleteTransaction(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTransactionNotFound
	}
	return tx.Commit()
}

// TransactionSummary aggregates a date range. Transfers move money
// between accounts, so they count toward neither income nor expense.
type TransactionSummary struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	Count      int64           `json:"count"`
	Income     string          `json:"income"`
	Expense    string          `json:"expense"`
	Net        string          `json:"net"`
	ByCategory []CategoryTotal `json:"by_category"`
}

// CategoryTotal is one row of the per-category breakdown. Transactions
// without a category land under the "uncategorized" label.
type CategoryTotal struct {
	Category string `json:"category"`
	Kind     string `json:"kind"`
	Total    string `json:"total"`
}

func SummarizeTransactions(ctx context.Context, db *sql.DB, from, to time.Time, accountID int64) (*TransactionSummary, error) {
	query := `
SELECT
	COUNT(*),
	COALESCE(SUM(CASE WHEN kind = 'income' THEN amount ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN kind = 'income' THEN amount WHEN kind = 'expense' THEN -amount ELSE 0 END), 0)
FROM transactions
WHERE occurred_on >= ? AND occurred_on <= ?`
	args := []any{from.Format(dateLayout), to.Format(dateLayout)}
	if accountID > 0 {
		query += " AND account_id = ?"
		args = append(args, accountID)
	}

	sum := TransactionSummary{From: from.Format(dateLayout), To: to.Format(dateLayout)}
	err := db.QueryRowContext(ctx, query, args...).
		Scan(&sum.Count, &sum.Income, &sum.Expense, &sum.Net)
	if err != nil {
		return nil, err
	}

	sum.ByCategory, err = summarizeByCategory(ctx, db, sum.From, sum.To, accountID)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func summarizeByCategory(ctx context.Context, db *sql.DB, from, to string, accountID int64) ([]CategoryTotal, error) {
	query := `
SELECT COALESCE(c.name, 'uncategorized'), t.kind, COALESCE(SUM(t.amount), 0)
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
WHERE t.occurred_on >= ? AND t.occurred_on <= ? AND t.kind IN ('income', 'expense')`
	args := []any{from, to}
	if accountID > 0 {
		query += " AND t.account_id = ?"
		args = append(args, accountID)
	}
	query += `
GROUP BY c.name, t.kind
ORDER BY SUM(t.amount) DESC, c.name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Kind, &ct.Total); err != nil {
			return nil, err
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

func replaceTransactionTags(ctx context.Context, tx *sql.Tx, transactionID int64, tagIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, transactionID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO transaction_tags (transaction_id, tag_id) VALUES (?, ?)`, transactionID, tagID); err != nil {
			return err
		}
	}
	return nil
}

func listTransactionTags(ctx context.Context, db *sql.DB, transactionID int64) ([]Tag, error) {
	rows, err := db.QueryContext(ctx, `
SELECT t.id, t.name, t.created_at
FROM tags t
JOIN transaction_tags tt ON tt.tag_id = t.id
WHERE tt.transaction_id = ?
ORDER BY t.name`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var (
		t            Transaction
		occurredOn   time.Time
		categoryID   sql.NullInt64
		creditCardID sql.NullInt64
		notes        sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Description, &t.Amount, &t.Kind, &occurredOn, &t.AccountID, &categoryID, &creditCardID, &notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.OccurredOn = occurredOn.Format(dateLayout)
	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	if creditCardID.Valid {
		t.CreditCardID = &creditCardID.Int64
	}
	t.Notes = notes.String
	return &t, nil
}

func validateTransactionKind(kind string) error {
	switch kind {
	case "income", "expense", "transfer":
		return nil
	default:
		return ErrTransactionBadKind
	}
}
