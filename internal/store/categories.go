package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryNameEmpty  = errors.New("category name required")
	ErrCategoryNameExists = errors.New("category name already exists")
	ErrCategoryBadKind    = errors.New("invalid category kind")
)

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Color     string    `json:"color,omitempty"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCategoryInput struct {
	Name  string
	Kind  string
	Color string
}

type UpdateCategoryInput struct {
	Name  *string
	Kind  *string
	Color *string
}

func CreateCategory(ctx context.Context, db *sql.DB, input CreateCategoryInput) (*Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrCategoryNameEmpty
	}
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if kind == "" {
		kind = "expense"
	}
	if err := validateCategoryKind(kind); err != nil {
		return nil, err
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO categories (name, kind, color) VALUES (?, ?, ?)`,
		name, kind, input.Color)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrCategoryNameExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return GetCategory(ctx, db, id)
}

func ListCategories(ctx context.Context, db *sql.DB) ([]Category, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, name, kind, color, archived, created_at, updated_at
FROM categories
ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func GetCategory(ctx context.Context, db *sql.DB, id int64) (*Category, error) {
	row := db.QueryRowContext(ctx, `
SELECT id, name, kind, color, archived, created_at, updated_at
FROM categories
WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

func UpdateCategory(ctx context.Context, db *sql.DB, id int64, input UpdateCategoryInput) (*Category, error) {
	category, err := GetCategory(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		category.Name = strings.TrimSpace(*input.Name)
	}
	if input.Kind != nil {
		kind := strings.ToLower(strings.TrimSpace(*input.Kind))
		if err := validateCategoryKind(kind); err != nil {
			return nil, err
		}
		category.Kind = kind
	}
	if input.Color != nil {
		category.Color = *input.Color
	}

	_, err = db.ExecContext(ctx,
		`UPDATE categories SET name = ?, kind = ?, color = ? WHERE id = ?`,
		category.Name, category.Kind, category.Color, id)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrCategoryNameExists
		}
		return nil, err
	}
	return GetCategory(ctx, db, id)
}

// ArchiveCategory hides a category from pickers without touching the
// transactions already filed under it.
func ArchiveCategory(ctx context.Context, db *sql.DB, id int64) error {
	if _, err := GetCategory(ctx, db, id); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `UPDATE categories SET archived = 1 WHERE id = ?`, id)
	return err
}

func scanCategory(row rowScanner) (*Category, error) {
	var (
		c     Category
		color sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Kind, &color, &c.Archived, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Color = color.String
	return &c, nil
}

func validateCategoryKind(kind string) error {
	switch kind {
	case "income", "expense":
		return nil
	default:
		return ErrCategoryBadKind
	}
}
