// Package models declares the bookkeeping schema. The declarations here
// are the single source of truth: on startup the synchronizer reshapes
// the live database to match them and records every structural change.
package models

import "finbook/internal/schema"

// Registry returns every declared model in sync order. Referenced tables
// come before the tables that point at them so a fresh database is
// created in dependency order.
func Registry() []schema.Model {
	return []schema.Model{
		Accounts(),
		Categories(),
		CreditCards(),
		Tags(),
		Transactions(),
		TransactionTags(),
	}
}

func Accounts() schema.Model {
	return schema.Model{
		Table: "accounts",
		Columns: []schema.Column{
			{Name: "name", Type: schema.TypeString},
			{Name: "type", Type: schema.TypeEnum, EnumValues: []string{"checking", "savings", "wallet", "investment"}, Default: "checking"},
			{Name: "currency", Type: schema.TypeString, Default: "USD"},
			{Name: "opening_balance", Type: schema.TypeDecimal, Default: "0.00"},
			{Name: "active", Type: schema.TypeBoolean, Default: true},
			{Name: "notes", Type: schema.TypeText},
			{Name: "created_at", Type: schema.TypeTimestamp, Default: schema.CurrentTimestamp},
			{Name: "updated_at", Type: schema.TypeTimestamp, Default: schema.CurrentTimestamp, OnUpdateTimestamp: true},
		},
	}
}

func Categories() schema.Model {
	return schema.Model{
		Table: "categories",
		Columns: []schema.Column{
			{Name: "name", Type: schema.TypeString, Unique: true},
			{Name: "kind", Type: schema.TypeEnum, EnumValues: []string{"income", "expense"}, Default: "expense"},
			{Name: "color", Type: schema.TypeString},
			{Name: "archived", Type: schema.TypeBoolean, Default: false},
			{Name: "created_at", Type: schema.TypeTimestamp, Default: schema.CurrentTimestamp},
			{Name: "updated_at", Type: schema.TypeTimestamp, Default: schema.CurrentTimestamp, OnUpdateTimestamp: true},
		},
	}
}

func CreditCards() schema.Model {
	return schema.Model{
		Table: "credit_cards",
		Columns: []schema.Column{
			{Name: "name", Type: schema.TypeString},
			{Name: "account_id", Type: schema.TypeInteger, Index: true},
			{Name: "credit_limit", Type: schema.TypeDecimal, Default: "0.00"},
			{Name: "closing_day", Type: schema.TypeInteger, Default: 1},
			{Name: "due_day", Type: schema.TypeInteger, Default: 10},
			{Name: "active", Type: schema.TypeBoolean, Default: true},
			{Name: "created_at", Type: schema.TypeTimestamp, Default: schema.CurrentTimestamp},
			{Name: "updated_at", Type: schema.TypeTimestamp, Default: schema.CurrentTimestamp, OnUpdateTimestamp: true},
		},
	}
}

func Tags() schema.Model {
	return schema.Model{
		Table: "tags",
		Columns: []schema.Column{
			{Name: "name", Type: schema.TypeString, Unique: true},
			{Name: "created_at", Type: schema.TypeTimestamp, Default: schema.CurrentTimestamp},
		},
	}
}

func Transactions() schema.Model {
	return schema.Model{
		Table: "transactions",
		Columns: []schema.Column{
			{Name: "description", Type: schema.TypeString},
			{Name: "amount", Type: schema.TypeDecimal, Default: "0.00"},
			{Name: "kind", Type: schema.TypeEnum, EnumValues: []string{"income", "expense", "transfer"}, Default: "expense"},
			{Name: "occurred_on", Type: schema.TypeDate},
			{Name: "account_id", Type: schema.TypeInteger, Index: true},
			{Name: "category_id", Type: schema.TypeInteger, Index: true},
			{Name: "credit_card_id", Type: schema.TypeInteger, Index: true},
			{Name: "notes", Type: schema.TypeText},
			{Name: "created_at", Type: schema.TypeTimestamp, Default: schema.CurrentTimestamp},
			{Name: "updated_at", Type: schema.TypeTimestamp, Default: schema.CurrentTimestamp, OnUpdateTimestamp: true},
		},
	}
}

func TransactionTags() schema.Model {
	return schema.Model{
		Table: "transaction_tags",
		Columns: []schema.Column{
			{Name: "transaction_id", Type: schema.TypeInteger, Index: true},
			{Name: "tag_id", Type: schema.TypeInteger, Index: true},
		},
	}
}
