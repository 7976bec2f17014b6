package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	valid := []string{"0.00", "100", "-12.50", "1.5", "999999.99", "-3"}
	for _, s := range valid {
		require.NoError(t, validateAmount(s), "amount %q", s)
	}

	invalid := []string{"", "1.234", "12,50", "abc", "1.", ".50", "1 000", "+5"}
	for _, s := range invalid {
		require.ErrorIs(t, validateAmount(s), ErrBadAmount, "amount %q", s)
	}
}

func TestIsDuplicateEntry(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'groceries' for key 'categories_name_unique'"}
	require.True(t, isDuplicateEntry(dup))
	require.True(t, isDuplicateEntry(fmt.Errorf("insert category: %w", dup)))

	require.False(t, isDuplicateEntry(&mysql.MySQLError{Number: 1452}))
	require.False(t, isDuplicateEntry(errors.New("duplicate entry")))
	require.False(t, isDuplicateEntry(nil))
}
