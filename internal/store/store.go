// Package store implements persistence for the bookkeeping entities.
// Every function takes the database handle explicitly; the package holds
// no state. Monetary values travel as decimal strings end to end so the
// database does all arithmetic.
package store

import (
	"errors"
	"regexp"

	"github.com/go-sql-driver/mysql"
)

var ErrBadAmount = errors.New("amount must be a decimal number with at most two fraction digits")

var amountPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]{1,2})?$`)

func validateAmount(s string) error {
	if !amountPattern.MatchString(s) {
		return ErrBadAmount
	}
	return nil
}

// isDuplicateEntry reports whether err is a MySQL unique key violation.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
