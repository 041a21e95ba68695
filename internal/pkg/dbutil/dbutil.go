package dbutil

import (
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Finalize rebinds a gendry/sqlx "?" query to Postgres dollar placeholders.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func IsConflict(err error) bool {
	if pgErr, ok := err.(*pq.Error); ok {
		return pgErr.Code == "23505"
	}
	return false
}
