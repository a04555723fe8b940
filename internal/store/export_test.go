package store

import "github.com/jmoiron/sqlx"

// DB exposes the connection pool to tests.
func (s *SQLiteStore) DB() *sqlx.DB {
	return s.db
}
