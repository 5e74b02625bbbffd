// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

// violatedColumn guesses which of columns a unique violation refers to, using
// the constraint name on PostgreSQL and the error text elsewhere.
func violatedColumn(err error, columns ...string) string {
	text := strings.ToLower(err.Error())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		text = strings.ToLower(pgErr.ConstraintName + " " + pgErr.Detail)
	}
	for _, col := range columns {
		if strings.Contains(text, col) {
			return col
		}
	}
	return ""
}
