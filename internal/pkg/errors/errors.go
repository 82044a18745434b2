package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a uniqueness violation (alias, content hash, record key).
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvariantViolation signals an operation that would break a model invariant,
	// such as removing a person's last alias.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrDuplicateUpload signals a batch upload whose content hash already exists.
	ErrDuplicateUpload = errors.New("duplicate upload")
	// ErrParseFailure signals that an uploaded file could not be read at all.
	// It applies to the whole batch, never to individual rows.
	ErrParseFailure = errors.New("parse failure")
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// AsConflict maps unique-constraint violations onto ErrConflict so callers can
// match with errors.Is without knowing the driver. Other errors pass through.
func AsConflict(err error) error {
	if err == nil {
		return nil
	}
	if IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}
