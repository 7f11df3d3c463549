package sqlite

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/job-tracker/internal/repository"
)

// translate converts driver constraint errors into
// *repository.ConstraintViolation and passes everything else through.
func translate(err error) error {
	if err == nil {
		return nil
	}

	kind, ok := kindFromCode(err)
	if !ok {
		kind, ok = kindFromMessage(err.Error())
	}
	if !ok {
		return err
	}

	table, column := constraintTarget(err.Error())
	return &repository.ConstraintViolation{Kind: kind, Table: table, Column: column, Err: err}
}

// kindFromCode reads the extended result code; modernc enables extended
// codes on every connection.
func kindFromCode(err error) (repository.ConstraintKind, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return "", false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return repository.ConstraintUnique, true
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return repository.ConstraintCheck, true
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return repository.ConstraintForeignKey, true
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return repository.ConstraintNotNull, true
	}
	return "", false
}

// kindFromMessage is the fallback for wrapped or foreign errors that only
// carry SQLite's message text.
func kindFromMessage(msg string) (repository.ConstraintKind, bool) {
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return repository.ConstraintUnique, true
	case strings.Contains(msg, "CHECK constraint failed"):
		return repository.ConstraintCheck, true
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return repository.ConstraintForeignKey, true
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return repository.ConstraintNotNull, true
	}
	return "", false
}

// constraintTarget extracts "table.column" from messages such as
//
//	constraint failed: UNIQUE constraint failed: users.email (2067)
//
// The driver prefixes SQLite's own text, so the last marker is the one that
// counts. Composite keys list several columns; only the first is reported.
func constraintTarget(msg string) (table, column string) {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return "", ""
	}
	rest := msg[i+len(marker):]
	if i := strings.IndexAny(rest, " ,("); i >= 0 {
		rest = rest[:i]
	}
	table, column, ok := strings.Cut(rest, ".")
	if !ok {
		return "", ""
	}
	return table, column
}
