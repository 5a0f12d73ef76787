package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// SQLSTATE codes the repositories branch on.
const (
	codeUniqueViolation      = "23505"
	codeInvalidTextRepr      = "22P02"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pqCode(err error) (pq.ErrorCode, string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code, pqErr.Constraint, true
	}
	return "", "", false
}

func isUniqueViolation(err error, constraint string) bool {
	code, name, ok := pqCode(err)
	return ok && code == codeUniqueViolation && (constraint == "" || name == constraint)
}

// isInvalidText matches a malformed UUID in a lookup; callers treat it as
// "no such record".
func isInvalidText(err error) bool {
	code, _, ok := pqCode(err)
	return ok && code == codeInvalidTextRepr
}

func isSerializationFailure(err error) bool {
	code, _, ok := pqCode(err)
	return ok && (code == codeSerializationFailure || code == codeDeadlockDetected)
}
