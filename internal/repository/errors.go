package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrUnknownReference is returned when a row points at a user or lab that
	// does not exist.
	ErrUnknownReference = errors.New("referenced record does not exist")
)

const (
	uniqueViolation     = pq.ErrorCode("23505")
	foreignKeyViolation = pq.ErrorCode("23503")
)

func pgCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == uniqueViolation
}

// classifyWriteError maps constraint violations onto the repository sentinels
// and returns nil for anything else.
func classifyWriteError(err error) error {
	switch pgCode(err) {
	case uniqueViolation:
		return ErrDuplicate
	case foreignKeyViolation:
		return ErrUnknownReference
	}
	return nil
}
