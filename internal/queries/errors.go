package queries

import (
	"fmt"

	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// Query layer error codes. Store failures keep the graph package codes.
const (
	ErrCodeNotFound     types.ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput types.ErrorCode = "INVALID_INPUT"
	ErrCodeTransition   types.ErrorCode = "INVALID_TRANSITION"
)

// ErrNotFound matches any not-found error via errors.Is.
var ErrNotFound = types.NewError(ErrCodeNotFound, "not found")

func notFound(kind, id string) error {
	return types.NewError(ErrCodeNotFound, fmt.Sprintf("%s %s not found", kind, id))
}

func invalidInput(msg string) error {
	return types.NewError(ErrCodeInvalidInput, msg)
}
