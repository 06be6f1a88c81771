// Package errors provides structured error handling for the engine.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeInvalidArgument indicates malformed or missing request input.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// Session lifecycle errors
	CodeNotFound            Code = "NOT_FOUND"
	CodeActiveSessionExists Code = "ACTIVE_SESSION_EXISTS"
	CodeSessionNotActive    Code = "SESSION_NOT_ACTIVE"
	CodeVersionConflict     Code = "STATE_VERSION_CONFLICT"

	// Character errors
	CodeCharacterNotFound Code = "CHARACTER_NOT_FOUND"

	// Transport errors
	CodeDecryptFailed Code = "DECRYPT_FAILED"
	CodeKeyNotFound   Code = "SESSION_KEY_NOT_FOUND"
	CodeTokenInvalid  Code = "SESSION_TOKEN_INVALID"

	// Persistence errors
	CodeStorageFailure Code = "STORAGE_FAILURE"
)

// HTTPStatus maps an error code to the HTTP status returned at the API edge.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument, CodeDecryptFailed, CodeKeyNotFound:
		return http.StatusBadRequest
	case CodeTokenInvalid:
		return http.StatusUnauthorized
	case CodeNotFound, CodeCharacterNotFound:
		return http.StatusNotFound
	case CodeActiveSessionExists, CodeSessionNotActive, CodeVersionConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
