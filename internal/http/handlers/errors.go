// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These symbolic constants are mapped to HTTP responses via the `fail()`
// helper and give clients a stable, machine-readable error taxonomy next to
// the human-readable message. Generic codes mirror common HTTP status
// semantics; domain-specific codes cover business outcomes a status alone
// cannot convey (a table conflict is a 409, but so would be a duplicate
// review).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "table_conflict",
//	  "message": "table 3 is already booked for this time"
//	}
package handlers

const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeForbidden  = "forbidden"
	ErrCodeNotFound   = "not_found"
	ErrCodeConflict   = "conflict"
	ErrCodeInternal   = "internal_error"

	// Domain-specific:
	ErrCodeTableConflict    = "table_conflict"
	ErrCodeNotOwner         = "not_owner"
	ErrCodeTerminalStatus   = "terminal_status"
	ErrCodeNotBroadcasting  = "not_broadcasting"
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
