// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on message text. Every error response carries one of these codes
// together with the request id:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "validation_failed",
//	  "message": "associated_event_codes: must contain at least one code"
//	}
//
// writeError maps service errors onto status and code:
//
//	services.ErrDuplicateCode  -> 409 conflict
//	services.ErrValidation     -> 422 validation_failed
//	services.ErrNotFound       -> 404 not_found
//	context deadline exceeded  -> 504 timeout
//	anything else              -> 500 with the caller's fallback code
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hl7-monitor-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeValidation       = "validation_failed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeTimeout          = "timeout"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeListFailed   = "list_failed"
	ErrCodeCreateFailed = "create_failed"
	ErrCodeUpdateFailed = "update_failed"
	ErrCodeDeleteFailed = "delete_failed"
)

// writeError translates err into the error envelope. fallback is the code
// used for unexpected (5xx) errors.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrDuplicateCode):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeTimeout, "store did not answer in time")
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}
