package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidTitle      ErrorCode = "INVALID_TITLE"
	ErrCodeInvalidPriority   ErrorCode = "INVALID_PRIORITY"
	ErrCodeInvalidAttachment ErrorCode = "INVALID_ATTACHMENT"
	ErrCodeEmptyMessageBody  ErrorCode = "EMPTY_MESSAGE_BODY"

	ErrCodeTicketNotFound      ErrorCode = "TICKET_NOT_FOUND"
	ErrCodeAttachmentNotFound  ErrorCode = "ATTACHMENT_NOT_FOUND"
	ErrCodeOrgUnitNotFound     ErrorCode = "ORG_UNIT_NOT_FOUND"
	ErrCodeOrgUnitOutOfScope   ErrorCode = "ORG_UNIT_OUT_OF_SCOPE"
	ErrCodeTeamAccessDenied    ErrorCode = "TEAM_ACCESS_DENIED"
	ErrCodeAgentAccessRequired ErrorCode = "AGENT_ACCESS_REQUIRED"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeStatusConflict      ErrorCode = "STATUS_CONFLICT"
	ErrCodeAttachmentBlocked   ErrorCode = "ATTACHMENT_BLOCKED"
	ErrCodeScanPending         ErrorCode = "ATTACHMENT_SCAN_PENDING"
	ErrCodeScanFailed          ErrorCode = "ATTACHMENT_SCAN_FAILED"
	ErrCodeAssigneeNotInTeam   ErrorCode = "ASSIGNEE_NOT_IN_TEAM"
	ErrCodeAssigneeNotFound    ErrorCode = "ASSIGNEE_NOT_FOUND"
	ErrCodeStorageUnavailable  ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeInvalidCredentials  ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired        ErrorCode = "TOKEN_EXPIRED"
	ErrCodeUnauthorizedAccess  ErrorCode = "UNAUTHORIZED_ACCESS"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Join() string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return strings.Join(messages, "; ")
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewExternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       ErrCodeStorageUnavailable,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

var (
	// Anti-enumeration: confidential and out-of-scope denials for a ticket
	// fetched by id must be indistinguishable from a missing ticket.
	ErrTicketNotFound     = NewNotFoundError("Ticket not found", ErrCodeTicketNotFound)
	ErrAttachmentNotFound = NewNotFoundError("Attachment not found", ErrCodeAttachmentNotFound)
	ErrOrgUnitNotFound    = NewNotFoundError("Org unit not found", ErrCodeOrgUnitNotFound)

	ErrOrgUnitOutOfScope   = NewForbiddenError("Org unit out of scope", ErrCodeOrgUnitOutOfScope)
	ErrTeamAccessDenied    = NewForbiddenError("User not permitted to act on this team", ErrCodeTeamAccessDenied)
	ErrAgentAccessRequired = NewForbiddenError("Agent access required", ErrCodeAgentAccessRequired)

	ErrInvalidTransition = NewValidationError("invalid status transition", ErrCodeInvalidTransition)
	ErrStatusConflict    = NewConflictError("ticket status changed concurrently", ErrCodeStatusConflict)

	ErrAttachmentBlocked = NewForbiddenError("Attachment blocked", ErrCodeAttachmentBlocked)
	ErrScanPending       = NewConflictError("Attachment scan pending", ErrCodeScanPending)
	ErrScanFailed        = NewConflictError("Attachment scan failed", ErrCodeScanFailed)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
