package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/json-to-terraform/atc/internal/archive"
	"github.com/json-to-terraform/atc/internal/component"
	"github.com/json-to-terraform/atc/internal/editor"
	"github.com/json-to-terraform/atc/internal/filter"
	"github.com/json-to-terraform/atc/internal/persistence"
)

// APIError is the JSON error body of every failed request.
type APIError struct {
	Code        int               `json:"code"`
	Message     string            `json:"message"`
	Details     string            `json:"details,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Context     map[string]any    `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// NewAPIError creates an API error.
func NewAPIError(code int, message, details string) *APIError {
	return &APIError{Code: code, Message: message, Details: details}
}

func BadRequestError(message, details string) *APIError {
	return NewAPIError(http.StatusBadRequest, message, details)
}

func NotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    http.StatusNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Context: map[string]any{"id": id},
	}
}

func ConflictError(message, details string) *APIError {
	return NewAPIError(http.StatusConflict, message, details)
}

func InternalError(message, details string) *APIError {
	return NewAPIError(http.StatusInternalServerError, message, details)
}

// ValidationError reports request fields that failed validation.
func ValidationError(err error) *APIError {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
		}
	}
	return &APIError{
		Code:        http.StatusBadRequest,
		Message:     "Invalid request",
		Details:     err.Error(),
		FieldErrors: fields,
	}
}

// errorStatus maps domain errors onto HTTP status codes.
var errorStatus = []struct {
	target error
	code   int
}{
	{component.ErrNotFound, http.StatusNotFound},
	{component.ErrInvalidName, http.StatusBadRequest},
	{archive.ErrNotFound, http.StatusNotFound},
	{archive.ErrInvalidName, http.StatusBadRequest},
	{persistence.ErrNotFound, http.StatusNotFound},
	{persistence.ErrInvalidName, http.StatusBadRequest},
	{editor.ErrSessionNotFound, http.StatusNotFound},
	{editor.ErrNodeNotFound, http.StatusNotFound},
	{editor.ErrNoSelection, http.StatusConflict},
	{editor.ErrSelectionSuperseded, http.StatusConflict},
	{editor.ErrReadOnlyProperty, http.StatusBadRequest},
	{filter.ErrNotOffered, http.StatusBadRequest},
}

// FromError converts a domain error into an APIError.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, m := range errorStatus {
		if errors.Is(err, m.target) {
			return NewAPIError(m.code, getHTTPMessage(m.code), err.Error())
		}
	}
	return InternalError("Internal server error", err.Error())
}

// HTTPErrorHandler renders errors returned by handlers as APIError JSON.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		apiErr = &APIError{
			Code:    he.Code,
			Message: getHTTPMessage(he.Code),
			Details: fmt.Sprintf("%v", he.Message),
		}
	} else {
		apiErr = FromError(err)
	}

	if apiErr.Code == http.StatusInternalServerError && !c.Echo().Debug {
		apiErr.Details = "An internal error occurred. Please try again later."
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(apiErr.Code)
	} else {
		werr = c.JSON(apiErr.Code, apiErr)
	}
	if werr != nil {
		c.Logger().Error(werr)
	}
}

func getHTTPMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "Bad request"
	case http.StatusNotFound:
		return "Resource not found"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusUnprocessableEntity:
		return "Unprocessable entity"
	case http.StatusTooManyRequests:
		return "Too many requests"
	case http.StatusInternalServerError:
		return "Internal server error"
	default:
		return http.StatusText(code)
	}
}
