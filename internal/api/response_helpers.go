// internal/api/response_helpers.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbellini/arcanum/internal/apperrors"
)

// APIResponse is the uniform envelope for all JSON endpoints.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError carries a stable machine-readable code next to the message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseHelper centralizes response envelope construction.
type ResponseHelper struct{}

// NewResponseHelper creates a response helper.
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success writes a 200 envelope around data.
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	if len(message) > 0 {
		response.Message = message[0]
	}

	c.JSON(http.StatusOK, response)
}

// Error writes an error envelope with the given status and code.
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: message,
	}

	if len(details) > 0 {
		apiError.Details = details[0]
	}

	response := &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	c.JSON(statusCode, response)
}

// BadRequest writes a 400 envelope.
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, "BAD_REQUEST", message, details...)
}

// Unauthorized writes a 401 envelope.
func (rh *ResponseHelper) Unauthorized(c *gin.Context, message string) {
	rh.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// InternalError writes a 500 envelope.
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, details...)
}

// TooManyRequests writes a 429 envelope.
func (rh *ResponseHelper) TooManyRequests(c *gin.Context, message string) {
	rh.Error(c, http.StatusTooManyRequests, "RATE_LIMITED", message)
}

// ServiceError maps a typed application error onto the HTTP boundary.
// DataSourceError and ResponseFormatError keep their own codes so clients
// can distinguish "catalog broken" from "model misbehaved" from plain 500s.
func (rh *ResponseHelper) ServiceError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidationError(err):
		rh.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case apperrors.IsDataSourceError(err):
		rh.Error(c, http.StatusServiceUnavailable, "DATA_SOURCE_ERROR", err.Error())
	case apperrors.IsResponseFormatError(err):
		rh.Error(c, http.StatusBadGateway, "LLM_RESPONSE_ERROR", err.Error())
	case apperrors.IsUnauthorizedError(err):
		rh.Unauthorized(c, err.Error())
	default:
		rh.InternalError(c, err.Error())
	}
}

func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	if requestID := c.GetString("request_id"); requestID != "" {
		return requestID
	}
	return ""
}
