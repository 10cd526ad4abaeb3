package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeAlreadyExists      = "ALREADY_EXISTS"
	ErrCodeConflict           = "CONFLICT"

	// Board and points
	ErrCodeBoardNotFound      = "BOARD_NOT_FOUND"
	ErrCodeAlreadyMember      = "ALREADY_MEMBER"
	ErrCodeInsufficientPoints = "INSUFFICIENT_POINTS"
	ErrCodeRequesterLeftBoard = "REQUESTER_LEFT_BOARD"

	// Task mutations and drafting
	ErrCodeUndoExpired       = "UNDO_EXPIRED"
	ErrCodeAIUnparseable     = "AI_UNPARSEABLE"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeRemoteWriteFailed = "REMOTE_WRITE_FAILED"

	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError is the JSON body of every error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// RespondWithError writes err with statusCode and aborts the handler chain
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.AbortWithStatusJSON(statusCode, err)
}

// defaultMessages is used when a helper is called with an empty message
var defaultMessages = map[int]string{
	http.StatusBadRequest:          "Invalid request",
	http.StatusUnauthorized:        "Authentication required",
	http.StatusForbidden:           "Access denied",
	http.StatusNotFound:            "Resource not found",
	http.StatusConflict:            "Resource conflict",
	http.StatusTooManyRequests:     "Too many requests",
	http.StatusInternalServerError: "Internal server error",
	http.StatusBadGateway:          "Remote write failed",
	http.StatusServiceUnavailable:  "Service temporarily unavailable",
}

func respond(c *gin.Context, status int, code, message string, details interface{}) {
	if message == "" {
		message = defaultMessages[status]
	}
	RespondWithError(c, status, &APIError{Code: code, Message: message, Details: details})
}

func Unauthorized(c *gin.Context, message string) {
	respond(c, http.StatusUnauthorized, ErrCodeUnauthorized, message, nil)
}

func Forbidden(c *gin.Context, message string) {
	respond(c, http.StatusForbidden, ErrCodeForbidden, message, nil)
}

func NotFound(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, ErrCodeNotFound, message, nil)
}

// NotFoundWithCode sends a 404 with a domain code such as BOARD_NOT_FOUND
func NotFoundWithCode(c *gin.Context, code, message string) {
	respond(c, http.StatusNotFound, code, message, nil)
}

func BadRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, ErrCodeInvalidInput, message, nil)
}

func Conflict(c *gin.Context, message string) {
	respond(c, http.StatusConflict, ErrCodeConflict, message, nil)
}

// ConflictWithCode sends a 409 with a domain code such as INSUFFICIENT_POINTS
func ConflictWithCode(c *gin.Context, code, message string) {
	respond(c, http.StatusConflict, code, message, nil)
}

// Gone sends a 410, used for expired undo tokens
func Gone(c *gin.Context, code, message string) {
	respond(c, http.StatusGone, code, message, nil)
}

func UnprocessableEntity(c *gin.Context, code, message string) {
	respond(c, http.StatusUnprocessableEntity, code, message, nil)
}

func TooManyRequests(c *gin.Context, message string) {
	respond(c, http.StatusTooManyRequests, ErrCodeRateLimited, message, nil)
}

func InternalError(c *gin.Context, message string) {
	respond(c, http.StatusInternalServerError, ErrCodeInternalError, message, nil)
}

func ServiceUnavailable(c *gin.Context, message string) {
	respond(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message, nil)
}

// BadGateway reports a primary store write that failed after an optimistic
// change. details carries the rolled back state.
func BadGateway(c *gin.Context, message string, details interface{}) {
	respond(c, http.StatusBadGateway, ErrCodeRemoteWriteFailed, message, details)
}
