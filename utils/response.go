package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable codes carried in APIResponse.Error.
const (
	CodeNotFound         = "not_found"
	CodeInvalidOperation = "invalid_operation"
	CodeValidationFailed = "validation_failed"
	CodeInternalError    = "internal_error"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// ExecutionErrorBody is the error payload of a failed execution.
type ExecutionErrorBody struct {
	ErrorType string `json:"error_type"`
	Details   string `json:"details"`
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func NoContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func ErrorResponse(c *gin.Context, statusCode int, message string, err interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Message: message,
		Error:   err,
	})
}

func BadRequestResponse(c *gin.Context, message string, err interface{}) {
	ErrorResponse(c, http.StatusBadRequest, message, err)
}

func ValidationErrorResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message, CodeValidationFailed)
}

func InvalidOperationResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message, CodeInvalidOperation)
}

func NotFoundResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message, CodeNotFound)
}

func InternalServerErrorResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, message, CodeInternalError)
}

func ExecutionErrorResponse(c *gin.Context, statusCode int, message, errorType, details string) {
	ErrorResponse(c, statusCode, message, ExecutionErrorBody{ErrorType: errorType, Details: details})
}
