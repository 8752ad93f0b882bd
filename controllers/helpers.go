package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"apiworkbench/services"
	"apiworkbench/utils"
)

// handleError maps service errors onto the response envelope. Anything that
// is not a known domain error is logged and reported generically.
func handleError(c *gin.Context, err error, defaultMessage string) {
	var (
		notFound  *services.NotFoundError
		invalidOp *services.InvalidOperationError
		execErr   *services.ExecutionError
	)

	switch {
	case errors.As(err, &notFound):
		utils.NotFoundResponse(c, notFound.Error())
	case errors.As(err, &invalidOp):
		utils.InvalidOperationResponse(c, invalidOp.Reason)
	case errors.As(err, &execErr):
		utils.ExecutionErrorResponse(c, executionStatus(execErr.Kind), execErr.Message, string(execErr.Kind), execErr.Details)
	case utils.IsValidationError(err):
		utils.ValidationErrorResponse(c, err.Error())
	default:
		utils.LogError(defaultMessage, err, "method", c.Request.Method, "path", c.FullPath())
		utils.InternalServerErrorResponse(c, defaultMessage)
	}
}

func executionStatus(kind services.ExecutionKind) int {
	switch kind {
	case services.ExecutionTimeout:
		return http.StatusGatewayTimeout
	case services.ExecutionNetworkError:
		return http.StatusBadGateway
	case services.ExecutionInvalidURL:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseID reads a positive integer path parameter. On failure it writes a
// 400 response and returns false.
func parseID(c *gin.Context, param, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		utils.ValidationErrorResponse(c, fmt.Sprintf("Invalid %s ID format", label))
		return 0, false
	}
	return id, true
}

// optionalQueryID reads an optional integer query parameter.
func optionalQueryID(c *gin.Context, name string) (*int64, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		utils.ValidationErrorResponse(c, fmt.Sprintf("Invalid %s", name))
		return nil, false
	}
	return &id, true
}

// bindJSON decodes the body into dst. An empty body is accepted when
// allowEmpty is set.
func bindJSON(c *gin.Context, dst any, allowEmpty bool) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		utils.ValidationErrorResponse(c, "Invalid request data: "+err.Error())
		return false
	}
	return true
}

// nullableID distinguishes an absent JSON field from an explicit null.
type nullableID struct {
	Set   bool
	Value *int64
}

func (n *nullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	n.Value = &id
	return nil
}
