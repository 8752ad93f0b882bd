package controllers

import (
	"github.com/gin-gonic/gin"

	"apiworkbench/services"
	"apiworkbench/utils"
)

type ExecuteController struct {
	executor *services.Executor
}

func NewExecuteController(executor *services.Executor) *ExecuteController {
	return &ExecuteController{executor: executor}
}

type executeOptions struct {
	EnvironmentID *int64 `json:"environment_id"`
}

type executeAdHocRequest struct {
	services.ExecuteInput
	EnvironmentID *int64 `json:"environment_id"`
}

// environmentID prefers ?environment_id= over the body field.
func environmentID(c *gin.Context, fromBody *int64) (*int64, bool) {
	fromQuery, ok := optionalQueryID(c, "environment_id")
	if !ok {
		return nil, false
	}
	if fromQuery != nil {
		return fromQuery, true
	}
	return fromBody, true
}

// ExecuteSaved runs a stored request.
func (ec *ExecuteController) ExecuteSaved(c *gin.Context) {
	requestID, ok := parseID(c, "request_id", "request")
	if !ok {
		return
	}
	var opts executeOptions
	if !bindJSON(c, &opts, true) {
		return
	}
	envID, ok := environmentID(c, opts.EnvironmentID)
	if !ok {
		return
	}

	result, err := ec.executor.ExecuteSaved(c.Request.Context(), requestID, envID)
	if err != nil {
		handleError(c, err, "Failed to execute request")
		return
	}
	utils.SuccessResponse(c, "Request executed successfully", result)
}

// ExecuteAdHoc runs an unsaved request definition.
func (ec *ExecuteController) ExecuteAdHoc(c *gin.Context) {
	var req executeAdHocRequest
	if !bindJSON(c, &req, false) {
		return
	}
	envID, ok := environmentID(c, req.EnvironmentID)
	if !ok {
		return
	}

	result, err := ec.executor.Execute(c.Request.Context(), req.ExecuteInput, envID, nil)
	if err != nil {
		handleError(c, err, "Failed to execute request")
		return
	}
	utils.SuccessResponse(c, "Request executed successfully", result)
}
