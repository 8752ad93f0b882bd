package controllers

import (
	"github.com/gin-gonic/gin"

	"apiworkbench/services"
	"apiworkbench/utils"
)

type EnvironmentController struct {
	environmentService *services.EnvironmentService
}

func NewEnvironmentController(environmentService *services.EnvironmentService) *EnvironmentController {
	return &EnvironmentController{environmentService: environmentService}
}

func (ec *EnvironmentController) ListEnvironments(c *gin.Context) {
	envs, err := ec.environmentService.ListEnvironments(c.Request.Context())
	if err != nil {
		handleError(c, err, "Failed to retrieve environments")
		return
	}
	utils.SuccessResponse(c, "Environments retrieved successfully", envs)
}

func (ec *EnvironmentController) GetActiveEnvironment(c *gin.Context) {
	env, err := ec.environmentService.GetActiveEnvironment(c.Request.Context())
	if err != nil {
		handleError(c, err, "Failed to retrieve active environment")
		return
	}
	utils.SuccessResponse(c, "Active environment retrieved successfully", env)
}

func (ec *EnvironmentController) CreateEnvironment(c *gin.Context) {
	var req services.CreateEnvironmentInput
	if !bindJSON(c, &req, false) {
		return
	}

	env, err := ec.environmentService.CreateEnvironment(c.Request.Context(), req)
	if err != nil {
		handleError(c, err, "Failed to create environment")
		return
	}
	utils.CreatedResponse(c, "Environment created successfully", env)
}

func (ec *EnvironmentController) GetEnvironment(c *gin.Context) {
	id, ok := parseID(c, "id", "environment")
	if !ok {
		return
	}

	env, err := ec.environmentService.GetEnvironment(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "Failed to retrieve environment")
		return
	}
	utils.SuccessResponse(c, "Environment retrieved successfully", env)
}

func (ec *EnvironmentController) UpdateEnvironment(c *gin.Context) {
	id, ok := parseID(c, "id", "environment")
	if !ok {
		return
	}
	var req services.UpdateEnvironmentInput
	if !bindJSON(c, &req, false) {
		return
	}

	env, err := ec.environmentService.UpdateEnvironment(c.Request.Context(), id, req)
	if err != nil {
		handleError(c, err, "Failed to update environment")
		return
	}
	utils.SuccessResponse(c, "Environment updated successfully", env)
}

func (ec *EnvironmentController) ActivateEnvironment(c *gin.Context) {
	id, ok := parseID(c, "id", "environment")
	if !ok {
		return
	}

	env, err := ec.environmentService.ActivateEnvironment(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "Failed to activate environment")
		return
	}
	utils.SuccessResponse(c, "Environment activated successfully", env)
}

func (ec *EnvironmentController) DeleteEnvironment(c *gin.Context) {
	id, ok := parseID(c, "id", "environment")
	if !ok {
		return
	}

	if err := ec.environmentService.DeleteEnvironment(c.Request.Context(), id); err != nil {
		handleError(c, err, "Failed to delete environment")
		return
	}
	utils.NoContentResponse(c)
}

func (ec *EnvironmentController) AddVariable(c *gin.Context) {
	envID, ok := parseID(c, "id", "environment")
	if !ok {
		return
	}
	var req services.VariableInput
	if !bindJSON(c, &req, false) {
		return
	}

	variable, err := ec.environmentService.AddVariable(c.Request.Context(), envID, req)
	if err != nil {
		handleError(c, err, "Failed to add variable")
		return
	}
	utils.CreatedResponse(c, "Variable created successfully", variable)
}

func (ec *EnvironmentController) UpdateVariable(c *gin.Context) {
	envID, ok := parseID(c, "id", "environment")
	if !ok {
		return
	}
	variableID, ok := parseID(c, "variable_id", "variable")
	if !ok {
		return
	}
	var req services.UpdateVariableInput
	if !bindJSON(c, &req, false) {
		return
	}

	variable, err := ec.environmentService.UpdateVariable(c.Request.Context(), envID, variableID, req)
	if err != nil {
		handleError(c, err, "Failed to update variable")
		return
	}
	utils.SuccessResponse(c, "Variable updated successfully", variable)
}

func (ec *EnvironmentController) DeleteVariable(c *gin.Context) {
	envID, ok := parseID(c, "id", "environment")
	if !ok {
		return
	}
	variableID, ok := parseID(c, "variable_id", "variable")
	if !ok {
		return
	}

	if err := ec.environmentService.DeleteVariable(c.Request.Context(), envID, variableID); err != nil {
		handleError(c, err, "Failed to delete variable")
		return
	}
	utils.NoContentResponse(c)
}
