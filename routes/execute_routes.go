package routes

import (
	"github.com/gin-gonic/gin"

	"apiworkbench/controllers"
	"apiworkbench/services"
)

func RegisterExecuteRoutes(rg *gin.RouterGroup, executor *services.Executor) {
	executeController := controllers.NewExecuteController(executor)

	execute := rg.Group("/execute")
	{
		execute.POST("", executeController.ExecuteAdHoc)             // POST /execute (unsaved request)
		execute.POST("/:request_id", executeController.ExecuteSaved) // POST /execute/:request_id
	}
}
