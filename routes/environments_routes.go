package routes

import (
	"github.com/gin-gonic/gin"

	"apiworkbench/controllers"
	"apiworkbench/services"
)

func RegisterEnvironmentRoutes(rg *gin.RouterGroup, environmentService *services.EnvironmentService) {
	environmentController := controllers.NewEnvironmentController(environmentService)

	environments := rg.Group("/environments")
	{
		environments.GET("", environmentController.ListEnvironments)
		environments.POST("", environmentController.CreateEnvironment)
		environments.GET("/active", environmentController.GetActiveEnvironment)
		environments.GET("/:id", environmentController.GetEnvironment)
		environments.PUT("/:id", environmentController.UpdateEnvironment)
		environments.DELETE("/:id", environmentController.DeleteEnvironment)
		environments.POST("/:id/activate", environmentController.ActivateEnvironment)

		// Variables
		environments.POST("/:id/variables", environmentController.AddVariable)
		environments.PUT("/:id/variables/:variable_id", environmentController.UpdateVariable)
		environments.DELETE("/:id/variables/:variable_id", environmentController.DeleteVariable)
	}
}
