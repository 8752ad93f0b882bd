package routes

import (
	"github.com/gin-gonic/gin"

	"apiworkbench/controllers"
	"apiworkbench/services"
)

func RegisterRequestRoutes(rg *gin.RouterGroup, requestService *services.RequestService) {
	requestController := controllers.NewRequestController(requestService)

	requests := rg.Group("/requests")
	{
		requests.GET("", requestController.ListRequests)
		requests.POST("", requestController.CreateRequest)
		requests.POST("/reorder", requestController.ReorderRequests)
		requests.GET("/:id", requestController.GetRequest)
		requests.PUT("/:id", requestController.UpdateRequest)
		requests.DELETE("/:id", requestController.DeleteRequest)
	}
}
