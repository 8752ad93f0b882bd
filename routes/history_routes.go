package routes

import (
	"github.com/gin-gonic/gin"

	"apiworkbench/controllers"
	"apiworkbench/services"
)

func RegisterHistoryRoutes(rg *gin.RouterGroup, historyService *services.HistoryService) {
	historyController := controllers.NewHistoryController(historyService)

	history := rg.Group("/history")
	{
		history.GET("", historyController.ListHistory)
		history.DELETE("", historyController.ClearHistory)
		history.GET("/:id", historyController.GetHistory)
		history.DELETE("/:id", historyController.DeleteHistory)
	}
}
