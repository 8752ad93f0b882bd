package routes

import (
	"github.com/gin-gonic/gin"

	"apiworkbench/controllers"
	"apiworkbench/services"
)

func RegisterFolderRoutes(rg *gin.RouterGroup, folderService *services.FolderService, requestService *services.RequestService) {
	folderController := controllers.NewFolderController(folderService, requestService)

	folders := rg.Group("/folders")
	{
		folders.GET("", folderController.ListFolders)                                // GET /folders
		folders.POST("", folderController.CreateFolder)                              // POST /folders
		folders.GET("/tree", folderController.GetTree)                               // GET /folders/tree
		folders.GET("/standalone-requests", folderController.ListStandaloneRequests) // GET /folders/standalone-requests
		folders.POST("/reorder", folderController.ReorderFolders)                    // POST /folders/reorder
		folders.GET("/:id", folderController.GetFolder)                              // GET /folders/:id
		folders.PUT("/:id", folderController.UpdateFolder)                           // PUT /folders/:id (rename and/or move)
		folders.DELETE("/:id", folderController.DeleteFolder)                        // DELETE /folders/:id (cascades)
	}
}
