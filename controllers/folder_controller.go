package controllers

import (
	"github.com/gin-gonic/gin"

	"apiworkbench/services"
	"apiworkbench/utils"
)

type FolderController struct {
	folderService  *services.FolderService
	requestService *services.RequestService
}

func NewFolderController(folderService *services.FolderService, requestService *services.RequestService) *FolderController {
	return &FolderController{
		folderService:  folderService,
		requestService: requestService,
	}
}

type updateFolderRequest struct {
	Name           *string    `json:"name"`
	ParentFolderID nullableID `json:"parent_folder_id"`
}

type reorderFoldersRequest struct {
	FolderIDs []int64 `json:"folder_ids"`
}

func (fc *FolderController) ListFolders(c *gin.Context) {
	folders, err := fc.folderService.ListFolders(c.Request.Context())
	if err != nil {
		handleError(c, err, "Failed to retrieve folders")
		return
	}
	utils.SuccessResponse(c, "Folders retrieved successfully", folders)
}

func (fc *FolderController) GetTree(c *gin.Context) {
	tree, err := fc.folderService.GetTree(c.Request.Context())
	if err != nil {
		handleError(c, err, "Failed to build folder tree")
		return
	}
	utils.SuccessResponse(c, "Folder tree retrieved successfully", tree)
}

func (fc *FolderController) ListStandaloneRequests(c *gin.Context) {
	requests, err := fc.requestService.ListFolderRequests(c.Request.Context(), nil)
	if err != nil {
		handleError(c, err, "Failed to retrieve standalone requests")
		return
	}
	utils.SuccessResponse(c, "Standalone requests retrieved successfully", requests)
}

func (fc *FolderController) CreateFolder(c *gin.Context) {
	var req services.CreateFolderInput
	if !bindJSON(c, &req, false) {
		return
	}

	folder, err := fc.folderService.CreateFolder(c.Request.Context(), req)
	if err != nil {
		handleError(c, err, "Failed to create folder")
		return
	}
	utils.CreatedResponse(c, "Folder created successfully", folder)
}

func (fc *FolderController) GetFolder(c *gin.Context) {
	id, ok := parseID(c, "id", "folder")
	if !ok {
		return
	}

	folder, err := fc.folderService.GetFolder(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "Failed to retrieve folder")
		return
	}
	utils.SuccessResponse(c, "Folder retrieved successfully", folder)
}

// UpdateFolder renames and/or moves a folder. An explicit null
// parent_folder_id moves it to the root; an absent one leaves it in place.
func (fc *FolderController) UpdateFolder(c *gin.Context) {
	id, ok := parseID(c, "id", "folder")
	if !ok {
		return
	}
	var req updateFolderRequest
	if !bindJSON(c, &req, false) {
		return
	}

	folder, err := fc.folderService.UpdateFolder(c.Request.Context(), id, services.UpdateFolderInput{
		Name:           req.Name,
		SetParent:      req.ParentFolderID.Set,
		ParentFolderID: req.ParentFolderID.Value,
	})
	if err != nil {
		handleError(c, err, "Failed to update folder")
		return
	}
	utils.SuccessResponse(c, "Folder updated successfully", folder)
}

func (fc *FolderController) DeleteFolder(c *gin.Context) {
	id, ok := parseID(c, "id", "folder")
	if !ok {
		return
	}

	if err := fc.folderService.DeleteFolder(c.Request.Context(), id); err != nil {
		handleError(c, err, "Failed to delete folder")
		return
	}
	utils.NoContentResponse(c)
}

func (fc *FolderController) ReorderFolders(c *gin.Context) {
	var req reorderFoldersRequest
	if !bindJSON(c, &req, false) {
		return
	}

	if err := fc.folderService.ReorderFolders(c.Request.Context(), req.FolderIDs); err != nil {
		handleError(c, err, "Failed to reorder folders")
		return
	}
	utils.SuccessResponse(c, "Folders reordered successfully", nil)
}
