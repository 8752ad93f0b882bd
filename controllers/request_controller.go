package controllers

import (
	"github.com/gin-gonic/gin"

	"apiworkbench/models"
	"apiworkbench/services"
	"apiworkbench/utils"
)

type RequestController struct {
	requestService *services.RequestService
}

func NewRequestController(requestService *services.RequestService) *RequestController {
	return &RequestController{requestService: requestService}
}

type updateRequestRequest struct {
	Name        *string           `json:"name"`
	Method      *string           `json:"method"`
	URL         *string           `json:"url"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"query_params"`
	BodyType    *models.BodyType  `json:"body_type"`
	Body        *string           `json:"body"`
	FolderID    nullableID        `json:"folder_id"`
	SortOrder   *int              `json:"sort_order"`
}

type reorderRequestsRequest struct {
	RequestIDs []int64 `json:"request_ids"`
}

// ListRequests lists every request, or only those of ?folder_id=.
func (rc *RequestController) ListRequests(c *gin.Context) {
	folderID, ok := optionalQueryID(c, "folder_id")
	if !ok {
		return
	}

	var (
		requests []models.Request
		err      error
	)
	if folderID != nil {
		requests, err = rc.requestService.ListFolderRequests(c.Request.Context(), folderID)
	} else {
		requests, err = rc.requestService.ListRequests(c.Request.Context())
	}
	if err != nil {
		handleError(c, err, "Failed to retrieve requests")
		return
	}
	utils.SuccessResponse(c, "Requests retrieved successfully", requests)
}

func (rc *RequestController) CreateRequest(c *gin.Context) {
	var req services.CreateRequestInput
	if !bindJSON(c, &req, false) {
		return
	}

	request, err := rc.requestService.CreateRequest(c.Request.Context(), req)
	if err != nil {
		handleError(c, err, "Failed to create request")
		return
	}
	utils.CreatedResponse(c, "Request created successfully", request)
}

func (rc *RequestController) GetRequest(c *gin.Context) {
	id, ok := parseID(c, "id", "request")
	if !ok {
		return
	}

	request, err := rc.requestService.GetRequest(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "Failed to retrieve request")
		return
	}
	utils.SuccessResponse(c, "Request retrieved successfully", request)
}

func (rc *RequestController) UpdateRequest(c *gin.Context) {
	id, ok := parseID(c, "id", "request")
	if !ok {
		return
	}
	var req updateRequestRequest
	if !bindJSON(c, &req, false) {
		return
	}

	request, err := rc.requestService.UpdateRequest(c.Request.Context(), id, services.UpdateRequestInput{
		Name:        req.Name,
		Method:      req.Method,
		URL:         req.URL,
		Headers:     req.Headers,
		QueryParams: req.QueryParams,
		BodyType:    req.BodyType,
		Body:        req.Body,
		SetFolder:   req.FolderID.Set,
		FolderID:    req.FolderID.Value,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		handleError(c, err, "Failed to update request")
		return
	}
	utils.SuccessResponse(c, "Request updated successfully", request)
}

func (rc *RequestController) DeleteRequest(c *gin.Context) {
	id, ok := parseID(c, "id", "request")
	if !ok {
		return
	}

	if err := rc.requestService.DeleteRequest(c.Request.Context(), id); err != nil {
		handleError(c, err, "Failed to delete request")
		return
	}
	utils.NoContentResponse(c)
}

func (rc *RequestController) ReorderRequests(c *gin.Context) {
	var req reorderRequestsRequest
	if !bindJSON(c, &req, false) {
		return
	}

	if err := rc.requestService.ReorderRequests(c.Request.Context(), req.RequestIDs); err != nil {
		handleError(c, err, "Failed to reorder requests")
		return
	}
	utils.SuccessResponse(c, "Requests reordered successfully", nil)
}
