package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"apiworkbench/services"
	"apiworkbench/utils"
)

type HistoryController struct {
	historyService *services.HistoryService
}

func NewHistoryController(historyService *services.HistoryService) *HistoryController {
	return &HistoryController{historyService: historyService}
}

// ListHistory pages with ?skip= and ?limit=, newest first.
func (hc *HistoryController) ListHistory(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		utils.ValidationErrorResponse(c, "skip must be a non-negative integer")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultHistoryLimit)))
	if err != nil || limit < 1 || limit > services.MaxHistoryLimit {
		utils.ValidationErrorResponse(c, "limit must be between 1 and "+strconv.Itoa(services.MaxHistoryLimit))
		return
	}

	page, err := hc.historyService.ListHistory(c.Request.Context(), skip, limit)
	if err != nil {
		handleError(c, err, "Failed to retrieve history")
		return
	}
	utils.SuccessResponse(c, "History retrieved successfully", page)
}

func (hc *HistoryController) GetHistory(c *gin.Context) {
	id, ok := parseID(c, "id", "history")
	if !ok {
		return
	}

	entry, err := hc.historyService.GetHistory(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "Failed to retrieve history entry")
		return
	}
	utils.SuccessResponse(c, "History entry retrieved successfully", entry)
}

func (hc *HistoryController) DeleteHistory(c *gin.Context) {
	id, ok := parseID(c, "id", "history")
	if !ok {
		return
	}

	if err := hc.historyService.DeleteHistory(c.Request.Context(), id); err != nil {
		handleError(c, err, "Failed to delete history entry")
		return
	}
	utils.NoContentResponse(c)
}

func (hc *HistoryController) ClearHistory(c *gin.Context) {
	if _, err := hc.historyService.ClearHistory(c.Request.Context()); err != nil {
		handleError(c, err, "Failed to clear history")
		return
	}
	utils.NoContentResponse(c)
}
