package handler

import (
	"net/http"

	"opticinvoicer/internal/middleware"
	"opticinvoicer/internal/model"
	"opticinvoicer/internal/service"
	"opticinvoicer/pkg/pagination"
	"opticinvoicer/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
	auth             *middleware.Auth
}

func NewInventoryHandler(inventoryService service.InventoryService, auth *middleware.Auth) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, auth: auth}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := h.auth.RequireRole(model.RoleAdmin, model.RoleStaff)

	inventory := router.Group("/api/inventory", staff)
	{
		inventory.POST("", h.CreateItem)
		inventory.GET("", h.ListItems)
		inventory.GET("/:id", h.GetItem)
		inventory.PUT("/:id", h.UpdateItem)
		inventory.DELETE("/:id", h.DeleteItem)
		inventory.POST("/import-csv", h.ImportCSV)
	}
}

// CreateItem adds a stock keeping unit with a generated SKU
// @Summary      Create inventory item
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.InventoryItemRequest  true  "Inventory Item Payload"
// @Success      201      {object}  response.Response{data=model.InventoryItem}
// @Failure      400      {object}  response.Response
// @Router       /api/inventory [post]
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req service.InventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.inventoryService.CreateItem(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// ListItems returns a filtered page of the organization's inventory
// @Summary      List inventory
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        search     query     string  false  "Partial match on name, SKU or brand"
// @Param        item_type  query     string  false  "Filter by item type"
// @Param        status     query     string  false  "Filter by stock status"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Router       /api/inventory [get]
func (h *InventoryHandler) ListItems(c *gin.Context) {
	params := pagination.Parse(c)

	items, total, err := h.inventoryService.ListItems(c.Request.Context(), middleware.OrgID(c), service.InventoryFilter{
		Search:   c.Query("search"),
		ItemType: c.Query("item_type"),
		Status:   c.Query("status"),
		Page:     params.Page,
		Limit:    params.Limit,
	})
	if err != nil {
		failRead(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetItem returns one inventory item
// @Summary      Get inventory item
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response{data=model.InventoryItem}
// @Failure      404  {object}  response.Response
// @Router       /api/inventory/{id} [get]
func (h *InventoryHandler) GetItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	item, err := h.inventoryService.GetItem(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		failRead(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// UpdateItem edits an inventory item
// @Summary      Update inventory item
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Item ID"
// @Param        payload  body      service.InventoryItemRequest  true  "Inventory Item Payload"
// @Success      200      {object}  response.Response{data=model.InventoryItem}
// @Failure      404      {object}  response.Response
// @Router       /api/inventory/{id} [put]
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.InventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.inventoryService.UpdateItem(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// DeleteItem soft-deletes an inventory item
// @Summary      Delete inventory item
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/inventory/{id} [delete]
func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.inventoryService.DeleteItem(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]string{"message": "item deleted"}))
}

// ImportCSV bulk-creates inventory items from an uploaded CSV file
// @Summary      Import inventory CSV
// @Description  Creates inventory items from a CSV upload; invalid rows are reported per row
// @Tags         inventory
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "CSV file"
// @Success      200   {object}  response.Response{data=service.CSVImportResult}
// @Failure      400   {object}  response.Response
// @Router       /api/inventory/import-csv [post]
func (h *InventoryHandler) ImportCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "CSV file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to open uploaded file"))
		return
	}
	defer file.Close()

	result, err := h.inventoryService.ImportCSV(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), file)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
