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

type WholesaleHandler struct {
	wholesaleService service.WholesaleService
	auth             *middleware.Auth
}

func NewWholesaleHandler(wholesaleService service.WholesaleService, auth *middleware.Auth) *WholesaleHandler {
	return &WholesaleHandler{wholesaleService: wholesaleService, auth: auth}
}

func (h *WholesaleHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := h.auth.RequireRole(model.RoleAdmin, model.RoleStaff)

	wholesale := router.Group("/api/wholesale", staff)
	{
		wholesale.POST("/clients", h.CreateClient)
		wholesale.GET("/clients", h.ListClients)
		wholesale.PUT("/clients/:id", h.UpdateClient)

		wholesale.POST("/items", h.CreateItem)
		wholesale.GET("/items", h.ListItems)
		wholesale.PUT("/items/:id", h.UpdateItem)

		wholesale.POST("/orders", h.CreateOrder)
		wholesale.GET("/orders", h.ListOrders)
		wholesale.GET("/orders/:id", h.GetOrder)
	}
}

// CreateClient registers a wholesale buyer
// @Summary      Create wholesale client
// @Tags         wholesale
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.WholesaleClientRequest  true  "Client Payload"
// @Success      201      {object}  response.Response{data=model.WholesaleClient}
// @Failure      400      {object}  response.Response
// @Router       /api/wholesale/clients [post]
func (h *WholesaleHandler) CreateClient(c *gin.Context) {
	var req service.WholesaleClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	client, err := h.wholesaleService.CreateClient(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, client))
}

// ListClients returns a paginated list of wholesale clients
// @Summary      List wholesale clients
// @Tags         wholesale
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Partial match on name or id number"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/wholesale/clients [get]
func (h *WholesaleHandler) ListClients(c *gin.Context) {
	params := pagination.Parse(c)

	clients, total, err := h.wholesaleService.ListClients(c.Request.Context(), middleware.OrgID(c), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		failRead(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"clients": clients,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// UpdateClient edits a wholesale client
// @Summary      Update wholesale client
// @Tags         wholesale
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Client ID"
// @Param        payload  body      service.WholesaleClientRequest  true  "Client Payload"
// @Success      200      {object}  response.Response{data=model.WholesaleClient}
// @Failure      404      {object}  response.Response
// @Router       /api/wholesale/clients/{id} [put]
func (h *WholesaleHandler) UpdateClient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.WholesaleClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	client, err := h.wholesaleService.UpdateClient(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

// CreateItem adds a wholesale catalog item
// @Summary      Create wholesale item
// @Tags         wholesale
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.WholesaleItemRequest  true  "Item Payload"
// @Success      201      {object}  response.Response{data=model.WholesaleItem}
// @Failure      400      {object}  response.Response
// @Router       /api/wholesale/items [post]
func (h *WholesaleHandler) CreateItem(c *gin.Context) {
	var req service.WholesaleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.wholesaleService.CreateItem(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// ListItems returns a paginated list of wholesale catalog items
// @Summary      List wholesale items
// @Tags         wholesale
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Partial match on item code or name"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/wholesale/items [get]
func (h *WholesaleHandler) ListItems(c *gin.Context) {
	params := pagination.Parse(c)

	items, total, err := h.wholesaleService.ListItems(c.Request.Context(), middleware.OrgID(c), params.Page, params.Limit, c.Query("search"))
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

// UpdateItem edits a wholesale catalog item
// @Summary      Update wholesale item
// @Tags         wholesale
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Item ID"
// @Param        payload  body      service.WholesaleItemRequest  true  "Item Payload"
// @Success      200      {object}  response.Response{data=model.WholesaleItem}
// @Failure      404      {object}  response.Response
// @Router       /api/wholesale/items/{id} [put]
func (h *WholesaleHandler) UpdateItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.WholesaleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.wholesaleService.UpdateItem(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// CreateOrder places a wholesale order
// @Summary      Create wholesale order
// @Description  Validates discount ceilings and quantity caps per line, then computes totals and generates the order number
// @Tags         wholesale
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateWholesaleOrderRequest  true  "Order Payload"
// @Success      201      {object}  response.Response{data=model.WholesaleOrder}
// @Failure      409      {object}  response.Response
// @Router       /api/wholesale/orders [post]
func (h *WholesaleHandler) CreateOrder(c *gin.Context) {
	var req service.CreateWholesaleOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.wholesaleService.CreateOrder(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders returns a paginated list of wholesale orders
// @Summary      List wholesale orders
// @Tags         wholesale
// @Security     BearerAuth
// @Produce      json
// @Param        order_status  query     string  false  "Filter by order status"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Items per page (default 20)"
// @Success      200           {object}  response.Response{data=object}
// @Router       /api/wholesale/orders [get]
func (h *WholesaleHandler) ListOrders(c *gin.Context) {
	params := pagination.Parse(c)

	orders, total, err := h.wholesaleService.ListOrders(c.Request.Context(), middleware.OrgID(c), params.Page, params.Limit, c.Query("order_status"))
	if err != nil {
		failRead(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	}))
}

// GetOrder returns a wholesale order with its lines
// @Summary      Get wholesale order
// @Tags         wholesale
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.WholesaleOrder}
// @Failure      404  {object}  response.Response
// @Router       /api/wholesale/orders/{id} [get]
func (h *WholesaleHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	order, err := h.wholesaleService.GetOrder(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		failRead(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
