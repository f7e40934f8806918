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

type CustomerHandler struct {
	customerService service.CustomerService
	auth            *middleware.Auth
}

func NewCustomerHandler(customerService service.CustomerService, auth *middleware.Auth) *CustomerHandler {
	return &CustomerHandler{customerService: customerService, auth: auth}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := h.auth.RequireRole(model.RoleAdmin, model.RoleStaff)

	customers := router.Group("/api/customers", staff)
	{
		customers.POST("", h.CreateCustomer)
		customers.GET("", h.ListCustomers)
		customers.GET("/:id", h.GetCustomer)
		customers.PUT("/:id", h.UpdateCustomer)
		customers.DELETE("/:id", h.DeleteCustomer)
		customers.POST("/:id/prescriptions", h.CreatePrescription)
		customers.GET("/:id/prescriptions", h.ListPrescriptions)
	}
}

// CreateCustomer registers a walk-in customer
// @Summary      Create customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CustomerRequest  true  "Customer Payload"
// @Success      201      {object}  response.Response{data=model.Customer}
// @Failure      409      {object}  response.Response
// @Router       /api/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// ListCustomers returns a paginated list of active customers
// @Summary      List customers
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Partial match on name, phone or email"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	params := pagination.Parse(c)

	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), middleware.OrgID(c), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		failRead(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"customers": customers,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}

// GetCustomer returns a single customer
// @Summary      Get customer
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=model.Customer}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	customer, err := h.customerService.GetCustomer(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		failRead(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// UpdateCustomer edits contact details
// @Summary      Update customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Customer ID"
// @Param        payload  body      service.CustomerRequest  true  "Customer Payload"
// @Success      200      {object}  response.Response{data=model.Customer}
// @Failure      409      {object}  response.Response
// @Router       /api/customers/{id} [put]
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// DeleteCustomer deactivates a customer, releasing their phone and email
// @Summary      Delete customer
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id} [delete]
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.customerService.DeleteCustomer(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]string{"message": "customer deleted"}))
}

// CreatePrescription records an optical prescription for a customer
// @Summary      Create prescription
// @Description  Validates each graded measurement against the optical grid before saving
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Customer ID"
// @Param        payload  body      service.PrescriptionRequest  true  "Prescription Payload"
// @Success      201      {object}  response.Response{data=model.Prescription}
// @Failure      400      {object}  response.Response
// @Router       /api/customers/{id}/prescriptions [post]
func (h *CustomerHandler) CreatePrescription(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.PrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	prescription, err := h.customerService.CreatePrescription(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, prescription))
}

// ListPrescriptions returns a customer's prescription history, newest first
// @Summary      List prescriptions
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=[]model.Prescription}
// @Router       /api/customers/{id}/prescriptions [get]
func (h *CustomerHandler) ListPrescriptions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	prescriptions, err := h.customerService.ListPrescriptions(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		failRead(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, prescriptions))
}
