package handler

import (
	"net/http"
	"strconv"

	"opticinvoicer/internal/middleware"
	"opticinvoicer/internal/model"
	"opticinvoicer/internal/service"
	"opticinvoicer/pkg/pagination"
	"opticinvoicer/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrganizationHandler struct {
	orgService   service.OrganizationService
	userService  service.UserService
	auditService service.AuditService
	auth         *middleware.Auth
}

func NewOrganizationHandler(
	orgService service.OrganizationService,
	userService service.UserService,
	auditService service.AuditService,
	auth *middleware.Auth,
) *OrganizationHandler {
	return &OrganizationHandler{
		orgService:   orgService,
		userService:  userService,
		auditService: auditService,
		auth:         auth,
	}
}

func (h *OrganizationHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := h.auth.RequireRole(model.RoleAdmin, model.RoleStaff)
	admin := h.auth.RequireRole(model.RoleAdmin)

	org := router.Group("/api/organizations")
	{
		org.GET("/me", staff, h.GetOrganization)
		org.PUT("/me", admin, h.UpdateOrganization)
		org.POST("/me/reports", admin, h.RecomputeReports)

		org.POST("/me/staff", admin, h.InviteStaff)
		org.GET("/me/staff", admin, h.ListStaff)

		org.GET("/me/audit-logs", admin, h.ListAuditLogs)
	}
}

// GetOrganization returns the caller's organization profile
// @Summary      Get organization
// @Tags         organizations
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.Organization}
// @Failure      404  {object}  response.Response
// @Router       /api/organizations/me [get]
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	org, err := h.orgService.Get(c.Request.Context(), middleware.OrgID(c))
	if err != nil {
		failRead(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, org))
}

// UpdateOrganization edits organization profile fields
// @Summary      Update organization
// @Tags         organizations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UpdateOrganizationRequest  true  "Organization Payload"
// @Success      200      {object}  response.Response{data=model.Organization}
// @Failure      400      {object}  response.Response
// @Router       /api/organizations/me [put]
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	var req service.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	org, err := h.orgService.Update(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, org))
}

// RecomputeReports rebuilds the organization's denormalized statistics
// @Summary      Recompute reports
// @Description  Rebuilds entity counters and monthly statistics; data is advisory and not transactional with the ledgers
// @Tags         organizations
// @Security     BearerAuth
// @Produce      json
// @Param        months  query     int  false  "Number of trailing months (default 12)"
// @Success      200     {object}  response.Response{data=model.OrganizationReport}
// @Router       /api/organizations/me/reports [post]
func (h *OrganizationHandler) RecomputeReports(c *gin.Context) {
	months, _ := strconv.Atoi(c.DefaultQuery("months", "12"))

	report, err := h.orgService.RecomputeReports(c.Request.Context(), middleware.OrgID(c), months)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// InviteStaff creates a staff account under the organization
// @Summary      Invite staff
// @Tags         organizations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.InviteStaffRequest  true  "Staff Payload"
// @Success      201      {object}  response.Response{data=model.Staff}
// @Failure      400      {object}  response.Response
// @Router       /api/organizations/me/staff [post]
func (h *OrganizationHandler) InviteStaff(c *gin.Context) {
	var req service.InviteStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	staff, err := h.userService.InviteStaff(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, staff))
}

// ListStaff returns the organization's staff roster
// @Summary      List staff
// @Tags         organizations
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/organizations/me/staff [get]
func (h *OrganizationHandler) ListStaff(c *gin.Context) {
	params := pagination.Parse(c)

	staff, total, err := h.userService.ListStaff(c.Request.Context(), middleware.OrgID(c), params.Page, params.Limit)
	if err != nil {
		failRead(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"staff": staff,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// ListAuditLogs returns the organization's audit trail, newest first
// @Summary      List audit logs
// @Tags         organizations
// @Security     BearerAuth
// @Produce      json
// @Param        action  query     string  false  "Filter by action"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/organizations/me/audit-logs [get]
func (h *OrganizationHandler) ListAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.List(c.Request.Context(), middleware.OrgID(c), params.Page, params.Limit, c.Query("action"))
	if err != nil {
		failRead(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}
