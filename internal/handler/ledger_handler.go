package handler

import (
	"net/http"

	"github.com/StamperDavid/rapid-crm-sub009/internal/middleware"
	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/service"
	"github.com/StamperDavid/rapid-crm-sub009/pkg/pagination"
	"github.com/StamperDavid/rapid-crm-sub009/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler serves a client's mileage and fuel purchase ledgers.
type LedgerHandler struct {
	ledgerService service.LedgerService
}

func NewLedgerHandler(ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	ledgers := router.Group("/api/clients/:id")
	ledgers.Use(auth.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff))
	{
		ledgers.GET("/mileage", h.ListMileage)
		ledgers.POST("/mileage", h.CreateMileage)
		ledgers.DELETE("/mileage/:recordId", h.DeleteMileage)

		ledgers.GET("/fuel-purchases", h.ListFuelPurchases)
		ledgers.POST("/fuel-purchases", h.CreateFuelPurchase)
		ledgers.DELETE("/fuel-purchases/:recordId", h.DeleteFuelPurchase)
	}
}

func ledgerQuery(c *gin.Context) service.LedgerQuery {
	p := pagination.Parse(c)
	return service.LedgerQuery{
		StartDate:    c.Query("start_date"),
		EndDate:      c.Query("end_date"),
		Jurisdiction: c.Query("jurisdiction"),
		VehicleID:    c.Query("vehicle_id"),
		Page:         p.Page,
		Limit:        p.Limit,
	}
}

// ListMileage returns a client's trip records
// @Summary      List mileage
// @Tags         ledgers
// @Produce      json
// @Security     BearerAuth
// @Param        id            path      string  true   "Client ID"
// @Param        start_date    query     string  false  "YYYY-MM-DD"
// @Param        end_date      query     string  false  "YYYY-MM-DD, inclusive"
// @Param        jurisdiction  query     string  false  "Two-letter code"
// @Param        vehicle_id    query     string  false  "Vehicle"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Items per page (default 20)"
// @Success      200           {object}  response.Response{data=response.Page{items=[]service.MileageResponse}}
// @Failure      404           {object}  response.Response
// @Router       /api/clients/{id}/mileage [get]
func (h *LedgerHandler) ListMileage(c *gin.Context) {
	q := ledgerQuery(c)
	records, total, err := h.ledgerService.ListMileage(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, records, total, q.Page, q.Limit))
}

// CreateMileage records miles driven in one jurisdiction
// @Summary      Create mileage record
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Client ID"
// @Param        payload  body      service.MileageRequest  true  "Trip"
// @Success      201      {object}  response.Response{data=service.MileageResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/clients/{id}/mileage [post]
func (h *LedgerHandler) CreateMileage(c *gin.Context) {
	var req service.MileageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	record, err := h.ledgerService.CreateMileage(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, record))
}

// DeleteMileage removes a trip record
// @Summary      Delete mileage record
// @Tags         ledgers
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string  true  "Client ID"
// @Param        recordId  path      string  true  "Mileage record ID"
// @Success      200       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/clients/{id}/mileage/{recordId} [delete]
func (h *LedgerHandler) DeleteMileage(c *gin.Context) {
	if err := h.ledgerService.DeleteMileage(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Param("recordId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Mileage record deleted successfully"))
}

// ListFuelPurchases returns a client's fuel receipts
// @Summary      List fuel purchases
// @Tags         ledgers
// @Produce      json
// @Security     BearerAuth
// @Param        id            path      string  true   "Client ID"
// @Param        start_date    query     string  false  "YYYY-MM-DD"
// @Param        end_date      query     string  false  "YYYY-MM-DD, inclusive"
// @Param        jurisdiction  query     string  false  "Two-letter code"
// @Param        vehicle_id    query     string  false  "Vehicle"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Items per page (default 20)"
// @Success      200           {object}  response.Response{data=response.Page{items=[]service.FuelPurchaseResponse}}
// @Failure      404           {object}  response.Response
// @Router       /api/clients/{id}/fuel-purchases [get]
func (h *LedgerHandler) ListFuelPurchases(c *gin.Context) {
	q := ledgerQuery(c)
	purchases, total, err := h.ledgerService.ListFuelPurchases(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, purchases, total, q.Page, q.Limit))
}

// CreateFuelPurchase records a fuel receipt
// @Summary      Create fuel purchase
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Client ID"
// @Param        payload  body      service.FuelPurchaseRequest  true  "Receipt"
// @Success      201      {object}  response.Response{data=service.FuelPurchaseResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response  "Duplicate receipt number"
// @Router       /api/clients/{id}/fuel-purchases [post]
func (h *LedgerHandler) CreateFuelPurchase(c *gin.Context) {
	var req service.FuelPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	purchase, err := h.ledgerService.CreateFuelPurchase(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, purchase))
}

// DeleteFuelPurchase removes a fuel receipt
// @Summary      Delete fuel purchase
// @Tags         ledgers
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string  true  "Client ID"
// @Param        recordId  path      string  true  "Fuel purchase ID"
// @Success      200       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/clients/{id}/fuel-purchases/{recordId} [delete]
func (h *LedgerHandler) DeleteFuelPurchase(c *gin.Context) {
	if err := h.ledgerService.DeleteFuelPurchase(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Param("recordId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Fuel purchase deleted successfully"))
}
