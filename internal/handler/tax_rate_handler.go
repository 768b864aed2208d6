package handler

import (
	"net/http"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/middleware"
	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/ratefile"
	"github.com/StamperDavid/rapid-crm-sub009/internal/service"
	"github.com/StamperDavid/rapid-crm-sub009/pkg/pagination"
	"github.com/StamperDavid/rapid-crm-sub009/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxRateHandler struct {
	taxRateService service.TaxRateService
}

func NewTaxRateHandler(taxRateService service.TaxRateService) *TaxRateHandler {
	return &TaxRateHandler{taxRateService: taxRateService}
}

func (h *TaxRateHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	rates := router.Group("/api/tax-rates")
	rates.Use(auth.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff))
	{
		rates.GET("", h.ListTaxRates)
		rates.GET("/active/:jurisdiction", h.GetActiveTaxRate)
	}

	admin := router.Group("/api/tax-rates")
	admin.Use(auth.RequireRole(model.RoleAdmin))
	{
		admin.POST("", h.CreateTaxRate)
		admin.POST("/import", h.ImportTaxRates)
		admin.PUT("/:id", h.UpdateTaxRate)
		admin.DELETE("/:id", h.DeleteTaxRate)
	}
}

// ListTaxRates returns rates ordered by jurisdiction and effective_from DESC
// @Summary      List tax rates
// @Tags         tax-rates
// @Produce      json
// @Security     BearerAuth
// @Param        jurisdiction  query     string  false  "Two-letter jurisdiction code"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Items per page (default 20)"
// @Success      200           {object}  response.Response{data=response.Page{items=[]service.TaxRateResponse}}
// @Router       /api/tax-rates [get]
func (h *TaxRateHandler) ListTaxRates(c *gin.Context) {
	p := pagination.Parse(c)
	rates, total, err := h.taxRateService.ListTaxRates(c.Request.Context(), c.Query("jurisdiction"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, rates, total, p.Page, p.Limit))
}

// GetActiveTaxRate returns the rate in effect for a jurisdiction on a date
// @Summary      Active tax rate
// @Description  Rate in effect on ?date= (YYYY-MM-DD, default today). 404 when no rate applies.
// @Tags         tax-rates
// @Produce      json
// @Security     BearerAuth
// @Param        jurisdiction  path      string  true   "Two-letter jurisdiction code"
// @Param        date          query     string  false  "YYYY-MM-DD"
// @Success      200           {object}  response.Response{data=service.ActiveTaxRateResponse}
// @Failure      400           {object}  response.Response
// @Failure      404           {object}  response.Response
// @Router       /api/tax-rates/active/{jurisdiction} [get]
func (h *TaxRateHandler) GetActiveTaxRate(c *gin.Context) {
	on := time.Now().UTC()
	if ds := c.Query("date"); ds != "" {
		parsed, err := time.Parse("2006-01-02", ds)
		if err != nil {
			badRequest(c, "invalid date format, expected YYYY-MM-DD")
			return
		}
		on = parsed
	}

	rate, err := h.taxRateService.GetActiveTaxRate(c.Request.Context(), c.Param("jurisdiction"), on)
	if err != nil {
		respondError(c, err)
		return
	}
	if rate == nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "No tax rate in effect for "+c.Param("jurisdiction")))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// CreateTaxRate adds a rate; windows may not overlap an existing one
// @Summary      Create tax rate
// @Tags         tax-rates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.TaxRateRequest  true  "Tax rate"
// @Success      201      {object}  response.Response{data=service.TaxRateResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response  "Overlapping effective window"
// @Router       /api/tax-rates [post]
func (h *TaxRateHandler) CreateTaxRate(c *gin.Context) {
	var req service.TaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	rate, err := h.taxRateService.CreateTaxRate(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rate))
}

// UpdateTaxRate replaces a rate
// @Summary      Update tax rate
// @Tags         tax-rates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Tax rate ID"
// @Param        payload  body      service.TaxRateRequest  true  "Tax rate"
// @Success      200      {object}  response.Response{data=service.TaxRateResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tax-rates/{id} [put]
func (h *TaxRateHandler) UpdateTaxRate(c *gin.Context) {
	var req service.TaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	rate, err := h.taxRateService.UpdateTaxRate(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// DeleteTaxRate removes a rate
// @Summary      Delete tax rate
// @Tags         tax-rates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tax rate ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tax-rates/{id} [delete]
func (h *TaxRateHandler) DeleteTaxRate(c *gin.Context) {
	if err := h.taxRateService.DeleteTaxRate(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Tax rate deleted successfully"))
}

// ImportTaxRates loads a quarterly YAML rate schedule in one transaction
// @Summary      Import rate schedule
// @Description  Body is a YAML schedule (quarter, effective_from, rates[]). Any invalid or overlapping entry rejects the whole file.
// @Tags         tax-rates
// @Accept       application/x-yaml
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/tax-rates/import [post]
func (h *TaxRateHandler) ImportTaxRates(c *gin.Context) {
	schedule, err := ratefile.Parse(c.Request.Body)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	n, err := h.taxRateService.ImportTaxRates(c.Request.Context(), middleware.UserID(c), service.ScheduleRequests(schedule))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, map[string]interface{}{
		"quarter":  schedule.Quarter,
		"imported": n,
	}))
}
