package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/StamperDavid/rapid-crm-sub009/internal/export"
	"github.com/StamperDavid/rapid-crm-sub009/internal/middleware"
	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/service"
	"github.com/StamperDavid/rapid-crm-sub009/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	reports := router.Group("/api/clients/:id/reports")
	reports.Use(auth.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff))
	{
		reports.GET("/:year/:quarter", h.GetReport)
		reports.GET("/:year/:quarter/export", h.ExportReport)
	}
}

func reportRequest(c *gin.Context) (service.ReportRequest, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		badRequest(c, "invalid year '"+c.Param("year")+"'")
		return service.ReportRequest{}, false
	}
	quarter, err := strconv.Atoi(c.Param("quarter"))
	if err != nil {
		badRequest(c, "invalid quarter '"+c.Param("quarter")+"'")
		return service.ReportRequest{}, false
	}
	return service.ReportRequest{
		ClientID: c.Param("id"),
		Year:     year,
		Quarter:  quarter,
		Strategy: c.Query("strategy"),
	}, true
}

// GetReport aggregates a client's quarter into per-jurisdiction tax figures
// @Summary      Quarterly IFTA report
// @Description  Per-jurisdiction miles, gallons, MPG, taxable gallons, tax due and net tax. Rows whose rate or MPG cannot be derived are flagged and carry null figures.
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string  true   "Client ID"
// @Param        year      path      int     true   "Year"
// @Param        quarter   path      int     true   "Quarter (1-4)"
// @Param        strategy  query     string  false  "fleet, jurisdiction or vehicle"
// @Success      200       {object}  response.Response{data=service.ReportResponse}
// @Failure      400       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/clients/{id}/reports/{year}/{quarter} [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	req, ok := reportRequest(c)
	if !ok {
		return
	}

	report, err := h.reportService.GenerateReport(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// ExportReport downloads the quarterly report as CSV or XLSX
// @Summary      Export quarterly report
// @Tags         reports
// @Produce      text/csv
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        id        path      string  true   "Client ID"
// @Param        year      path      int     true   "Year"
// @Param        quarter   path      int     true   "Quarter (1-4)"
// @Param        strategy  query     string  false  "fleet, jurisdiction or vehicle"
// @Param        format    query     string  false  "csv (default) or xlsx"
// @Success      200       {file}    file
// @Failure      400       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/clients/{id}/reports/{year}/{quarter}/export [get]
func (h *ReportHandler) ExportReport(c *gin.Context) {
	req, ok := reportRequest(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	// Buffer so a failure can still be reported as JSON.
	var buf bytes.Buffer
	result, err := h.reportService.ExportReport(c.Request.Context(), req, format, &buf)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, buf.Bytes())
}
