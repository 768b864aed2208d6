package handler

import (
	"net/http"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/middleware"
	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/service"
	"github.com/StamperDavid/rapid-crm-sub009/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	now               func() time.Time
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, now: time.Now}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	statsGroup := router.Group("/api/clients/:id/statistics")
	{
		statsGroup.GET("", auth.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.GetStatistics)
	}
}

// parseBound accepts RFC3339 or YYYY-MM-DD; a bare end date covers the whole day.
func parseBound(value string, end bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// @Summary      Get ledger statistics
// @Description  Trip and purchase counts, mileage, gallons, fuel cost, tax paid and top jurisdictions by miles for a client. Defaults to the current month.
// @Tags         statistics
// @Produce      json
// @Param        id          path   string  true   "Client ID"
// @Param        start_date  query  string  false  "Start (RFC3339 or YYYY-MM-DD)"
// @Param        end_date    query  string  false  "End (RFC3339 or YYYY-MM-DD)"
// @Success      200 {object} response.Response{data=model.LedgerStatistics}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/clients/{id}/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	var startDate, endDate time.Time
	var err error

	// Default to current month if no dates are provided
	now := h.now().UTC()
	if startDateStr == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		startDate, err = parseBound(startDateStr, false)
		if err != nil {
			badRequest(c, "invalid start_date format, expected RFC3339 or YYYY-MM-DD")
			return
		}
	}

	if endDateStr == "" {
		endDate = now
	} else {
		endDate, err = parseBound(endDateStr, true)
		if err != nil {
			badRequest(c, "invalid end_date format, expected RFC3339 or YYYY-MM-DD")
			return
		}
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), c.Param("id"), startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
