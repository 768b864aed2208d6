package handler

import (
	"errors"
	"net/http"

	"github.com/StamperDavid/rapid-crm-sub009/internal/ifta"
	"github.com/StamperDavid/rapid-crm-sub009/internal/service"
	"github.com/StamperDavid/rapid-crm-sub009/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// respondError maps service errors onto HTTP statuses. Unclassified errors are
// logged with their eris stack and reported as 500 without internals.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("error", eris.ToString(err, true)),
		)
		_ = c.Error(err)
		c.JSON(status, response.Error(status, "Internal server error"))
		return
	}
	c.JSON(status, response.Error(status, err.Error()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, ifta.ErrInvalidRecord),
		errors.Is(err, ifta.ErrUnknownStrategy):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}
