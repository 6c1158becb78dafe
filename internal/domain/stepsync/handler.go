package stepsync

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/apperr"
)

type Handler struct {
	sync *Synchronizer
}

func NewHandler(sync *Synchronizer) *Handler {
	return &Handler{sync: sync}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/steps/sync", h.SyncFromFlows)
	api.POST("/steps/sync/diagnoses", h.SyncDiagnoses)
}

func (h *Handler) SyncFromFlows(c echo.Context) error {
	res, err := h.sync.SyncFromFlows(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// SyncDiagnoses accepts a JSON array of diagnosis records.
func (h *Handler) SyncDiagnoses(c echo.Context) error {
	var records []DiagnosisRecord
	if err := c.Bind(&records); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.sync.SyncDiagnoses(c.Request().Context(), records)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}
