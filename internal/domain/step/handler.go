package step

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/reference"
	"github.com/careflow/careflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/steps", h.ListSteps)
	api.POST("/steps", h.CreateStep)
	api.GET("/steps/categories", h.ListCategories)
	api.GET("/steps/types", h.ListTypes)
	api.GET("/steps/types/:type", h.ListByType)
	api.POST("/steps/seed", h.SeedDefaults)
	api.GET("/steps/:id", h.GetStep)
	api.PUT("/steps/:id", h.UpdateStep)
	api.DELETE("/steps/:id", h.DeleteStep)
}

func (h *Handler) CreateStep(c echo.Context) error {
	var spec CreateSpec
	if err := c.Bind(&spec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	st, err := h.svc.CreateStep(c.Request().Context(), spec)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) GetStep(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	st, err := h.svc.GetStep(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) ListSteps(c echo.Context) error {
	pg, err := pagination.FromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f := Filter{StepType: c.QueryParam("step_type"), Category: c.QueryParam("category")}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid active")
		}
		f.Active = &active
	}
	items, total, err := h.svc.ListSteps(c.Request().Context(), f, pg)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if items == nil {
		items = []*Step{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateStep(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var spec UpdateSpec
	if err := c.Bind(&spec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	st, err := h.svc.UpdateStep(c.Request().Context(), id, spec)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) DeleteStep(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteStep(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListByType(c echo.Context) error {
	items, err := h.svc.ListByType(c.Request().Context(), c.Param("type"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	if items == nil {
		items = []*Step{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListCategories(c echo.Context) error {
	cats, err := h.svc.ListCategories(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, cats)
}

// ListTypes returns the accepted step types and how each is presented.
func (h *Handler) ListTypes(c echo.Context) error {
	return c.JSON(http.StatusOK, reference.Types())
}

func (h *Handler) SeedDefaults(c echo.Context) error {
	res, err := h.svc.SeedDefaults(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}
