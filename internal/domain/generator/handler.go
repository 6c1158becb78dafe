package generator

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/apperr"
)

type Handler struct {
	gen *Generator
}

func NewHandler(gen *Generator) *Handler {
	return &Handler{gen: gen}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/generator")
	g.POST("/comprehensive", h.Comprehensive)
	g.POST("/diagnosis/:id", h.entity(h.gen.GenerateDiagnosisFlow))
	g.POST("/procedure/:id", h.entity(h.gen.GenerateProcedureFlow))
	g.POST("/referral/:id", h.entity(h.gen.GenerateReferralFlow))
	g.POST("/laboratory", h.volume(h.gen.GenerateLaboratoryFlow))
	g.POST("/imaging", h.volume(h.gen.GenerateImagingFlow))
	g.POST("/emergency", h.Emergency)
}

func (h *Handler) Comprehensive(c echo.Context) error {
	report, err := h.gen.GenerateComprehensiveFlows(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) Emergency(c echo.Context) error {
	gf, err := h.gen.GenerateEmergencyFlow(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, gf)
}

type entityFunc func(ctx context.Context, id string, frequency int) (*GeneratedFlow, error)

type volumeFunc func(ctx context.Context, orders int) (*GeneratedFlow, error)

func (h *Handler) entity(fn entityFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "id is required")
		}
		freq, err := frequency(c)
		if err != nil {
			return err
		}
		gf, err := fn(c.Request().Context(), id, freq)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(http.StatusCreated, gf)
	}
}

func (h *Handler) volume(fn volumeFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		freq, err := frequency(c)
		if err != nil {
			return err
		}
		gf, err := fn(c.Request().Context(), freq)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(http.StatusCreated, gf)
	}
}

// frequency reads ?frequency=, defaulting to 1.
func frequency(c echo.Context) (int, error) {
	raw := c.QueryParam("frequency")
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "frequency must be a non-negative integer")
	}
	return n, nil
}
