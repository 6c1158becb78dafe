package analytics

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/analytics")
	g.GET("/demand", h.Demand)
	g.GET("/trends", h.Trends)
	g.GET("/optimization", h.Optimization)
	g.GET("/dashboard", h.Dashboard)
}

func (h *Handler) Demand(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.DemandPredictions(c.Request().Context()))
}

func (h *Handler) Trends(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.TrendAnalysis(c.Request().Context()))
}

func (h *Handler) Optimization(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.ResourceOptimization(c.Request().Context()))
}

func (h *Handler) Dashboard(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.Dashboard(c.Request().Context()))
}
