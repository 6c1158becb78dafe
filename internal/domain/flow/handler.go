package flow

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/flows", h.ListFlows)
	api.POST("/flows", h.CreateFlow)
	api.GET("/flows/:id", h.GetFlow)
	api.PUT("/flows/:id", h.UpdateFlow)
	api.DELETE("/flows/:id", h.DeleteFlow)
	api.POST("/flows/:id/duplicate", h.DuplicateFlow)
	api.PUT("/flows/:id/active", h.SetActive)
	api.POST("/flows/:id/nodes", h.AddNode)
	api.PUT("/flows/:id/nodes/reorder", h.ReorderNodes)
	api.PUT("/flows/:id/nodes/:nodeId", h.UpdateNode)
	api.DELETE("/flows/:id/nodes/:nodeId", h.RemoveNode)
	api.PUT("/flows/:id/positions", h.UpdateNodePositions)
	api.POST("/flows/:id/edges", h.AddEdge)
	api.DELETE("/flows/:id/edges/:edgeId", h.RemoveEdge)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) CreateFlow(c echo.Context) error {
	var spec CreateSpec
	if err := c.Bind(&spec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.CreateFlow(c.Request().Context(), spec)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) GetFlow(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	f, err := h.svc.GetFlow(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) ListFlows(c echo.Context) error {
	pg, err := pagination.FromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var flt Filter
	if v := c.QueryParam("specialty_id"); v != "" {
		flt.SpecialtyID = &v
	}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid active")
		}
		flt.ActiveOnly = active
	}
	flt.SourceSystem = c.QueryParam("source_system")

	items, total, err := h.svc.ListFlows(c.Request().Context(), flt, pg)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if items == nil {
		items = []*Flow{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateFlow(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var spec UpdateSpec
	if err := c.Bind(&spec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.UpdateFlow(c.Request().Context(), id, spec)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteFlow(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteFlow(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DuplicateFlow(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Name *string `json:"name"`
	}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	f, err := h.svc.DuplicateFlow(c.Request().Context(), id, body.Name)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) SetActive(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.IsActive == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "is_active is required")
	}
	f, err := h.svc.SetActive(c.Request().Context(), id, *body.IsActive)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) AddNode(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in NodeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n, err := h.svc.AddNode(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) UpdateNode(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	nodeID, err := parseID(c, "nodeId")
	if err != nil {
		return err
	}
	var upd NodeUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n, err := h.svc.UpdateNode(c.Request().Context(), id, nodeID, upd)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) RemoveNode(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	nodeID, err := parseID(c, "nodeId")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveNode(c.Request().Context(), id, nodeID); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ReorderNodes(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		NodeIDs []uuid.UUID `json:"node_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	nodes, err := h.svc.ReorderNodes(c.Request().Context(), id, body.NodeIDs)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, nodes)
}

func (h *Handler) UpdateNodePositions(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Positions map[uuid.UUID]Position `json:"positions"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.UpdateNodePositions(c.Request().Context(), id, body.Positions)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) AddEdge(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in EdgeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.AddEdge(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) RemoveEdge(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	edgeID, err := parseID(c, "edgeId")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveEdge(c.Request().Context(), id, edgeID); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
