package triage

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/internal/platform/flowerr"
	"github.com/careflow/careflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	g.POST("/triage", h.Admit)
	g.GET("/triage", h.List)
	g.GET("/triage/board", h.Board)
	g.GET("/triage/:id", h.Get)
	g.POST("/triage/:id/status", h.ChangeStatus)
	g.POST("/triage/:id/reassign", h.Reassign)
}

func writeErr(c echo.Context, err error) error {
	return c.JSON(flowerr.HTTPStatus(err), flowerr.ResponseBody(err))
}

func (h *Handler) Admit(c echo.Context) error {
	var e Entry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Admit(c.Request().Context(), &e); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	status := Status(c.QueryParam("status"))
	items, total, err := h.svc.List(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Board(c echo.Context) error {
	items, err := h.svc.Board(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

type changeStatusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req changeStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.ChangeStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

type reassignRequest struct {
	ClinicianID uuid.UUID `json:"clinician_id"`
}

func (h *Handler) Reassign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req reassignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Reassign(c.Request().Context(), id, req.ClinicianID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, e)
}
