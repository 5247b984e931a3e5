package beds

import (
	"net/http"
	"time"

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
	g := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	g.POST("/beds/:id/allocate", h.Allocate)
	g.POST("/beds/:id/discharge", h.Discharge)
	g.POST("/beds/:id/clean", h.MarkClean)
	g.POST("/beds/:id/maintenance", h.FlagMaintenance)
	g.POST("/beds/:id/maintenance/complete", h.CompleteMaintenance)
	g.POST("/beds/:id/reserve", h.Reserve)
	g.POST("/beds/:id/reservation/cancel", h.CancelReservation)

	hist := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	hist.GET("/beds/:id/history", h.History)
}

func writeErr(c echo.Context, err error) error {
	return c.JSON(flowerr.HTTPStatus(err), flowerr.ResponseBody(err))
}

func bedID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

type allocateRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
}

func (h *Handler) Allocate(c echo.Context) error {
	id, err := bedID(c)
	if err != nil {
		return err
	}
	var req allocateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bed, err := h.svc.Allocate(c.Request().Context(), id, req.PatientID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, bed)
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := bedID(c)
	if err != nil {
		return err
	}
	bed, err := h.svc.Discharge(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, bed)
}

func (h *Handler) MarkClean(c echo.Context) error {
	id, err := bedID(c)
	if err != nil {
		return err
	}
	bed, err := h.svc.MarkClean(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, bed)
}

type maintenanceRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) FlagMaintenance(c echo.Context) error {
	id, err := bedID(c)
	if err != nil {
		return err
	}
	var req maintenanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bed, err := h.svc.FlagMaintenance(c.Request().Context(), id, req.Reason)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, bed)
}

func (h *Handler) CompleteMaintenance(c echo.Context) error {
	id, err := bedID(c)
	if err != nil {
		return err
	}
	bed, err := h.svc.CompleteMaintenance(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, bed)
}

type reserveRequest struct {
	Date string `json:"date"`
}

func (h *Handler) Reserve(c echo.Context) error {
	id, err := bedID(c)
	if err != nil {
		return err
	}
	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
	}
	bed, err := h.svc.Reserve(c.Request().Context(), id, d)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, bed)
}

func (h *Handler) CancelReservation(c echo.Context) error {
	id, err := bedID(c)
	if err != nil {
		return err
	}
	bed, err := h.svc.CancelReservation(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, bed)
}

func (h *Handler) History(c echo.Context) error {
	id, err := bedID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	events, total, err := h.svc.History(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}
