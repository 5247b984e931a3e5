package registry

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
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	readGroup.GET("/wards", h.ListWards)
	readGroup.GET("/wards/:id", h.GetWard)
	readGroup.GET("/wards/occupancy", h.WardOccupancy)
	readGroup.GET("/beds", h.ListBeds)
	readGroup.GET("/beds/:id", h.GetBed)
	readGroup.GET("/clinicians", h.ListClinicians)
	readGroup.GET("/clinicians/:id", h.GetClinician)

	writeGroup := api.Group("", auth.RequireRole("admin"))
	writeGroup.POST("/wards", h.RegisterWard)
	writeGroup.POST("/beds", h.RegisterBed)
	writeGroup.POST("/clinicians", h.RegisterClinician)
}

func writeErr(c echo.Context, err error) error {
	return c.JSON(flowerr.HTTPStatus(err), flowerr.ResponseBody(err))
}

func (h *Handler) RegisterWard(c echo.Context) error {
	var w Ward
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RegisterWard(c.Request().Context(), &w); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) GetWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	w, err := h.svc.GetWard(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) ListWards(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListWards(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) WardOccupancy(c echo.Context) error {
	items, err := h.svc.WardOccupancy(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) RegisterBed(c echo.Context) error {
	var b Bed
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RegisterBed(c.Request().Context(), &b); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetBed(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBeds(c echo.Context) error {
	pg := pagination.FromContext(c)
	if wardID := c.QueryParam("ward_id"); wardID != "" {
		wid, err := uuid.Parse(wardID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ward_id")
		}
		items, total, err := h.svc.ListBedsByWard(c.Request().Context(), wid, pg.Limit, pg.Offset)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.ListBeds(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) RegisterClinician(c echo.Context) error {
	var cl Clinician
	if err := c.Bind(&cl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RegisterClinician(c.Request().Context(), &cl); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) GetClinician(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cl, err := h.svc.GetClinician(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ListClinicians(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListClinicians(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
