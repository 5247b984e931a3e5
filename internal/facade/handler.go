package facade

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/internal/platform/flowerr"
)

type Handler struct {
	f *Facade
}

func NewHandler(f *Facade) *Handler {
	return &Handler{f: f}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	g.POST("/events", h.ApplyEvent)
}

// ApplyEvent is the transport binding of the event contract for
// collaborators that prefer a single endpoint over the per-domain REST
// routes. Both bindings dispatch to the same services.
func (h *Handler) ApplyEvent(c echo.Context) error {
	var ev Event
	if err := c.Bind(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.f.ApplyEvent(c.Request().Context(), ev)
	if err != nil {
		return c.JSON(flowerr.HTTPStatus(err), flowerr.ResponseBody(err))
	}
	return c.JSON(http.StatusOK, map[string]any{"type": ev.Type, "result": result})
}
