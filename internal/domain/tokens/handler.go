package tokens

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/internal/platform/flowerr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	desk := api.Group("", auth.RequireRole("admin", "nurse", "registrar"))
	desk.POST("/tokens", h.Enqueue)
	desk.POST("/tokens/:id/skip", h.Skip)

	doctor := api.Group("", auth.RequireRole("admin", "physician"))
	doctor.POST("/clinicians/:id/queue/advance", h.Advance)

	// The board is what the waiting-room display shows, so patients can
	// read it too.
	board := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar", "patient"))
	board.GET("/clinicians/:id/queue", h.Board)
	board.GET("/clinicians/:id/queue/waiting", h.WaitingList)
}

func writeErr(c echo.Context, err error) error {
	return c.JSON(flowerr.HTTPStatus(err), flowerr.ResponseBody(err))
}

// queryDate reads an optional ?date=YYYY-MM-DD parameter, defaulting to
// today.
func queryDate(c echo.Context) (time.Time, error) {
	raw := c.QueryParam("date")
	if raw == "" {
		return time.Now(), nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
	}
	return d, nil
}

type enqueueRequest struct {
	ClinicianID uuid.UUID `json:"clinician_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	Lane        Lane      `json:"lane"`
	Date        string    `json:"date,omitempty"`
}

func (h *Handler) Enqueue(c echo.Context) error {
	var req enqueueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t := &Token{
		ClinicianID: req.ClinicianID,
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		Lane:        req.Lane,
	}
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		}
		t.ServiceDate = d
	}
	if err := h.svc.Enqueue(c.Request().Context(), t); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) Skip(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.Skip(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Advance(c echo.Context) error {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician id")
	}
	date, err := queryDate(c)
	if err != nil {
		return err
	}
	t, err := h.svc.Advance(c.Request().Context(), clinicianID, date)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Board(c echo.Context) error {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician id")
	}
	date, err := queryDate(c)
	if err != nil {
		return err
	}
	board, err := h.svc.Board(c.Request().Context(), clinicianID, date)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, board)
}

func (h *Handler) WaitingList(c echo.Context) error {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician id")
	}
	date, err := queryDate(c)
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	toks, err := h.svc.WaitingList(c.Request().Context(), clinicianID, date, limit)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toks)
}
