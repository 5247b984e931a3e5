package appointments

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
	staff := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	staff.POST("/appointments/:id/complete", h.Complete)
	staff.POST("/appointments/:id/expire", h.Expire)
	staff.POST("/payments/:id/confirm", h.ConfirmPayment)

	// Patients book, pay for and join their own consultations.
	shared := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar", "patient"))
	shared.POST("/appointments", h.Book)
	shared.GET("/appointments/:id", h.Get)
	shared.GET("/patients/:id/appointments", h.ListByPatient)
	shared.POST("/appointments/:id/cancel", h.Cancel)
	shared.POST("/appointments/:id/payments", h.InitiatePayment)
	shared.GET("/appointments/:id/payments", h.ListPayments)
	shared.POST("/appointments/:id/join", h.Join)
}

func writeErr(c echo.Context, err error) error {
	return c.JSON(flowerr.HTTPStatus(err), flowerr.ResponseBody(err))
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

type bookRequest struct {
	PatientID   uuid.UUID `json:"patient_id"`
	ClinicianID uuid.UUID `json:"clinician_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Modality    Modality  `json:"modality"`
	Reason      *string   `json:"reason,omitempty"`
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a := &Appointment{
		PatientID:   req.PatientID,
		ClinicianID: req.ClinicianID,
		ScheduledAt: req.ScheduledAt,
		Modality:    req.Modality,
		Reason:      req.Reason,
	}
	if err := h.svc.Book(c.Request().Context(), a); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	appts, total, err := h.svc.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, pg.Limit, pg.Offset))
}

type initiatePaymentRequest struct {
	Amount float64 `json:"amount"`
}

func (h *Handler) InitiatePayment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req initiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.InitiatePayment(c.Request().Context(), id, req.Amount)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

type confirmPaymentRequest struct {
	Outcome PaymentStatus `json:"outcome"`
}

func (h *Handler) ConfirmPayment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req confirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.ConfirmPayment(c.Request().Context(), id, req.Outcome)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPayments(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	payments, err := h.svc.ListPayments(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, payments)
}

func (h *Handler) Join(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.JoinVideoSession(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Complete(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Expire(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.ExpireUnpaidBooking(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
