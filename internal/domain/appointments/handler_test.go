package appointments

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func postJSON(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Book(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body := fmt.Sprintf(`{"patient_id":%q,"clinician_id":%q,"scheduled_at":"2026-03-01T10:00:00Z","modality":"video"}`,
		uuid.New(), uuid.New())
	c, rec := postJSON(e, body)

	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Book_SlotTaken(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	clinician := uuid.New()
	body := fmt.Sprintf(`{"patient_id":%q,"clinician_id":%q,"scheduled_at":"2026-03-01T10:00:00Z","modality":"video"}`,
		uuid.New(), clinician)
	c, rec := postJSON(e, body)
	if err := h.Book(c); err != nil || rec.Code != http.StatusCreated {
		t.Fatalf("first booking: err=%v code=%d", err, rec.Code)
	}

	body = fmt.Sprintf(`{"patient_id":%q,"clinician_id":%q,"scheduled_at":"2026-03-01T10:00:00Z","modality":"in_person"}`,
		uuid.New(), clinician)
	c, rec = postJSON(e, body)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestHandler_Join_PaymentRequired(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	a := book(t, svc, ModalityVideo)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.Join(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("expected 402, got %d", rec.Code)
	}
}

func TestHandler_ConfirmPayment(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	a := book(t, svc, ModalityVideo)
	p, err := svc.InitiatePayment(context.Background(), a.ID, 500)
	if err != nil {
		t.Fatal(err)
	}

	c, rec := postJSON(e, `{"outcome":"success"}`)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.ConfirmPayment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := svc.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.PaymentState != PaymentPaid {
		t.Errorf("payment state = %s, want paid", stored.PaymentState)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
