package validator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type sampleRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

type scheduleRequest struct {
	Slots    []string `json:"slots" validate:"required,dive,hhmm"`
	Weekdays []int    `json:"weekdays" validate:"dive,weekday"`
}

func TestCustomValidator_ValidateReturnsValidationError(t *testing.T) {
	cv := New()

	req := sampleRequest{
		// Name and Phone left empty to trigger validation errors
	}

	err := cv.Validate(req)
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}

	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	if len(ve.Errors) == 0 {
		t.Fatalf("expected at least one validation error, got none")
	}

	if _, exists := ve.Errors["name"]; !exists {
		t.Errorf("expected 'name' to be in validation errors")
	}
	if _, exists := ve.Errors["phone"]; !exists {
		t.Errorf("expected 'phone' to be in validation errors")
	}
}

func TestHandleValidationError_Returns422WithDetails(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	c := e.NewContext(req, rec)

	cv := New()
	err := cv.Validate(sampleRequest{})

	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}

	if err := HandleValidationError(c, err); err != nil {
		t.Fatalf("HandleValidationError returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	var body ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if body.Success {
		t.Errorf("expected Success=false, got true")
	}
	if body.Error != "Validation failed" {
		t.Errorf("expected error='Validation failed', got %q", body.Error)
	}
	if len(body.Details) == 0 {
		t.Fatalf("expected details in validation response, got none")
	}
}

func TestCustomValidator_ScheduleTags(t *testing.T) {
	cv := New()

	if err := cv.Validate(scheduleRequest{Slots: []string{"09:00", "9:30", "23:59"}, Weekdays: []int{0, 6}}); err != nil {
		t.Fatalf("expected valid schedule, got %v", err)
	}

	err := cv.Validate(scheduleRequest{Slots: []string{"09:00", "24:00"}, Weekdays: []int{7}})
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	msg, exists := ve.Errors["slots[1]"]
	if !exists {
		t.Fatalf("expected slots[1] error, got %v", ve.Errors)
	}
	if !strings.Contains(msg, "HH:MM") {
		t.Errorf("expected translated hhmm message, got %q", msg)
	}
	if _, exists := ve.Errors["weekdays[0]"]; !exists {
		t.Errorf("expected weekdays[0] error, got %v", ve.Errors)
	}
}
