package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	return e.NewContext(req, rec), rec
}

func TestPaginated_ComputesTotalPagesCorrectly(t *testing.T) {
	c, rec := newContext()

	// totalCount=45, pageSize=20 -> totalPages = 3
	data := []int{1, 2, 3}
	page := 2
	pageSize := 20
	var totalCount int64 = 45

	if err := Paginated(c, data, page, pageSize, totalCount); err != nil {
		t.Fatalf("Paginated returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body PaginatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if !body.Success {
		t.Errorf("expected Success=true, got false")
	}
	if body.TotalCount != totalCount {
		t.Errorf("expected TotalCount=%d, got %d", totalCount, body.TotalCount)
	}
	if body.TotalPages != 3 {
		t.Errorf("expected TotalPages=3, got %d", body.TotalPages)
	}
}

func TestErrorHelpers_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		call func(c echo.Context) error
		want int
	}{
		{"conflict", func(c echo.Context) error { return Conflict(c, errors.New("tick in flight")) }, http.StatusConflict},
		{"not found", func(c echo.Context) error { return NotFound(c, "campaign not found") }, http.StatusNotFound},
		{"bad gateway", func(c echo.Context) error { return BadGateway(c, errors.New("reconnect failed")) }, http.StatusBadGateway},
		{"unavailable", func(c echo.Context) error { return ServiceUnavailable(c, "valkey disabled") }, http.StatusServiceUnavailable},
		{"unauthorized", Unauthorized, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext()

			if err := tt.call(c); err != nil {
				t.Fatalf("helper returned error: %v", err)
			}
			if rec.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, rec.Code)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if body.Success || body.Error == "" {
				t.Fatalf("expected failure envelope with message, got %+v", body)
			}
		})
	}
}
