package slots

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

func TestListHandlerFiltersByServiceType(t *testing.T) {
	pool := NewMemoryPool([]Slot{
		{ID: "a", ProviderID: "p1", ServiceType: "cardiology", Date: "2026-09-02", StartTime: "09:00", Status: StatusAvailable},
		{ID: "b", ProviderID: "p2", ServiceType: "dermatology", Date: "2026-09-02", StartTime: "10:00", Status: StatusAvailable},
		{ID: "c", ProviderID: "p3", ServiceType: "cardiology", Date: "2026-09-01", StartTime: "08:00", Status: StatusBooked},
	})
	h := NewHandler(pool, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/slots?serviceType=cardiology", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Slots) != 1 || resp.Slots[0].ID != "a" {
		t.Errorf("expected only the available cardiology slot, got %+v", resp.Slots)
	}
}

func TestListHandlerUnknownServiceTypeIsEmptyList(t *testing.T) {
	pool := NewMemoryPool(nil)
	h := NewHandler(pool, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/slots?serviceType=astrology", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown service type, got %d", rec.Code)
	}
	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Slots == nil || len(resp.Slots) != 0 {
		t.Errorf("expected empty slot list, got %v", resp.Slots)
	}
}
