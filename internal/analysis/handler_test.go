package analysis

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lumenclinic/practice-ai-platform/internal/llm"
	"github.com/lumenclinic/practice-ai-platform/internal/records"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

func TestAnalyzeHandlerStreamsGeneratedText(t *testing.T) {
	client := &scriptedStreamer{chunks: []llm.StreamChunk{
		{Text: "Steady month. "},
		{Text: "Revenue held up."},
		{Done: true},
	}}
	h := NewHandler(NewGenerator(seededStore(), client, "model-id", logging.New("error")), logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/analyze",
		strings.NewReader(`{"query":"how did we do?","dataTypes":["metrics"]}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Analysis-Mode"); got != "generated" {
		t.Errorf("expected generated mode header, got %q", got)
	}
	if body := rec.Body.String(); body != "Steady month. Revenue held up." {
		t.Errorf("unexpected body %q", body)
	}
}

func TestAnalyzeHandlerFallbackDisclosed(t *testing.T) {
	client := &scriptedStreamer{openErr: errors.New("backend down")}
	h := NewHandler(NewGenerator(records.NewMemoryStore(), client, "model-id", logging.New("error")), logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/analyze",
		strings.NewReader(`{"query":"finances?","dataTypes":["transactions"]}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Analysis-Mode"); got != "fallback" {
		t.Errorf("expected fallback mode header, got %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Net income: $0.00") {
		t.Errorf("expected zero net income in fallback body, got:\n%s", body)
	}
	if !strings.Contains(body, "Pending transactions: 0") {
		t.Errorf("expected zero pending count in fallback body, got:\n%s", body)
	}
}

func TestAnalyzeHandlerValidation(t *testing.T) {
	client := &scriptedStreamer{}
	h := NewHandler(NewGenerator(records.NewMemoryStore(), client, "model-id", logging.New("error")), logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/analyze",
		strings.NewReader(`{"query":"","dataTypes":[]}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
