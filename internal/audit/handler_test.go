package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenclinic/practice-ai-platform/internal/session"
)

func auditTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/audit/{sessionID}", h.Trail)
	return r
}

func TestHandlerTrailServesLiveSession(t *testing.T) {
	sessions := session.NewMemoryStore()
	h := NewHandler(sessions, nil, nil)
	r := auditTestRouter(h)

	ctx := context.Background()
	sess, err := sessions.GetOrCreate(ctx, "", session.NewSessionParams{})
	require.NoError(t, err)
	require.NoError(t, sessions.AppendAudit(ctx, sess.ID, "intent_classified", "schedule", nil))
	require.NoError(t, sessions.AppendAudit(ctx, sess.ID, "workflow_started", "", nil))

	req := httptest.NewRequest(http.MethodGet, "/audit/"+sess.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp trailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "live", resp.Source)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "intent_classified", resp.Entries[0].Event)
	assert.False(t, resp.Entries[1].Timestamp.Before(resp.Entries[0].Timestamp))
}

func TestHandlerTrailFallsBackToDurable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sessions := session.NewMemoryStore()
	h := NewHandler(sessions, NewStore(db), nil)
	r := auditTestRouter(h)

	t0 := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, event, detail, data, created_at").
		WithArgs("sess-gone").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event", "detail", "data", "created_at"}).
			AddRow("a1", "session_expired", nil, nil, t0))

	req := httptest.NewRequest(http.MethodGet, "/audit/sess-gone", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp trailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "durable", resp.Source)
	require.Len(t, resp.Entries, 1)
}

func TestHandlerTrailUnknownSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sessions := session.NewMemoryStore()
	h := NewHandler(sessions, NewStore(db), nil)
	r := auditTestRouter(h)

	mock.ExpectQuery("SELECT id, event, detail, data, created_at").
		WithArgs("sess-nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event", "detail", "data", "created_at"}))

	req := httptest.NewRequest(http.MethodGet, "/audit/sess-nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
