package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectExec("INSERT INTO audit_entries").
		WithArgs(sqlmock.AnyArg(), "sess-1", "intent_classified", "schedule", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Record(context.Background(), "sess-1", Entry{
		Event:  "intent_classified",
		Detail: "schedule",
		Data:   map[string]any{"confidence": 95},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRecordEmptyDetailStoredAsNull(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectExec("INSERT INTO audit_entries").
		WithArgs(sqlmock.AnyArg(), "sess-1", "session_created", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Record(context.Background(), "sess-1", Entry{Event: "session_created"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreBySessionOrdersOldestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	t0 := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "event", "detail", "data", "created_at"}).
		AddRow("a1", "workflow_started", nil, nil, t0).
		AddRow("a2", "workflow_step", "check_eligibility:completed", []byte(`{"copay":2500}`), t0.Add(time.Second))

	mock.ExpectQuery("SELECT id, event, detail, data, created_at").
		WithArgs("sess-1").
		WillReturnRows(rows)

	entries, err := store.BySession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "workflow_started", entries[0].Event)
	assert.Equal(t, "check_eligibility:completed", entries[1].Detail)
	assert.Equal(t, float64(2500), entries[1].Data["copay"])
	assert.True(t, entries[1].Timestamp.After(entries[0].Timestamp))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreBySessionEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectQuery("SELECT id, event, detail, data, created_at").
		WithArgs("sess-unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event", "detail", "data", "created_at"}))

	entries, err := store.BySession(context.Background(), "sess-unknown")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
