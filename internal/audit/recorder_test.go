package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/lumenclinic/practice-ai-platform/internal/session"
)

func TestRecordingStoreMirrorsAppends(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	inner := session.NewMemoryStore()
	store := NewRecordingStore(inner, NewStore(db), nil)

	ctx := context.Background()
	sess, err := store.GetOrCreate(ctx, "", session.NewSessionParams{Channel: session.ChannelWeb})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO audit_entries").
		WithArgs(sqlmock.AnyArg(), sess.ID, "intent_classified", "schedule", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.AppendAudit(ctx, sess.ID, "intent_classified", "schedule", map[string]any{"confidence": 90})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	// The live trail got the entry too.
	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Audit, 1)
}

func TestRecordingStoreMirrorFailureDoesNotSurface(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	inner := session.NewMemoryStore()
	store := NewRecordingStore(inner, NewStore(db), nil)

	ctx := context.Background()
	sess, err := store.GetOrCreate(ctx, "", session.NewSessionParams{})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO audit_entries").
		WillReturnError(errors.New("connection reset"))

	err = store.AppendAudit(ctx, sess.ID, "intent_classified", "general", nil)
	require.NoError(t, err, "mirror failure must not fail the live append")

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Audit, 1)
}

func TestRecordingStoreDoesNotMirrorFailedAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	inner := session.NewMemoryStore()
	store := NewRecordingStore(inner, NewStore(db), nil)

	err = store.AppendAudit(context.Background(), "missing-session", "event", "", nil)
	require.ErrorIs(t, err, session.ErrSessionNotFound)
	require.NoError(t, mock.ExpectationsWereMet(), "no durable write for a rejected append")
}
