package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenclinic/practice-ai-platform/internal/session"
)

// mockS3Client records PutObject/GetObject calls for testing.
type mockS3Client struct {
	putCalls []putCall
	objects  map[string][]byte // key -> body
}

type putCall struct {
	bucket string
	key    string
	body   []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{
		bucket: *input.Bucket,
		key:    *input.Key,
		body:   body,
	})
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &notFoundError{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "NoSuchKey: key not found" }

func testSession(now time.Time) *session.Session {
	return &session.Session{
		ID:           "sess-123",
		PatientID:    "pat-001",
		SessionType:  session.TypeScheduling,
		Status:       session.StatusExpired,
		Channel:      session.ChannelWeb,
		Phone:        "+15551234567",
		Email:        "ana@example.com",
		StartedAt:    now.Add(-time.Hour),
		LastActivity: now.Add(-40 * time.Minute),
		Context:      map[string]any{"serviceType": "cardiology"},
		Messages: []session.Message{
			{SessionID: "sess-123", Role: "user", Content: "I need an appointment, reach me at ana@example.com", Timestamp: now.Add(-time.Hour)},
			{SessionID: "sess-123", Role: "assistant", Content: "Happy to help.", Timestamp: now.Add(-time.Hour)},
		},
		Audit: []session.AuditEntry{
			{ID: "a1", Event: "intent_classified", Detail: "schedule", Timestamp: now.Add(-time.Hour)},
		},
	}
}

func TestStoreArchiveSession(t *testing.T) {
	mock := newMockS3()
	now := time.Date(2026, 8, 12, 15, 0, 0, 0, time.UTC)
	store := NewStore(mock, "test-bucket", nil).WithClock(func() time.Time { return now })

	err := store.ArchiveSession(context.Background(), testSession(now))
	require.NoError(t, err)

	// Transcript + manifest.
	require.Len(t, mock.putCalls, 2)
	assert.Equal(t, "sessions/v1/by-date/2026/08/12/sess-123.json", mock.putCalls[0].key)

	var decoded SessionRecord
	require.NoError(t, json.Unmarshal(mock.putCalls[0].body, &decoded))
	assert.Equal(t, "sess-123", decoded.SessionID)
	assert.Equal(t, session.StatusExpired, decoded.Status)
	assert.Equal(t, 2, decoded.MessageCount)
	assert.Equal(t, HashPhone("+15551234567"), decoded.PhoneHash)
	assert.Contains(t, decoded.Messages[0].Content, "[EMAIL]")
	assert.NotContains(t, decoded.Messages[0].Content, "ana@example.com")
	require.Len(t, decoded.Audit, 1)

	assert.Contains(t, mock.putCalls[1].key, "sessions/v1/manifests/2026-08.jsonl")
	var entry ManifestEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(mock.putCalls[1].body), &entry))
	assert.Equal(t, "sess-123", entry.SessionID)
	assert.Equal(t, "expired", entry.Status)
}

func TestStoreArchiveDoesNotMutateSession(t *testing.T) {
	mock := newMockS3()
	now := time.Date(2026, 8, 12, 15, 0, 0, 0, time.UTC)
	store := NewStore(mock, "test-bucket", nil).WithClock(func() time.Time { return now })

	sess := testSession(now)
	require.NoError(t, store.ArchiveSession(context.Background(), sess))
	assert.Contains(t, sess.Messages[0].Content, "ana@example.com", "scrubbing must act on a copy")
}

func TestStoreDisabled(t *testing.T) {
	store := NewStore(nil, "", nil)
	assert.False(t, store.Enabled())

	err := store.ArchiveSession(context.Background(), testSession(time.Now()))
	assert.NoError(t, err) // no-op, no error
}

func TestStoreManifestAppend(t *testing.T) {
	mock := newMockS3()
	now := time.Date(2026, 8, 12, 15, 0, 0, 0, time.UTC)
	store := NewStore(mock, "test-bucket", nil).WithClock(func() time.Time { return now })

	first := testSession(now)
	second := testSession(now)
	second.ID = "sess-456"

	require.NoError(t, store.ArchiveSession(context.Background(), first))
	require.NoError(t, store.ArchiveSession(context.Background(), second))

	// The second manifest write should contain both entries.
	lastPut := mock.putCalls[len(mock.putCalls)-1]
	lines := bytes.Split(bytes.TrimSpace(lastPut.body), []byte("\n"))
	assert.Len(t, lines, 2)
}
