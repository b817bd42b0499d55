package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/lumenclinic/practice-ai-platform/internal/session"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

func newTestService(t *testing.T) (*Service, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	router := NewRouter(NewKeywordClassifier(), logging.New("error"))
	return NewService(store, router, logging.New("error")), store
}

func TestServiceProcessTurnCreatesSession(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	resp, err := svc.ProcessTurn(ctx, ChatRequest{
		Message: "I need a cardiology appointment",
		Channel: session.ChannelWeb,
	})
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session id in the response")
	}
	if len(resp.Actions) != 1 || resp.Actions[0] != "schedule" {
		t.Errorf("expected actions=[schedule], got %v", resp.Actions)
	}

	sess, err := store.Get(ctx, resp.SessionID)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("expected user+assistant messages recorded, got %d", len(sess.Messages))
	}
	if sess.Messages[0].Role != "user" || sess.Messages[1].Role != "assistant" {
		t.Errorf("unexpected message roles: %s, %s", sess.Messages[0].Role, sess.Messages[1].Role)
	}
	if sess.Context["serviceType"] != "cardiology" {
		t.Errorf("expected serviceType merged into session context, got %v", sess.Context["serviceType"])
	}
	if len(sess.Audit) == 0 || sess.Audit[0].Event != "intent_classified" {
		t.Errorf("expected intent_classified audit entry, got %+v", sess.Audit)
	}
}

func TestServiceProcessTurnReusesSession(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.ProcessTurn(ctx, ChatRequest{Message: "hello", Channel: session.ChannelWeb})
	if err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	second, err := svc.ProcessTurn(ctx, ChatRequest{
		Message:   "I need a dermatology appointment",
		SessionID: first.SessionID,
		Channel:   session.ChannelWeb,
	})
	if err != nil {
		t.Fatalf("second turn failed: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("expected same session id, got %s and %s", first.SessionID, second.SessionID)
	}

	sess, _ := store.Get(ctx, first.SessionID)
	if len(sess.Messages) != 4 {
		t.Errorf("expected 4 messages across two turns, got %d", len(sess.Messages))
	}
}

func TestServiceProcessTurnExpiredSession(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, _ := svc.ProcessTurn(ctx, ChatRequest{Message: "hello", Channel: session.ChannelWeb})
	if err := store.Expire(ctx, first.SessionID); err != nil {
		t.Fatalf("Expire failed: %v", err)
	}

	_, err := svc.ProcessTurn(ctx, ChatRequest{
		Message:   "still there?",
		SessionID: first.SessionID,
		Channel:   session.ChannelWeb,
	})
	if !errors.Is(err, session.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}
