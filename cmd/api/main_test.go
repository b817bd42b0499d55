package main

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/lumenclinic/practice-ai-platform/internal/agent"
	appconfig "github.com/lumenclinic/practice-ai-platform/internal/config"
	"github.com/lumenclinic/practice-ai-platform/internal/notify"
	"github.com/lumenclinic/practice-ai-platform/internal/slots"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

func awsTestConfig() aws.Config {
	return aws.Config{Region: "us-east-1"}
}

func TestNewRedisClientEmptyAddrReturnsNil(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{RedisAddr: ""}
	if client := newRedisClient(context.Background(), cfg, logger); client != nil {
		t.Fatalf("expected nil client for empty addr")
	}
}

func TestNewEmailSenderSendGridWithoutKeyReturnsNil(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{EmailProvider: "sendgrid"}
	if sender := newEmailSender(cfg, awsTestConfig(), logger); sender != nil {
		t.Fatalf("expected nil sender without API key")
	}
}

func TestNewEmailSenderSESWithoutFromReturnsNil(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{EmailProvider: "ses"}
	if sender := newEmailSender(cfg, awsTestConfig(), logger); sender != nil {
		t.Fatalf("expected nil sender without a from address")
	}
}

func TestNewEmailSenderSES(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{EmailProvider: "ses", SESFromEmail: "frontdesk@lumenclinic.example"}
	if sender := newEmailSender(cfg, awsTestConfig(), logger); sender == nil {
		t.Fatalf("expected SES sender")
	}
}

func TestNewEmailSenderStub(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{EmailProvider: "stub"}
	sender := newEmailSender(cfg, awsTestConfig(), logger)
	if _, ok := sender.(*notify.StubEmailSender); !ok {
		t.Fatalf("expected stub sender, got %T", sender)
	}
}

type echoTurns struct{}

func (echoTurns) ProcessTurn(_ context.Context, req agent.ChatRequest) (*agent.ChatResponse, error) {
	return &agent.ChatResponse{Response: req.Message}, nil
}

func TestChatFrontendWithoutDispatcherUsesService(t *testing.T) {
	direct := echoTurns{}
	if got := chatFrontend(nil, direct); got != agent.TurnProcessor(direct) {
		t.Fatalf("expected the direct processor, got %T", got)
	}
}

func TestChatFrontendRoutesTurnsThroughDispatcher(t *testing.T) {
	direct := echoTurns{}
	dispatcher := agent.NewDispatcher(direct, agent.NewMemoryQueue(2), logging.New("error"),
		agent.WithWorkerCount(1))
	defer dispatcher.Shutdown(context.Background())

	frontend := chatFrontend(dispatcher, direct)
	if frontend != agent.TurnProcessor(dispatcher) {
		t.Fatalf("expected the dispatcher, got %T", frontend)
	}

	resp, err := frontend.ProcessTurn(context.Background(), agent.ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if resp.Response != "hello" {
		t.Fatalf("Response = %q, want hello", resp.Response)
	}
}

func TestDemoSlotsAreAvailableAndBookable(t *testing.T) {
	seed := demoSlots()
	if len(seed) == 0 {
		t.Fatalf("expected demo slots")
	}
	for _, s := range seed {
		if s.Status != slots.StatusAvailable {
			t.Fatalf("demo slot %s status = %s", s.ID, s.Status)
		}
	}

	pool := slots.NewMemoryPool(seed)
	found, err := pool.Query(context.Background(), slots.Filter{ServiceType: "cardiology"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(found) == 0 {
		t.Fatalf("expected cardiology demo slots")
	}
	if err := pool.Book(context.Background(), found[0].ID); err != nil {
		t.Fatalf("Book: %v", err)
	}
}
