// Package analysis streams data-grounded narrative over the practice's
// current records, with a deterministic templated fallback when the
// generative backend is unavailable.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lumenclinic/practice-ai-platform/internal/llm"
	"github.com/lumenclinic/practice-ai-platform/internal/records"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// Data type selectors accepted on an analysis request.
const (
	DataPatients     = "patients"
	DataAppointments = "appointments"
	DataTransactions = "transactions"
	DataMetrics      = "metrics"
)

// ErrInvalidRequest indicates a malformed analysis request.
var ErrInvalidRequest = errors.New("analysis: query and at least one known data type are required")

// maxSampleRecords bounds how many raw records of each type the prompt may
// embed. The summary carries the totals; the sample is only for texture.
const maxSampleRecords = 10

const systemInstruction = "You are a practice analytics assistant. Use only the data given to you. " +
	"Never invent figures. When the data is insufficient to answer, state that explicitly."

// Request is one analysis ask.
type Request struct {
	Query     string   `json:"query"`
	DataTypes []string `json:"dataTypes"`
}

// Stream is one in-flight analysis. Chunks is closed when the analysis is
// complete; Fallback is settled before the first chunk is delivered so the
// transport can disclose degraded mode up front.
type Stream struct {
	Fallback bool
	Summary  *records.Summary
	Chunks   <-chan string
}

// Generator builds grounded prompts from live records and streams the
// model's narrative.
type Generator struct {
	store   records.Store
	client  llm.StreamingLLMClient
	modelID string
	logger  *logging.Logger
	clock   func() time.Time
}

func NewGenerator(store records.Store, client llm.StreamingLLMClient, modelID string, logger *logging.Logger) *Generator {
	if store == nil {
		panic("analysis: record store cannot be nil")
	}
	if client == nil {
		panic("analysis: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{
		store:   store,
		client:  client,
		modelID: modelID,
		logger:  logger,
		clock:   time.Now,
	}
}

// Analyze computes the summary, asks the backend for a streamed narrative,
// and falls back to a templated report when the backend fails or produces
// nothing. The returned stream is always non-empty.
func (g *Generator) Analyze(ctx context.Context, req Request) (*Stream, error) {
	if strings.TrimSpace(req.Query) == "" || len(req.DataTypes) == 0 {
		return nil, ErrInvalidRequest
	}
	for _, dt := range req.DataTypes {
		switch dt {
		case DataPatients, DataAppointments, DataTransactions, DataMetrics:
		default:
			return nil, fmt.Errorf("%w: unknown data type %q", ErrInvalidRequest, dt)
		}
	}

	summary, err := records.Summarize(ctx, g.store, g.clock())
	if err != nil {
		return nil, err
	}

	prompt, err := g.buildPrompt(ctx, req, summary)
	if err != nil {
		return nil, err
	}

	chunks, err := g.client.CompleteStream(ctx, llm.LLMRequest{
		Model:       g.modelID,
		System:      []string{systemInstruction},
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: prompt}},
		MaxTokens:   1024,
		Temperature: 0.3,
	})
	if err != nil {
		g.logger.Warn("analysis backend unavailable, using templated report", "error", err)
		return g.fallbackStream(summary), nil
	}

	// Hold until the first content chunk so the fallback decision is settled
	// before anything reaches the caller.
	first, ok := awaitFirstContent(ctx, chunks)
	if !ok {
		g.logger.Warn("analysis backend returned no content, using templated report")
		return g.fallbackStream(summary), nil
	}

	out := make(chan string, 8)
	go func() {
		defer close(out)
		out <- first
		for chunk := range chunks {
			if chunk.Error != nil {
				g.logger.Error("analysis stream broke mid-flight", "error", chunk.Error)
				out <- "\n\n[analysis interrupted; figures above are grounded in current records]"
				return
			}
			if chunk.Text != "" {
				select {
				case out <- chunk.Text:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return &Stream{Summary: summary, Chunks: out}, nil
}

// awaitFirstContent blocks for the first non-empty text chunk. Returns false
// if the stream ends or errors before producing any content.
func awaitFirstContent(ctx context.Context, chunks <-chan llm.StreamChunk) (string, bool) {
	for {
		select {
		case <-ctx.Done():
			return "", false
		case chunk, open := <-chunks:
			if !open {
				return "", false
			}
			if chunk.Error != nil {
				return "", false
			}
			if chunk.Text != "" {
				return chunk.Text, true
			}
			if chunk.Done {
				return "", false
			}
		}
	}
}

func (g *Generator) buildPrompt(ctx context.Context, req Request, summary *records.Summary) (string, error) {
	var b strings.Builder
	b.WriteString("Current practice summary:\n")
	summaryJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("analysis: failed to encode summary: %w", err)
	}
	b.Write(summaryJSON)
	b.WriteString("\n")

	for _, dt := range req.DataTypes {
		switch dt {
		case DataPatients:
			patients, err := g.store.GetAllPatients(ctx)
			if err != nil {
				return "", err
			}
			writeSample(&b, "Sample patients", patients)
		case DataAppointments:
			appointments, err := g.store.GetAllAppointments(ctx)
			if err != nil {
				return "", err
			}
			writeSample(&b, "Sample appointments", appointments)
		case DataTransactions:
			transactions, err := g.store.GetAllTransactions(ctx)
			if err != nil {
				return "", err
			}
			writeSample(&b, "Sample transactions", transactions)
		case DataMetrics:
			// The summary block above already carries the derived metrics.
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(req.Query)
	return b.String(), nil
}

func writeSample[T any](b *strings.Builder, label string, items []T) {
	n := len(items)
	if n > maxSampleRecords {
		n = maxSampleRecords
	}
	fmt.Fprintf(b, "\n%s (%d of %d):\n", label, n, len(items))
	for _, item := range items[:n] {
		line, err := json.Marshal(item)
		if err != nil {
			continue
		}
		b.Write(line)
		b.WriteString("\n")
	}
}

func (g *Generator) fallbackStream(summary *records.Summary) *Stream {
	report := FallbackReport(summary)
	out := make(chan string, 1)
	out <- report
	close(out)
	return &Stream{Fallback: true, Summary: summary, Chunks: out}
}

// FallbackReport renders the deterministic templated analysis. Every figure
// comes straight from the summary; the zero case still prints every section.
func FallbackReport(s *records.Summary) string {
	var b strings.Builder
	b.WriteString("Practice overview (generated from current records):\n\n")
	fmt.Fprintf(&b, "Revenue: %s\n", records.Dollars(s.RevenueCents))
	fmt.Fprintf(&b, "Expenses: %s\n", records.Dollars(s.ExpensesCents))
	fmt.Fprintf(&b, "Net income: %s\n", records.Dollars(s.NetIncomeCents))
	fmt.Fprintf(&b, "Pending transactions: %d (%s outstanding)\n", s.PendingCount, records.Dollars(s.PendingAmountCents))
	fmt.Fprintf(&b, "Appointments: %d completed, %d upcoming (of %d total)\n", s.CompletedCount, s.UpcomingCount, s.AppointmentCount)
	fmt.Fprintf(&b, "Active patients: %d\n", s.PatientCount)
	b.WriteString("\nThe analysis assistant is temporarily unavailable, so this is a direct reading of the practice records without narrative interpretation.")
	return b.String()
}
