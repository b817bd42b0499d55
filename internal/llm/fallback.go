package llm

import (
	"context"

	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// FallbackClient wraps a primary LLM client with a fallback provider. If the
// primary fails, the request is retried once against the fallback.
type FallbackClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackClient creates a fallback-enabled LLM client. If fallback is
// nil, only the primary provider is used.
func NewFallbackClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackClient {
	if primary == nil {
		panic("llm: primary client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClient{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FallbackClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary LLM failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)

	if c.fallback == nil {
		return LLMResponse{}, err
	}

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return LLMResponse{}, fallbackErr
	}

	c.logger.Info("fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}

// CompleteStream streams from the primary when it supports streaming. When
// the primary cannot open a stream, the fallback's one-shot completion is
// delivered as a single chunk so callers keep a uniform channel contract.
func (c *FallbackClient) CompleteStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	if streamer, ok := c.primary.(StreamingLLMClient); ok {
		chunks, err := streamer.CompleteStream(ctx, req)
		if err == nil {
			return chunks, nil
		}
		c.logger.Warn("primary LLM stream failed to open, attempting fallback",
			"error", err.Error(),
			"fallback_available", c.fallback != nil,
		)
		if c.fallback == nil {
			return nil, err
		}
	}

	client := c.fallback
	if client == nil {
		client = c.primary
	}
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	chunks := make(chan StreamChunk, 2)
	chunks <- StreamChunk{Text: resp.Text}
	chunks <- StreamChunk{Done: true, Usage: resp.Usage}
	close(chunks)
	return chunks, nil
}
