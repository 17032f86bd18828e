package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

const defaultChatModel = "gpt-4o-mini"

var ErrAPIKeyNotSet = errors.New("openai: API key not set")

// Client is the ChunkEnrich LLM transport: one chat-completion call per
// chunk, asking for a two-line "Summary: ...\nPurpose: ..." response and
// parsing it tolerantly (case-insensitive label, either line optional,
// extra surrounding text ignored).
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewClient builds a Client against the OpenAI chat-completions API.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = defaultChatModel
	}
	return &Client{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: 60 * time.Second,
	}, nil
}

const chunkSummaryPromptTemplate = `You are documenting a source file for a developer knowledge base.

File: %s
Content type: %s

---
%s
---

Respond with exactly two lines:
Summary: <one sentence describing what this chunk contains>
Purpose: <one sentence describing why this code/content exists>`

// SummarizeChunk issues a single chat-completion call and parses its
// response into a ChunkSummaryResult. Transient errors (timeouts, 5xx,
// 429) are retried with exponential backoff (base 1s, cap 30s) via
// backoff/v4; a non-transient error returns immediately.
func (c *Client) SummarizeChunk(ctx context.Context, req ingest.ChunkSummaryRequest) (ingest.ChunkSummaryResult, error) {
	prompt := fmt.Sprintf(chunkSummaryPromptTemplate, req.FilePath, req.Type, req.Content)

	var result ingest.ChunkSummaryResult
	policy := backoff.WithContext(newRetryPolicy(), ctx)

	op := func() error {
		content, err := c.complete(ctx, prompt)
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = parseSummaryResponse(content)
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		return ingest.ChunkSummaryResult{}, fmt.Errorf("openai: summarize chunk: %w", err)
	}
	return result, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.2),
		MaxTokens:   openai.Int(200),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func newRetryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return b
}

func isTransient(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// parseSummaryResponse is the tolerant "Summary:"/"Purpose:" parser:
// either label may be missing, label matching is case-insensitive, and any
// other lines in the response are ignored rather than treated as a format
// error.
func parseSummaryResponse(content string) ingest.ChunkSummaryResult {
	var result ingest.ChunkSummaryResult
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "summary:"):
			result.Summary = strings.TrimSpace(line[len("summary:"):])
		case strings.HasPrefix(lower, "purpose:"):
			result.Purpose = strings.TrimSpace(line[len("purpose:"):])
		}
	}
	if result.Summary == "" && result.Purpose == "" {
		result.Summary = strings.TrimSpace(content)
	}
	return result
}

var _ ingest.ChatClient = (*Client)(nil)
