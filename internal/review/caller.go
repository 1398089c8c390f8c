package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// Caller produces one reviewer's structured reaction to an assembled
// context. Implementations must be safe for concurrent use; the run engine
// fans out one call per reviewer within a scene.
type Caller interface {
	Review(ctx context.Context, profile Profile, prompt string) (AgentResponse, string, error)
}

// MalformedOutputError reports model output that could not be decoded into
// an AgentResponse. Raw retains the output for diagnostics.
type MalformedOutputError struct {
	AgentID string
	SceneID int
	Raw     string
	Err     error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("agent %s: malformed output: %v", e.AgentID, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

type OpenAICaller struct {
	client     openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
}

func NewOpenAICaller(apiKey, model string, timeout time.Duration, maxRetries int) *OpenAICaller {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &OpenAICaller{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

func (c *OpenAICaller) Review(ctx context.Context, profile Profile, prompt string) (AgentResponse, string, error) {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "SceneReview",
			Schema:      agentResponseSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Scene review JSON"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(2500),
		Instructions:    openai.String(profile.Instructions()),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := c.callWithRetry(ctx, params)
	if err != nil {
		return AgentResponse{}, "", fmt.Errorf("reviewing as %s: %w", profile.ID, err)
	}

	raw := resp.OutputText()
	var out AgentResponse
	if err := decodeModelJSON(raw, &out); err != nil {
		return AgentResponse{}, raw, &MalformedOutputError{AgentID: profile.ID, Raw: raw, Err: err}
	}
	return out, raw, nil
}

var (
	rateLimitWaitTimes   = []time.Duration{65 * time.Second, 100 * time.Second, 135 * time.Second}
	serverErrorWaitTimes = []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second}
	timeoutWaitTimes     = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}
)

// retryWait classifies a failed attempt. Rate limits, server errors, and
// per-attempt timeouts are transient and get a backoff; anything else is
// final.
func retryWait(err error, attempt int) (time.Duration, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return timeoutWaitTimes[min(attempt, len(timeoutWaitTimes)-1)], true
	case isRateLimitError(err):
		return rateLimitWaitTimes[min(attempt, len(rateLimitWaitTimes)-1)], true
	case isServerError(err):
		return serverErrorWaitTimes[min(attempt, len(serverErrorWaitTimes)-1)], true
	}
	return 0, false
}

// callWithRetry bounds each attempt by the configured timeout; a timed-out
// attempt counts as a transient failure and is retried like any other.
func (c *OpenAICaller) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.Responses.New(attemptCtx, params)
		cancel()
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		wait, retryable := retryWait(err, attempt)
		if !retryable {
			return nil, err
		}
		if attempt == c.maxRetries-1 {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	// Some models wrap the object in prose or fences; try the first
	// top-level object.
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}
