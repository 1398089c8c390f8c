package review

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetryWaitClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		attempt   int
		wantWait  time.Duration
		retryable bool
	}{
		{
			name:      "attempt timeout is transient",
			err:       context.DeadlineExceeded,
			attempt:   0,
			wantWait:  2 * time.Second,
			retryable: true,
		},
		{
			name:      "wrapped timeout is transient",
			err:       fmt.Errorf("posting request: %w", context.DeadlineExceeded),
			attempt:   1,
			wantWait:  5 * time.Second,
			retryable: true,
		},
		{
			name:      "rate limit waits out the window",
			err:       errors.New("429 Too Many Requests"),
			attempt:   0,
			wantWait:  65 * time.Second,
			retryable: true,
		},
		{
			name:      "server error backs off",
			err:       errors.New("500 internal server error"),
			attempt:   1,
			wantWait:  30 * time.Second,
			retryable: true,
		},
		{
			name:      "attempt past the table reuses the last wait",
			err:       context.DeadlineExceeded,
			attempt:   7,
			wantWait:  10 * time.Second,
			retryable: true,
		},
		{
			name:      "auth failure is final",
			err:       errors.New("401 invalid api key"),
			attempt:   0,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wait, retryable := retryWait(tt.err, tt.attempt)
			if retryable != tt.retryable {
				t.Fatalf("retryable = %v, want %v", retryable, tt.retryable)
			}
			if retryable && wait != tt.wantWait {
				t.Errorf("wait = %v, want %v", wait, tt.wantWait)
			}
		})
	}
}

func TestDecodeModelJSON(t *testing.T) {
	t.Run("clean object", func(t *testing.T) {
		var out AgentResponse
		if err := decodeModelJSON(`{"reaction":"tense"}`, &out); err != nil {
			t.Fatal(err)
		}
		if out.Reaction != "tense" {
			t.Errorf("reaction = %q", out.Reaction)
		}
	})

	t.Run("object wrapped in prose", func(t *testing.T) {
		var out AgentResponse
		if err := decodeModelJSON("Here you go:\n```json\n{\"reaction\":\"tense\"}\n```", &out); err != nil {
			t.Fatal(err)
		}
		if out.Reaction != "tense" {
			t.Errorf("reaction = %q", out.Reaction)
		}
	})

	t.Run("no object at all", func(t *testing.T) {
		var out AgentResponse
		if err := decodeModelJSON("I cannot respond in JSON.", &out); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty output", func(t *testing.T) {
		var out AgentResponse
		if err := decodeModelJSON("  ", &out); err == nil {
			t.Fatal("expected error")
		}
	})
}
