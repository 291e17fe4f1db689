package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nexa-backend/internal/transcript"
)

// ChatClient is the boundary to the LLM. Implementations must be safe for
// concurrent use.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Extractor turns a raw transcript into a structured Extraction.
//
// Contract: Extract always returns a usable Extraction. On any failure (model
// error, timeout, malformed JSON) the returned value is Default() and a
// non-nil error describes what went wrong; callers decide whether to log and
// continue with the defaults. Extraction failure must never abort the
// pipeline.
type Extractor struct {
	client  ChatClient
	log     *slog.Logger
	timeout time.Duration
	backoff time.Duration
}

func New(client ChatClient, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		client:  client,
		log:     log,
		timeout: 25 * time.Second,
		backoff: 2 * time.Second,
	}
}

// Extract runs the LLM over the transcript. An empty or "Not Available"
// transcript short-circuits to the all-sentinel default without a model call.
// priorContext, when non-empty, is a summary of earlier calls given to the
// model as additional context.
func (x *Extractor) Extract(ctx context.Context, text, priorContext string) (Extraction, error) {
	if strings.TrimSpace(text) == "" || text == transcript.NotAvailable {
		return Default(), nil
	}

	var b strings.Builder
	if priorContext != "" {
		b.WriteString("Context from earlier calls with this person:\n")
		b.WriteString(priorContext)
		b.WriteString("\n\n")
	}
	b.WriteString("Please analyze this transcript and return the information in JSON format:\n\n")
	b.WriteString(text)

	// One bounded retry on model failure; backoff is fixed. Retrying here is
	// safe because the call has no side effects.
	var content string
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, x.timeout)
		content, err = x.client.Chat(callCtx, systemPrompt(), b.String())
		cancel()
		if err == nil {
			break
		}
		x.log.Warn("llm extraction call failed", "attempt", attempt, "err", err)
		if attempt == 1 {
			select {
			case <-time.After(x.backoff):
			case <-ctx.Done():
				return Default(), ctx.Err()
			}
		}
	}
	if err != nil {
		return Default(), fmt.Errorf("extract: llm call failed: %w", err)
	}

	raw := map[string]any{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Default(), fmt.Errorf("extract: malformed llm response: %w", err)
	}
	return fromRaw(raw), nil
}
