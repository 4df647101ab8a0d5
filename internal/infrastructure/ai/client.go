// Package ai implements the fallback consultant and devil's-advocate
// challenger over an OpenAI-compatible chat-completions endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/engine"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// maxResponseBytes bounds how much of a model reply we are willing to read.
const maxResponseBytes = 1 << 20

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Client talks to the chat-completions endpoint.  It implements both
// engine.Consultant and engine.Challenger.
type Client struct {
	cfg    config.AIConfig
	http   *http.Client
	logger logging.Logger
}

// NewClient builds an AI client.  Returns an error when no endpoint is
// configured so callers can decide to run without a consultant.
func NewClient(cfg config.AIConfig, log logging.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, pkgerrors.New(pkgerrors.ErrCodeAINotConfigured, "ai.base_url is empty")
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: log,
	}, nil
}

// Consult asks the model to separate the surviving candidates.
func (c *Client) Consult(ctx context.Context, req engine.ConsultRequest) (*engine.Opinion, error) {
	raw, err := c.complete(ctx, consultSystemPrompt, buildConsultPrompt(req))
	if err != nil {
		return nil, err
	}
	op, err := engine.ParseOpinion(raw)
	if err != nil {
		c.logger.Warn("consultant reply did not parse",
			logging.String("run_id", req.RunID), logging.Err(err))
		return nil, err
	}
	return op, nil
}

// Challenge asks the model for the strongest argument against one survivor.
func (c *Client) Challenge(ctx context.Context, req engine.ChallengeRequest) (*tariff.Challenge, error) {
	raw, err := c.complete(ctx, challengeSystemPrompt, buildChallengePrompt(req))
	if err != nil {
		return nil, err
	}
	ch, err := engine.ParseChallenge(raw)
	if err != nil {
		return nil, err
	}
	if ch.Code == "" {
		ch.Code = req.Code
	}
	return ch, nil
}

// retryBaseDelay is the first backoff interval; it doubles per attempt.
const retryBaseDelay = 500 * time.Millisecond

// complete performs a chat-completion round trip with bounded retries on
// transport failures, rate limits, and endpoint errors.  Malformed replies
// are returned immediately: repeating those cannot help.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	attempts := c.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	delay := retryBaseDelay
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", pkgerrors.Wrap(ctx.Err(), pkgerrors.ErrCodeAIRequestFailed, "chat retry cancelled")
			case <-time.After(delay):
			}
			delay *= 2
		}
		raw, err := c.completeOnce(ctx, system, user)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", err
		}
		c.logger.Warn("chat request failed, retrying",
			logging.Int("attempt", i+1), logging.Err(err))
	}
	return "", lastErr
}

// retryable reports whether another attempt could plausibly succeed.
func retryable(err error) bool {
	switch pkgerrors.GetCode(err) {
	case pkgerrors.ErrCodeAIRequestFailed, pkgerrors.ErrCodeAIQuotaExhausted:
		return true
	}
	return false
}

// completeOnce performs one chat-completion round trip and returns the
// assistant message content.
func (c *Client) completeOnce(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrCodeSerialization, "failed to encode chat request")
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrCodeAIRequestFailed, "failed to build chat request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrCodeAIRequestFailed, "chat request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrCodeAIRequestFailed, "failed to read chat response")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", pkgerrors.New(pkgerrors.ErrCodeAIQuotaExhausted, "chat endpoint rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.Newf(pkgerrors.ErrCodeAIRequestFailed,
			"chat endpoint returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrCodeAIResponseInvalid, "chat response is not valid JSON")
	}
	if parsed.Error != nil {
		return "", pkgerrors.Newf(pkgerrors.ErrCodeAIRequestFailed, "chat endpoint error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", pkgerrors.New(pkgerrors.ErrCodeAIResponseEmpty, "chat response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Prompts
// ─────────────────────────────────────────────────────────────────────────────

const consultSystemPrompt = `You are a senior customs classification expert. ` +
	`Given a product and the HS code candidates a rule engine could not separate, ` +
	`pick the best code and list any codes that are clearly wrong. ` +
	`Reply with JSON only: {"best_code": string, "confidence": 0-100, ` +
	`"reasoning": string, "eliminate": [string], "needs_human": bool}. ` +
	`Set needs_human when the declaration lacks the facts needed to decide.`

const challengeSystemPrompt = `You are a customs auditor playing devil's advocate. ` +
	`Given a proposed HS classification, produce the strongest argument against it. ` +
	`Reply with JSON only: {"code": string, "counter_argument": string, ` +
	`"alternative_code": string, "severity": "low"|"medium"|"high"}.`

func buildConsultPrompt(req engine.ConsultRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", req.Description)
	if req.Material != "" {
		fmt.Fprintf(&b, "Material: %s\n", req.Material)
	}
	if req.Form != "" {
		fmt.Fprintf(&b, "Form: %s\n", req.Form)
	}
	if req.IntendedUse != "" {
		fmt.Fprintf(&b, "Intended use: %s\n", req.IntendedUse)
	}
	b.WriteString("Remaining candidates:\n")
	for _, c := range req.Candidates {
		fmt.Fprintf(&b, "- %s: %s (confidence %.0f)\n", c.Code, c.Description, c.Confidence)
	}
	if len(req.RecentSteps) > 0 {
		b.WriteString("How the rule engine narrowed the field:\n")
		for _, s := range req.RecentSteps {
			fmt.Fprintf(&b, "- [%s/%s] %s\n", s.Stage, s.Rule, s.Rationale)
		}
	}
	return b.String()
}

func buildChallengePrompt(req engine.ChallengeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Proposed classification: %s (%s)\n", req.Code, req.Description)
	fmt.Fprintf(&b, "Product: %s\n", req.Product)
	if len(req.Rivals) > 1 {
		fmt.Fprintf(&b, "Other surviving codes: %s\n", strings.Join(req.Rivals, ", "))
	}
	return b.String()
}
