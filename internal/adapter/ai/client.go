package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/codesage-ai/interview-server/internal/adapter/observability"
	"github.com/codesage-ai/interview-server/internal/config"
	"github.com/codesage-ai/interview-server/internal/domain"
)

// Client implements domain.AIClient against an OpenAI-compatible chat
// completions endpoint.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a client with the per-call timeout from config.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.LLMTimeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ChatJSON requests a strictly JSON reply. Low temperature keeps the shape
// stable across retries.
func (c *Client) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.chat(ctx, "chat_json", systemPrompt, userPrompt, maxTokens, 0.2)
}

// ChatText requests a free-form reply.
func (c *Client) ChatText(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.chat(ctx, "chat_text", systemPrompt, userPrompt, maxTokens, 0.4)
}

func (c *Client) chat(ctx domain.Context, op, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	if c.cfg.LLMAPIKey == "" {
		return "", fmt.Errorf("op=ai.chat: %w: no api key configured", domain.ErrUpstreamUnavailable)
	}

	msgs := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.LLMModel,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("op=ai.chat: marshal: %w", err)
	}

	expo := backoff.NewExponentialBackOff()
	maxElapsed, initial, maxIntv, mult := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	expo.MaxInterval = maxIntv
	expo.Multiplier = mult

	start := time.Now()
	var content string
	err = backoff.Retry(func() error {
		var callErr error
		content, callErr = c.doCall(ctx, body)
		if callErr == nil {
			return nil
		}
		if errors.Is(callErr, domain.ErrUpstreamTimeout) || errors.Is(callErr, domain.ErrInvalidArgument) {
			return backoff.Permanent(callErr)
		}
		slog.Debug("ai call retrying", slog.String("op", op), slog.Any("error", callErr))
		return callErr
	}, backoff.WithContext(expo, ctx))

	observability.AIRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.AIRequestsTotal.WithLabelValues(op, "error").Inc()
		return "", err
	}
	observability.AIRequestsTotal.WithLabelValues(op, "ok").Inc()
	return content, nil
}

func (c *Client) doCall(ctx domain.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LLMBaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=ai.doCall: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.LLMAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return "", fmt.Errorf("op=ai.doCall: %w: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("op=ai.doCall: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("op=ai.doCall: read: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("op=ai.doCall: %w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	default:
		return "", fmt.Errorf("op=ai.doCall: %w: status %d body %s", domain.ErrInvalidArgument, resp.StatusCode, snippet(data, 200))
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", fmt.Errorf("op=ai.doCall: decode: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("op=ai.doCall: %w: %s", domain.ErrUpstreamUnavailable, cr.Error.Message)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("op=ai.doCall: %w: empty completion", domain.ErrUpstreamUnavailable)
	}
	return cr.Choices[0].Message.Content, nil
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
