// Package transcribe converts recorded candidate audio to text through an
// OpenAI-compatible transcription endpoint.
package transcribe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/codesage-ai/interview-server/internal/domain"
)

// Client calls the audio transcription API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	hc      *http.Client
}

func New(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		hc:      &http.Client{Timeout: timeout},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio and returns the transcript text.
func (c *Client) Transcribe(ctx domain.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("op=transcribe: empty audio: %w", domain.ErrInvalidArgument)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("op=transcribe: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("op=transcribe: %w", err)
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("op=transcribe: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("op=transcribe: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("op=transcribe: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("op=transcribe: %w", domain.ErrUpstreamTimeout)
		}
		return "", fmt.Errorf("op=transcribe: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("op=transcribe: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", fmt.Errorf("op=transcribe status=%d: %w", resp.StatusCode, domain.ErrUpstreamUnavailable)
		}
		return "", fmt.Errorf("op=transcribe status=%d: %w", resp.StatusCode, domain.ErrInvalidArgument)
	}

	var tr transcriptionResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("op=transcribe: %w", domain.ErrSchemaInvalid)
	}
	return strings.TrimSpace(tr.Text), nil
}
