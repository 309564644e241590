// Package stub provides a deterministic transcriber for dev and tests.
package stub

import (
	"fmt"

	"github.com/codesage-ai/interview-server/internal/domain"
)

// Client returns a fixed transcript regardless of the audio payload.
type Client struct{}

func New() *Client { return &Client{} }

func (c *Client) Transcribe(_ domain.Context, audio []byte, _ string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("op=transcribe: empty audio: %w", domain.ErrInvalidArgument)
	}
	return "I would start with a brute force pass and then optimize the inner loop with a hash map.", nil
}
