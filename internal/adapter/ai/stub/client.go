// Package stub provides a fast, deterministic AI client for local runs and
// tests. Replies are minimal valid JSON; every consumer backfills the fields
// it needs, so behavior stays deterministic end to end.
package stub

import (
	"github.com/codesage-ai/interview-server/internal/domain"
)

// Client implements domain.AIClient without any network access.
type Client struct{}

// New constructs a stub client.
func New() *Client { return &Client{} }

// ChatJSON returns a compact JSON reply with a fixed rating so conversational
// scoring stays stable.
func (c *Client) ChatJSON(_ domain.Context, _ string, _ string, _ int) (string, error) {
	return `{"evaluation":"Rating: 7/10 - Clear answer with adequate detail.","next_question":"Can you walk me through a project you are proud of?"}`, nil
}

// ChatText returns a fixed sentence.
func (c *Client) ChatText(_ domain.Context, _ string, _ string, _ int) (string, error) {
	return "Good start on explaining your approach. Consider discussing time complexity and edge cases for a more complete analysis.", nil
}
