package ai

import (
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenBudget truncates prompt context so enrichment prompts stay inside the
// model window even for long interviews.
type TokenBudget struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenBudget constructs a budget; the encoding loads lazily on first use.
func NewTokenBudget() *TokenBudget { return &TokenBudget{} }

func (b *TokenBudget) encoding() *tiktoken.Tiktoken {
	b.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Warn("tiktoken encoding unavailable, falling back to rune budget", slog.Any("error", err))
			return
		}
		b.enc = enc
	})
	return b.enc
}

// Count returns the token count of text, or a rune-based estimate when the
// encoding is unavailable.
func (b *TokenBudget) Count(text string) int {
	if enc := b.encoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	// ~4 chars per token is close enough for budgeting
	return len([]rune(text)) / 4
}

// Truncate cuts text down to at most maxTokens tokens.
func (b *TokenBudget) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	enc := b.encoding()
	if enc == nil {
		limit := maxTokens * 4
		r := []rune(text)
		if len(r) <= limit {
			return text
		}
		return string(r[:limit])
	}
	toks := enc.Encode(text, nil, nil)
	if len(toks) <= maxTokens {
		return text
	}
	return enc.Decode(toks[:maxTokens])
}
