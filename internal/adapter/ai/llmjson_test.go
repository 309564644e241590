package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesage-ai/interview-server/internal/adapter/ai"
	"github.com/codesage-ai/interview-server/internal/domain"
)

type reply struct {
	Evaluation string `json:"evaluation"`
	Score      int    `json:"score"`
}

func TestParseLLMJSON(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		want reply
	}{
		{
			name: "clean json",
			raw:  `{"evaluation":"solid","score":80}`,
			want: reply{Evaluation: "solid", Score: 80},
		},
		{
			name: "markdown fenced",
			raw:  "```json\n{\"evaluation\":\"solid\",\"score\":80}\n```",
			want: reply{Evaluation: "solid", Score: 80},
		},
		{
			name: "prose around the object",
			raw:  "Sure! Here is the evaluation:\n{\"evaluation\":\"solid\",\"score\":80}\nLet me know if you need more.",
			want: reply{Evaluation: "solid", Score: 80},
		},
		{
			name: "trailing comma repaired",
			raw:  `{"evaluation":"solid","score":80,}`,
			want: reply{Evaluation: "solid", Score: 80},
		},
		{
			name: "nested braces in strings",
			raw:  `Reply: {"evaluation":"use map {k: v} here","score":75}`,
			want: reply{Evaluation: "use map {k: v} here", Score: 75},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var got reply
			require.NoError(t, ai.ParseLLMJSON(tc.raw, &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseLLMJSON_Unrecoverable(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "no json here at all", "{broken", "[1,2,3"} {
		var got reply
		err := ai.ParseLLMJSON(raw, &got)
		assert.ErrorIs(t, err, domain.ErrSchemaInvalid, "raw=%q", raw)
	}
}
