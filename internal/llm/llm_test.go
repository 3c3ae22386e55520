package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"requirements": []}`, `{"requirements": []}`},
		{"fenced json", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced bare", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around", "Here you go:\n{\"a\": {\"b\": 2}}\nThanks.", `{"a": {"b": 2}}`},
		{"whitespace", "  \n{\"a\":1}\n ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := extractJSON(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestExtractJSON_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"no json here",
		`["array", "not", "object"]`,
		`{"unterminated": `,
		`{"a": 1} trailing {"b": }`,
	} {
		_, err := extractJSON(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrMalformedResponse), in)
	}
}
