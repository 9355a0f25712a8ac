package agent_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopeasly/easly/internal/easly/agent"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want agent.Decision
	}{
		{
			name: "bare tool call",
			in:   `{"useTool":true,"toolName":"listOrders","args":{"limit":5},"reason":"need orders","needsAnotherTool":true}`,
			want: agent.UseTool{Tool: "listOrders", Args: map[string]any{"limit": 5.0}, Reason: "need orders", NeedsAnotherTool: true},
		},
		{
			name: "fenced block with prose",
			in:   "Sure.\n```json\n{\"useTool\":true,\"toolName\":\"getInventorySummary\"}\n```\nDone.",
			want: agent.UseTool{Tool: "getInventorySummary", Args: map[string]any{}},
		},
		{
			name: "tool named none",
			in:   `{"useTool":true,"toolName":"none","finalAnswer":" Nothing to do. "}`,
			want: agent.Answer{Text: "Nothing to do."},
		},
		{
			name: "no tool",
			in:   `{"useTool":false,"toolName":"none","reason":"chit-chat","finalAnswer":"Hello!"}`,
			want: agent.Answer{Text: "Hello!", Reason: "chit-chat"},
		},
		{
			name: "missing tool name",
			in:   `{"useTool":true}`,
			want: agent.Answer{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := agent.ParseDecision(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ParseDecision mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDecision_Fallback(t *testing.T) {
	for _, in := range []string{"", "I would check the inventory first.", "```json\n{broken\n```"} {
		got := agent.ParseDecision(in)
		fb, ok := got.(agent.Fallback)
		require.True(t, ok, "input %q parsed as %T", in, got)
		assert.ErrorIs(t, fb.Err, agent.ErrNoJSON)
		assert.Equal(t, in, fb.Raw)
	}
}
