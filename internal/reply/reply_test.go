package reply

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "content block first",
			body: `{"role":"assistant","content":[{"type":"text","text":"Here are your repositories (2 total)"}],"message":"ignored","success":true}`,
			want: "Here are your repositories (2 total)",
		},
		{
			name: "skips empty blocks",
			body: `{"content":[{"type":"image"},{"type":"text","text":"second"}]}`,
			want: "second",
		},
		{
			name: "message fallback",
			body: `{"success":true,"message":"Repository 'demo' created successfully!","repo":{"name":"demo"}}`,
			want: "Repository 'demo' created successfully!",
		},
		{
			name: "empty content falls to message",
			body: `{"content":[],"message":"done"}`,
			want: "done",
		},
		{
			name: "content survives odd message type",
			body: `{"content":[{"text":"hi"}],"message":123}`,
			want: "hi",
		},
		{
			name: "string content falls to message",
			body: `{"content":"oops","message":"done"}`,
			want: "done",
		},
		{
			name: "odd success type keeps message",
			body: `{"success":"yes","message":"created"}`,
			want: "created",
		},
		{
			name: "non string text skipped",
			body: `{"content":[{"text":7},{"text":"next"}]}`,
			want: "next",
		},
		{
			name: "pretty dump",
			body: `{"success":true,"output":"abc"}`,
			want: "{\n  \"success\": true,\n  \"output\": \"abc\"\n}",
		},
		{
			name: "array dump",
			body: `[1,2]`,
			want: "[\n  1,\n  2\n]",
		},
		{
			name: "not json",
			body: "  plain text\n",
			want: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Reduce([]byte(tt.body)))
		})
	}
}

func TestFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
		failed bool
	}{
		{name: "ok", status: 200, body: `{"success":true,"message":"ok"}`},
		{name: "ok without flag", status: 200, body: `{"content":[{"type":"text","text":"x"}]}`},
		{name: "500 with error", status: 500, body: `{"success":false,"error":"boom"}`, want: "boom", failed: true},
		{name: "400 missing name", status: 400, body: `{"error":"Repository name required"}`, want: "Repository name required", failed: true},
		{name: "200 success false", status: 200, body: `{"success":false,"message":"nope"}`, want: "nope", failed: true},
		{name: "error object", status: 502, body: `{"error":{"message":"upstream"}}`, want: "upstream", failed: true},
		{name: "content text", status: 500, body: `{"content":[{"type":"text","text":"Failed to list"}],"success":false}`, want: "Failed to list", failed: true},
		{name: "plain body", status: 503, body: "unavailable\n", want: "unavailable", failed: true},
		{name: "200 success false string", status: 200, body: `{"success":"false","message":"denied"}`, want: "denied", failed: true},
		{name: "200 success true string", status: 200, body: `{"success":"true","message":"ok"}`},
		{name: "odd message type", status: 500, body: `{"error":"boom","message":42}`, want: "boom", failed: true},
		{name: "no message", status: 500, body: `{}`, want: "", failed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, failed := Failure(tt.status, []byte(tt.body))
			require.Equal(t, tt.failed, failed)
			require.Equal(t, tt.want, msg)
		})
	}
}
