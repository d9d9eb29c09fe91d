package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTools(t *testing.T) []catalog.Descriptor {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return cat.List()
}

func testTurns() []conversation.Turn {
	return []conversation.Turn{
		conversation.System("use tools"),
		conversation.User("What claims does Jane Doe have?"),
		conversation.CallRequest("call_1", "get_claims", map[string]interface{}{"name": "Jane Doe"}),
		conversation.CapabilityResult("call_1", "get_claims", json.RawMessage(`[{"claimId":"CLM-1001"}]`)),
	}
}

func openAIServer(t *testing.T, status int, body string, seen *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_ToolCall(t *testing.T) {
	var seen map[string]interface{}
	srv := openAIServer(t, http.StatusOK, `{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
			"role": "assistant", "content": "",
			"tool_calls": [{"id": "call_2", "type": "function",
				"function": {"name": "get_hccs", "arguments": "{\"name\":\"Jane Doe\"}"}}]
		}}]
	}`, &seen)

	c := NewOpenAIClient("sk-test", srv.URL+"/v1", "gpt-4o-mini", 256)
	resp, err := c.Complete(context.Background(), testTurns(), testTools(t))
	require.NoError(t, err)
	require.True(t, resp.IsCall())
	assert.Equal(t, "call_2", resp.Call.ID)
	assert.Equal(t, "get_hccs", resp.Call.Name)
	assert.Equal(t, map[string]interface{}{"name": "Jane Doe"}, resp.Call.Arguments)

	assert.Equal(t, "auto", seen["tool_choice"])
	assert.Len(t, seen["tools"], 6)
	msgs := seen["messages"].([]interface{})
	require.Len(t, msgs, 4)
	roles := []string{}
	for _, m := range msgs {
		roles = append(roles, m.(map[string]interface{})["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant", "tool"}, roles)
	assert.Equal(t, "call_1", msgs[3].(map[string]interface{})["tool_call_id"])
}

func TestOpenAIClient_Text(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, `{
		"id": "chatcmpl-2", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "Jane Doe has one paid claim."}}]
	}`, nil)

	c := NewOpenAIClient("sk-test", srv.URL+"/v1", "gpt-4o-mini", 256)
	resp, err := c.Complete(context.Background(), testTurns(), testTools(t))
	require.NoError(t, err)
	assert.False(t, resp.IsCall())
	assert.Equal(t, "Jane Doe has one paid claim.", resp.Text)
}

func TestOpenAIClient_Malformed(t *testing.T) {
	tests := map[string]string{
		"no choices": `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`,
		"bad arguments": `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"",
			"tool_calls":[{"id":"c","type":"function","function":{"name":"get_claims","arguments":"{not json"}}]}}]}`,
		"empty": `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":""}}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			srv := openAIServer(t, http.StatusOK, body, nil)
			c := NewOpenAIClient("sk-test", srv.URL+"/v1", "m", 16)
			_, err := c.Complete(context.Background(), testTurns(), nil)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestOpenAIClient_RateLimitedIsRetryable(t *testing.T) {
	srv := openAIServer(t, http.StatusTooManyRequests,
		`{"error":{"message":"slow down","type":"rate_limit_error","code":"rate_limit_exceeded"}}`, nil)

	c := NewOpenAIClient("sk-test", srv.URL+"/v1", "m", 16)
	_, err := c.Complete(context.Background(), testTurns(), nil)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}
