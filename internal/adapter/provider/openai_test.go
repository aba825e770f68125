package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blograg/internal/domain"
	"blograg/internal/port"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(Config{
		BaseURL:    srv.URL,
		EmbedModel: "test-embed",
		ChatModel:  "test-chat",
		Dimension:  3,
		BatchSize:  2,
	})
}

func TestEmbedBatches(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{1, 2, 3}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	})

	vecs, err := c.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
	assert.Equal(t, 2, calls, "batch size 2 should split 3 texts into 2 calls")
}

func TestEmbedErrorIsRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
}

func TestChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-chat", req.Model)
		assert.False(t, req.Stream)

		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello there"}}],"usage":{"total_tokens":42}}`)
	})

	res, err := c.Chat(context.Background(), []port.ChatMessage{{Role: "user", Content: "hi"}}, port.ChatOptions{MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.Content)
	assert.Equal(t, 42, res.TokensUsed)
}

func TestChatStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"total_tokens\":7}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var got []string
	res, err := c.ChatStream(context.Background(), []port.ChatMessage{{Role: "user", Content: "hi"}}, port.ChatOptions{}, func(delta string) error {
		got = append(got, delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hel", "lo"}, got)
	assert.Equal(t, "hello", res.Content)
	assert.Equal(t, 7, res.TokensUsed)
}

func TestChatStreamCallbackAborts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 10; i++ {
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var calls int
	_, err := c.ChatStream(context.Background(), nil, port.ChatOptions{}, func(delta string) error {
		calls++
		if calls == 2 {
			return fmt.Errorf("stop")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestMockStreamMatchesChat(t *testing.T) {
	m := NewMock(8)
	msgs := []port.ChatMessage{{Role: "user", Content: "what is Go?"}}

	sync, err := m.Chat(context.Background(), msgs, port.ChatOptions{})
	require.NoError(t, err)

	var sb strings.Builder
	streamed, err := m.ChatStream(context.Background(), msgs, port.ChatOptions{}, func(delta string) error {
		sb.WriteString(delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, sync.Content, sb.String())
	assert.Equal(t, sync.Content, streamed.Content)
}

func TestMockEmbedDeterministic(t *testing.T) {
	m := NewMock(16)
	a, err := m.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	b, err := m.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a[0], 16)
}
