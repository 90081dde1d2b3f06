package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/dm-api/internal/utils/httpclients"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ChatCompletionClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewChatCompletionClient(httpclients.NewClient("test", 5*time.Second), "test", server.URL+"/", "secret")
}

func sseHandler(t *testing.T, lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
			w.(http.Flusher).Flush()
		}
	}
}

func collect(t *testing.T, client *ChatCompletionClient) ([]string, string, error) {
	t.Helper()
	var deltas []string
	full, err := client.StreamCompletion(context.Background(), []byte(`{"stream":true}`), func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	return deltas, full, err
}

func TestStreamCompletion_RelaysDeltas(t *testing.T) {
	client := newTestClient(t, sseHandler(t,
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
		`: keep-alive`,
		`data: {"choices":[{"delta":{"content":", adventurer"}}]}`,
		`data: [DONE]`,
	))

	deltas, full, err := collect(t, client)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", ", adventurer"}, deltas)
	assert.Equal(t, "Hello, adventurer", full)
}

func TestStreamCompletion_SkipsMalformedChunk(t *testing.T) {
	client := newTestClient(t, sseHandler(t,
		`data: {"choices":[{"delta":{"content":"A"}}]}`,
		`data: {not json`,
		`data: {"choices":[{"delta":{"content":"B"}}]}`,
		`data: [DONE]`,
	))

	deltas, full, err := collect(t, client)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, deltas)
	assert.Equal(t, "AB", full)
}

func TestStreamCompletion_OnlyMalformedChunks(t *testing.T) {
	client := newTestClient(t, sseHandler(t, `data: garbage`, `data: [DONE]`))

	_, _, err := collect(t, client)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeMalformed))
}

func TestStreamCompletion_StreamEndsWithoutDoneMarker(t *testing.T) {
	client := newTestClient(t, sseHandler(t, `data: {"choices":[{"delta":{"content":"partial"}}]}`))

	_, full, err := collect(t, client)
	require.NoError(t, err)
	assert.Equal(t, "partial", full)
}

func TestStreamCompletion_UpstreamStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	})

	_, _, err := collect(t, client)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))

	var platformErr *platformerrors.PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, http.StatusInternalServerError, platformErr.StatusCode())
	assert.Contains(t, platformErr.Message, "model overloaded")
}

func TestStreamCompletion_MidStreamError(t *testing.T) {
	client := newTestClient(t, sseHandler(t,
		`data: {"choices":[{"delta":{"content":"Once"}}]}`,
		`data: {"error":{"message":"context length exceeded"}}`,
	))

	deltas, _, err := collect(t, client)
	require.Error(t, err)
	assert.Equal(t, []string{"Once"}, deltas)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))
}

func TestStreamCompletion_JSONFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Whole reply"}}]}`))
	})

	deltas, full, err := collect(t, client)
	require.NoError(t, err)
	assert.Equal(t, []string{"Whole reply"}, deltas)
	assert.Equal(t, "Whole reply", full)
}

func TestStreamCompletion_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewChatCompletionClient(httpclients.NewClient("test", time.Second), "test", url, "secret")
	_, _, err := collect(t, client)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnavailable))
}

func TestStreamCompletion_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.StreamCompletion(ctx, []byte(`{}`), func(string) error { return nil })
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeTimeout))
}

func TestStreamCompletion_CallbackErrorStopsStream(t *testing.T) {
	client := newTestClient(t, sseHandler(t,
		`data: {"choices":[{"delta":{"content":"one"}}]}`,
		`data: {"choices":[{"delta":{"content":"two"}}]}`,
		`data: [DONE]`,
	))

	stop := fmt.Errorf("client went away")
	calls := 0
	_, err := client.StreamCompletion(context.Background(), []byte(`{}`), func(string) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestCreateCompletion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"The tavern is quiet."}}]}`))
	})

	content, err := client.CreateCompletion(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "The tavern is quiet.", content)
}

func TestClassifyTransportError(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		err  error
		want platformerrors.ErrorType
	}{
		{context.DeadlineExceeded, platformerrors.ErrorTypeTimeout},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), platformerrors.ErrorTypeTimeout},
		{fmt.Errorf("tls: failed to verify certificate"), platformerrors.ErrorTypeTLS},
		{fmt.Errorf("x509: certificate signed by unknown authority"), platformerrors.ErrorTypeTLS},
		{fmt.Errorf("dial tcp: connection refused"), platformerrors.ErrorTypeUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			got := classifyTransportError(ctx, tc.err)
			assert.True(t, platformerrors.IsErrorType(got, tc.want), "got %v", got)
		})
	}
}

func TestEndpoint(t *testing.T) {
	client := NewChatCompletionClient(nil, "x", " https://api.venice.ai/api/v1/ ", "")
	assert.Equal(t, "https://api.venice.ai/api/v1/chat/completions", client.endpoint("/chat/completions"))
	assert.Equal(t, "https://api.venice.ai/api/v1/models", client.endpoint("models"))
	assert.True(t, strings.HasPrefix(client.endpoint("https://other/x"), "https://other"))
}
