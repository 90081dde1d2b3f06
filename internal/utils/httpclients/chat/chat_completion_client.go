package chat

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"resty.dev/v3"

	"jan-server/services/dm-api/internal/infrastructure/logger"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

const (
	channelBufferSize    = 100
	dataPrefix           = "data:"
	doneMarker           = "[DONE]"
	eventStreamType      = "text/event-stream"
	scannerInitialBuffer = 12 * 1024        // 12KB
	scannerMaxBuffer     = 10 * 1024 * 1024 // 10MB
	maxErrorBodyBytes    = 2048
)

// ChatCompletionClient talks to an OpenAI-compatible /chat/completions endpoint.
type ChatCompletionClient struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	name    string
	log     zerolog.Logger
}

func NewChatCompletionClient(client *resty.Client, name, baseURL, apiKey string) *ChatCompletionClient {
	return &ChatCompletionClient{
		client:  client,
		baseURL: normalizeBaseURL(baseURL),
		apiKey:  strings.TrimSpace(apiKey),
		name:    name,
		log:     logger.Component("chat-client").With().Str("client", name).Logger(),
	}
}

// CreateCompletion sends a non-streaming request and returns the reply text.
func (c *ChatCompletionClient) CreateCompletion(ctx context.Context, body []byte) (string, error) {
	resp, err := c.prepareRequest(ctx).
		SetBody(body).
		Post(c.endpoint("/chat/completions"))
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}
	if resp.IsError() {
		return "", c.statusError(ctx, resp.StatusCode(), resp.Bytes())
	}
	return c.decodeCompletion(ctx, resp.Bytes())
}

// StreamCompletion posts a streaming request and relays every content delta to onDelta.
// An error returned by onDelta aborts the stream and is returned as is.
// A success response that is not an event stream is decoded as a plain completion and
// delivered as a single delta. The accumulated reply is returned.
func (c *ChatCompletionClient) StreamCompletion(ctx context.Context, body []byte, onDelta func(delta string) error) (string, error) {
	resp, err := c.prepareRequest(ctx).
		SetHeader("Accept", eventStreamType).
		SetHeader("Accept-Encoding", "identity").
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(c.endpoint("/chat/completions"))
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeMalformed, "upstream returned an empty response", nil, "upstream-empty-body")
	}
	defer func() {
		if closeErr := resp.RawResponse.Body.Close(); closeErr != nil {
			c.log.Error().Err(closeErr).Msg("unable to close response body")
		}
	}()

	if resp.IsError() {
		raw, _ := io.ReadAll(io.LimitReader(resp.RawResponse.Body, maxErrorBodyBytes))
		return "", c.statusError(ctx, resp.StatusCode(), raw)
	}

	if !strings.HasPrefix(strings.ToLower(resp.Header().Get("Content-Type")), eventStreamType) {
		raw, err := io.ReadAll(resp.RawResponse.Body)
		if err != nil {
			return "", classifyTransportError(ctx, err)
		}
		content, err := c.decodeCompletion(ctx, raw)
		if err != nil {
			return "", err
		}
		c.log.Debug().Int("content_length", len(content)).Msg("upstream answered without streaming")
		if content != "" {
			if err := onDelta(content); err != nil {
				return content, err
			}
		}
		return content, nil
	}

	return c.readEventStream(ctx, resp.RawResponse.Body, onDelta)
}

func (c *ChatCompletionClient) readEventStream(ctx context.Context, body io.ReadCloser, onDelta func(delta string) error) (string, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	lines := make(chan string, channelBufferSize)
	errChan := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go c.streamLinesToChannel(streamCtx, body, lines, errChan, &wg)
	// closing the body unblocks a reader parked in Scan before we wait on it
	defer wg.Wait()
	defer body.Close()
	defer cancel()

	var content strings.Builder
	parsed, malformed := 0, 0

	for {
		select {
		case <-ctx.Done():
			return content.String(), classifyTransportError(ctx, ctx.Err())

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errChan:
					return content.String(), classifyTransportError(ctx, err)
				default:
				}
				return c.finishStream(ctx, content.String(), parsed, malformed)
			}

			data, found := strings.CutPrefix(line, dataPrefix)
			if !found {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "" {
				continue
			}
			if data == doneMarker {
				return c.finishStream(ctx, content.String(), parsed, malformed)
			}

			delta, err := c.processStreamChunk(ctx, data)
			if err != nil {
				if platformerrors.IsErrorType(err, platformerrors.ErrorTypeMalformed) {
					malformed++
					continue
				}
				return content.String(), err
			}
			parsed++
			if delta == "" {
				continue
			}
			content.WriteString(delta)
			if err := onDelta(delta); err != nil {
				return content.String(), err
			}
		}
	}
}

func (c *ChatCompletionClient) finishStream(ctx context.Context, content string, parsed, malformed int) (string, error) {
	if parsed == 0 && malformed > 0 {
		return content, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeMalformed,
			"upstream stream contained no readable chunks", nil, "upstream-stream-unreadable",
			map[string]any{"malformed_chunks": malformed})
	}
	if malformed > 0 {
		c.log.Warn().Int("malformed_chunks", malformed).Int("parsed_chunks", parsed).Msg("skipped malformed stream chunks")
	}
	return content, nil
}

func (c *ChatCompletionClient) streamLinesToChannel(ctx context.Context, body io.Reader, lines chan<- string, errChan chan<- error, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(lines)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)

	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case errChan <- err:
		default:
		}
	}
}

// processStreamChunk extracts the content delta of one SSE payload. Unparseable payloads
// come back as MALFORMED errors and are skipped by the caller.
func (c *ChatCompletionClient) processStreamChunk(ctx context.Context, data string) (string, error) {
	if !gjson.Valid(data) {
		c.log.Warn().Str("data", truncate(data, 200)).Msg("failed to parse stream chunk JSON")
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeMalformed, "malformed stream chunk", nil, "upstream-chunk-malformed")
	}

	chunk := gjson.Parse(data)
	if upstreamErr := chunk.Get("error"); upstreamErr.Exists() {
		message := upstreamErr.Get("message").String()
		if message == "" {
			message = upstreamErr.String()
		}
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"upstream reported an error mid-stream: "+message, nil, "upstream-stream-error")
	}

	var delta strings.Builder
	for _, content := range chunk.Get("choices.#.delta.content").Array() {
		delta.WriteString(content.String())
	}
	return delta.String(), nil
}

func (c *ChatCompletionClient) decodeCompletion(ctx context.Context, raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeMalformed,
			"upstream returned a body that is not JSON", nil, "upstream-body-malformed")
	}
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeMalformed,
			"upstream completion has no message content", nil, "upstream-completion-empty")
	}
	return content.String(), nil
}

func (c *ChatCompletionClient) prepareRequest(ctx context.Context) *resty.Request {
	req := c.client.R().SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	req.SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	return req
}

func (c *ChatCompletionClient) statusError(ctx context.Context, status int, body []byte) error {
	detail := strings.TrimSpace(gjson.GetBytes(body, "error.message").String())
	if detail == "" {
		detail = truncate(strings.TrimSpace(string(body)), 300)
	}
	message := fmt.Sprintf("upstream returned status %d", status)
	if detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
		message, nil, "upstream-status", map[string]any{"status_code": status})
}

func (c *ChatCompletionClient) endpoint(path string) string {
	if path == "" {
		return c.baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if c.baseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}

func (c *ChatCompletionClient) BaseURL() string {
	return c.baseURL
}

// classifyTransportError sorts a failed round trip into timeout, TLS or connection failures.
func classifyTransportError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		return err
	}

	errType, code := platformerrors.ErrorTypeUnavailable, "upstream-unreachable"
	switch {
	case errors.Is(err, context.Canceled):
		errType, code = platformerrors.ErrorTypeInternal, "request-cancelled"
	case isTimeout(err):
		errType, code = platformerrors.ErrorTypeTimeout, "upstream-timeout"
	case isTLS(err):
		errType, code = platformerrors.ErrorTypeTLS, "upstream-tls"
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, errType, "upstream request failed", err, code)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTLS(err error) bool {
	var (
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &recordErr), errors.As(err, &alertErr), errors.As(err, &verifyErr),
		errors.As(err, &authorityErr), errors.As(err, &hostnameErr), errors.As(err, &invalidErr):
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "tls:") || strings.Contains(msg, "x509:")
}

func normalizeBaseURL(base string) string {
	trimmed := strings.TrimSpace(base)
	trimmed = strings.TrimRight(trimmed, "/")
	return trimmed
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
