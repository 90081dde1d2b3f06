package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/dm-api/internal/domain/completion"
	"jan-server/services/dm-api/internal/domain/contextwindow"
	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/domain/directive"
	"jan-server/services/dm-api/internal/domain/model"
	"jan-server/services/dm-api/internal/domain/prompt"
	"jan-server/services/dm-api/internal/domain/session"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

type mockUpstream struct {
	StreamFunc func(ctx context.Context, body []byte, onDelta func(string) error) (string, error)
}

func (m *mockUpstream) StreamCompletion(ctx context.Context, body []byte, onDelta func(string) error) (string, error) {
	return m.StreamFunc(ctx, body, onDelta)
}

type mockImages struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *mockImages) Generate(ctx context.Context, prompt string) (string, error) {
	return m.GenerateFunc(ctx, prompt)
}

type mockRecorder struct {
	calls    int
	key      conversation.Key
	messages []conversation.Message
	err      error
}

func (m *mockRecorder) Append(_ context.Context, key conversation.Key, messages ...conversation.Message) error {
	m.calls++
	m.key = key
	m.messages = append(m.messages, messages...)
	return m.err
}

type recordingSink struct {
	events []StreamEvent
	failAt int
}

func (s *recordingSink) Send(event StreamEvent) error {
	if s.failAt > 0 && len(s.events)+1 >= s.failAt {
		return errors.New("broken pipe")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) kinds() []EventKind {
	kinds := make([]EventKind, len(s.events))
	for i, e := range s.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func streamOf(chunks ...string) *mockUpstream {
	return &mockUpstream{StreamFunc: func(ctx context.Context, body []byte, onDelta func(string) error) (string, error) {
		var full strings.Builder
		for _, c := range chunks {
			full.WriteString(c)
			if err := onDelta(c); err != nil {
				return full.String(), err
			}
		}
		return full.String(), nil
	}}
}

func failingUpstream(err error) *mockUpstream {
	return &mockUpstream{StreamFunc: func(context.Context, []byte, func(string) error) (string, error) {
		return "", err
	}}
}

func newTestRelay(upstream Upstream, images ImageGenerator, recorder Recorder) *Relay {
	builder := completion.NewBuilder(
		model.NewDefaultCatalog(),
		prompt.NewProcessor(zerolog.Nop()),
		contextwindow.NewTruncator(contextwindow.DefaultLimits(), zerolog.Nop()),
		completion.Options{MaxContextTokens: 45000, MinRecentMessages: 6},
		zerolog.Nop(),
	)
	extractor := directive.NewExtractor(directive.Options{StylePrefix: "fantasy art style", MaxPrompts: 3})
	return NewRelay(builder, upstream, images, extractor, recorder, zerolog.Nop())
}

func testTurn() Turn {
	return Turn{
		Session: session.Context{UserID: "u1", GameID: "g1", StorageMode: session.StorageServer},
		History: []conversation.Message{
			conversation.NewWelcomeMessage(),
			conversation.NewUserMessage(1, "My name is Finn"),
		},
	}
}

func assertSingleTerminalDone(t *testing.T, sink *recordingSink) {
	t.Helper()
	require.NotEmpty(t, sink.events)
	done := 0
	for _, e := range sink.events {
		if e.Kind == EventDone {
			done++
		}
	}
	assert.Equal(t, 1, done, "exactly one done event")
	assert.Equal(t, EventDone, sink.events[len(sink.events)-1].Kind, "done must be last")
}

func TestRunStreamsAndRecords(t *testing.T) {
	recorder := &mockRecorder{}
	sink := &recordingSink{}

	out := newTestRelay(streamOf("So your name ", "is Finn!"), nil, recorder).Run(context.Background(), testTurn(), sink)

	assert.False(t, out.Failed())
	assert.Equal(t, []EventKind{EventDelta, EventDelta, EventDone}, sink.kinds())
	assert.Equal(t, "So your name is Finn!", sink.events[1].Full)
	assertSingleTerminalDone(t, sink)

	require.Equal(t, 1, recorder.calls)
	assert.Equal(t, conversation.NewKey("u1", "g1"), recorder.key)
	require.Len(t, recorder.messages, 1)
	assert.Equal(t, "So your name is Finn!", recorder.messages[0].Content)
	assert.True(t, out.Persisted)
}

func TestRunTerminationGuarantee(t *testing.T) {
	cases := map[string]*mockUpstream{
		"success": streamOf("Hello"),
		"status 500": failingUpstream(platformerrors.NewErrorWithContext(context.Background(), platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal, "upstream returned status 500", nil, "upstream-status",
			map[string]any{"status_code": http.StatusInternalServerError})),
		"connection failure": failingUpstream(platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeUnavailable, "upstream request failed", errors.New("connection refused"), "upstream-unreachable")),
		"malformed chunk": failingUpstream(platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeMalformed, "upstream stream contained no readable chunks", nil, "upstream-stream-unreadable")),
		"panic": {StreamFunc: func(context.Context, []byte, func(string) error) (string, error) {
			panic("boom")
		}},
	}

	for name, upstream := range cases {
		t.Run(name, func(t *testing.T) {
			sink := &recordingSink{}
			recorder := &mockRecorder{}
			newTestRelay(upstream, nil, recorder).Run(context.Background(), testTurn(), sink)
			assertSingleTerminalDone(t, sink)
			if name != "success" {
				assert.Zero(t, recorder.calls, "failed turns are not recorded")
			}
		})
	}
}

func TestRunFailureClasses(t *testing.T) {
	cases := []struct {
		err    error
		class  FailureClass
		status int
	}{
		{platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure, platformerrors.ErrorTypeTLS, "tls", nil, "tls"), FailureTLS, 0},
		{platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure, platformerrors.ErrorTypeTimeout, "slow", nil, "timeout"), FailureTimeout, 0},
		{platformerrors.NewErrorWithContext(context.Background(), platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "status", nil, "status",
			map[string]any{"status_code": 401}), FailureUpstreamStatus, 401},
		{errors.New("something odd"), FailureInternal, 0},
	}

	for _, tc := range cases {
		t.Run(string(tc.class), func(t *testing.T) {
			sink := &recordingSink{}
			out := newTestRelay(failingUpstream(tc.err), nil, nil).Run(context.Background(), testTurn(), sink)

			require.Equal(t, []EventKind{EventError, EventDone}, sink.kinds())
			errEvent := sink.events[0]
			assert.True(t, errEvent.Error)
			assert.Equal(t, tc.class, errEvent.Failure)
			assert.Equal(t, tc.status, errEvent.StatusCode)
			assert.NotEmpty(t, errEvent.Content)
			assert.Equal(t, tc.class, out.Failure.Class)
		})
	}
}

func TestRunPartialImageFailure(t *testing.T) {
	reply := "You enter the hall. [IMAGE: a great hall] A dragon wakes. [IMAGE: a red dragon] It roars. [IMAGE: a fleeing bard]"
	images := &mockImages{GenerateFunc: func(_ context.Context, prompt string) (string, error) {
		if prompt == "a red dragon" {
			return "", errors.New("image backend exploded")
		}
		return "data:image/png;base64,AAAA", nil
	}}
	recorder := &mockRecorder{}
	sink := &recordingSink{}

	out := newTestRelay(streamOf(reply), images, recorder).Run(context.Background(), testTurn(), sink)

	assert.Equal(t, []EventKind{EventDelta, EventImage, EventError, EventImage, EventDone}, sink.kinds())
	assert.Equal(t, "a great hall", sink.events[1].Prompt)
	assert.Equal(t, "image_error", sink.events[2].Type)
	assert.Equal(t, "a red dragon", sink.events[2].Prompt)
	assert.Equal(t, "a fleeing bard", sink.events[3].Prompt)
	assert.NotContains(t, sink.events[1].Full, "[IMAGE:")

	require.Len(t, out.Images, 3)
	assert.True(t, out.Images[0].Succeeded())
	assert.False(t, out.Images[1].Succeeded())
	assert.True(t, out.Images[2].Succeeded())
	assert.False(t, out.Failed())

	require.Equal(t, 1, recorder.calls)
	require.Len(t, recorder.messages, 4)
	assert.Equal(t, "You enter the hall. A dragon wakes. It roars.", recorder.messages[0].Content)
	assert.True(t, recorder.messages[1].IsImage())
	assert.Equal(t, conversation.MessageTypeImageError, recorder.messages[2].MessageType)
	assert.True(t, recorder.messages[3].IsImage())
}

func TestRunImagePanicIsIsolated(t *testing.T) {
	calls := 0
	images := &mockImages{GenerateFunc: func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			panic("nil map")
		}
		return "data:image/png;base64,AAAA", nil
	}}
	sink := &recordingSink{}

	newTestRelay(streamOf("[IMAGE: one] and [IMAGE: two]"), images, nil).Run(context.Background(), testTurn(), sink)

	assert.Equal(t, []EventKind{EventDelta, EventError, EventImage, EventDone}, sink.kinds())
}

func TestRunWithoutImageServiceEmitsNotices(t *testing.T) {
	sink := &recordingSink{}

	out := newTestRelay(streamOf("Look! [IMAGE: a goblin]"), nil, nil).Run(context.Background(), testTurn(), sink)

	assert.Equal(t, []EventKind{EventDelta, EventError, EventDone}, sink.kinds())
	require.Len(t, out.Appended, 2)
}

func TestRunClientStorageIsNotRecorded(t *testing.T) {
	recorder := &mockRecorder{}
	turn := testTurn()
	turn.Session.StorageMode = session.StorageClient

	out := newTestRelay(streamOf("Hi"), nil, recorder).Run(context.Background(), turn, &recordingSink{})

	assert.Zero(t, recorder.calls)
	assert.False(t, out.Persisted)
	require.Len(t, out.Appended, 1)
}

func TestRunClientDisconnectStopsStream(t *testing.T) {
	recorder := &mockRecorder{}
	sink := &recordingSink{failAt: 2}
	upstreamSawError := false
	upstream := &mockUpstream{StreamFunc: func(ctx context.Context, body []byte, onDelta func(string) error) (string, error) {
		for _, c := range []string{"a", "b", "c"} {
			if err := onDelta(c); err != nil {
				upstreamSawError = true
				return "", err
			}
		}
		return "abc", nil
	}}

	out := newTestRelay(upstream, nil, recorder).Run(context.Background(), testTurn(), sink)

	assert.True(t, upstreamSawError)
	assert.Equal(t, FailureCancelled, out.Failure.Class)
	assert.Zero(t, recorder.calls)
	assert.Len(t, sink.events, 1)
}

func TestRunCancelledContextIsNotRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	recorder := &mockRecorder{}
	images := &mockImages{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
		cancel()
		return "", ctx.Err()
	}}

	out := newTestRelay(streamOf("[IMAGE: a door]"), images, recorder).Run(ctx, testTurn(), &recordingSink{})

	assert.Equal(t, FailureCancelled, out.Failure.Class)
	assert.Zero(t, recorder.calls)
}

func TestRunRecorderFailureStillEndsWithDone(t *testing.T) {
	recorder := &mockRecorder{err: errors.New("disk full")}
	sink := &recordingSink{}

	out := newTestRelay(streamOf("Hi"), nil, recorder).Run(context.Background(), testTurn(), sink)

	assert.Equal(t, []EventKind{EventDelta, EventError, EventDone}, sink.kinds())
	assert.False(t, out.Persisted)
}

func TestRunEmptyReplyIsMalformed(t *testing.T) {
	sink := &recordingSink{}
	recorder := &mockRecorder{}

	out := newTestRelay(streamOf(), nil, recorder).Run(context.Background(), testTurn(), sink)

	assert.Equal(t, FailureMalformed, out.Failure.Class)
	assert.Equal(t, []EventKind{EventError, EventDone}, sink.kinds())
	assert.Zero(t, recorder.calls)
}

func TestEncode(t *testing.T) {
	done, err := NewDoneEvent().Encode()
	require.NoError(t, err)
	assert.Equal(t, "event: done\ndata: [DONE]\n\n", string(done))

	delta, err := NewDeltaEvent("", "").Encode()
	require.NoError(t, err)
	assert.Equal(t, "data: {\"type\":\"delta\",\"content\":\"\"}\n\n", string(delta))

	image, err := NewImageEvent("a cave", "data:image/png;base64,AA", "text").Encode()
	require.NoError(t, err)
	assert.Contains(t, string(image), `"image_url":"data:image/png;base64,AA"`)
	assert.Contains(t, string(image), `"content":""`)
}
