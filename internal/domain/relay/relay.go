package relay

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/domain/completion"
	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/domain/directive"
	"jan-server/services/dm-api/internal/domain/session"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

// Upstream streams one chat completion, calling onDelta for every text increment.
type Upstream interface {
	StreamCompletion(ctx context.Context, body []byte, onDelta func(delta string) error) (string, error)
}

// ImageGenerator turns a prompt into a data URI.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder persists the messages a turn produced.
type Recorder interface {
	Append(ctx context.Context, key conversation.Key, messages ...conversation.Message) error
}

// Turn is the input of one relay run.
type Turn struct {
	Session session.Context
	History []conversation.Message
}

// ImageResult is the outcome of one image task.
type ImageResult struct {
	Prompt   string
	ImageURL string
	Err      error
	Duration time.Duration
}

func (r ImageResult) Succeeded() bool {
	return r.Err == nil && r.ImageURL != ""
}

// Outcome summarizes a finished relay run.
type Outcome struct {
	Model     string
	Dropped   int
	Raw       string
	Reply     string
	Prompts   []string
	Images    []ImageResult
	Appended  []conversation.Message
	Persisted bool
	Failure   Failure
	Deltas    int
	Duration  time.Duration
}

// Failed reports whether the turn ended without a usable reply.
func (o Outcome) Failed() bool {
	return o.Failure.Class != FailureNone
}

type Relay struct {
	builder   *completion.Builder
	upstream  Upstream
	images    ImageGenerator
	extractor *directive.Extractor
	recorder  Recorder
	log       zerolog.Logger
}

// NewRelay wires the pipeline. images and recorder may be nil, which disables image
// generation and server-side persistence respectively.
func NewRelay(builder *completion.Builder, upstream Upstream, images ImageGenerator, extractor *directive.Extractor, recorder Recorder, log zerolog.Logger) *Relay {
	return &Relay{
		builder:   builder,
		upstream:  upstream,
		images:    images,
		extractor: extractor,
		recorder:  recorder,
		log:       log.With().Str("component", "relay").Logger(),
	}
}

// Run executes one turn and streams its events to sink. Whatever happens, the last
// event sink receives is exactly one done event.
func (r *Relay) Run(ctx context.Context, turn Turn, sink EventSink) (out Outcome) {
	started := time.Now()
	em := &emitter{sink: sink}
	log := r.log.With().
		Str("game_id", turn.Session.GameID).
		Str("request_id", turn.Session.RequestID).
		Logger()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("relay panicked")
			out.Failure = Failure{Class: FailureInternal, Err: fmt.Errorf("relay panic: %v", rec)}
			out.Persisted = false
			em.send(NewErrorEvent(out.Failure))
		}
		em.done()
		out.Duration = time.Since(started)
	}()

	req, err := r.builder.Build(ctx, turn.Session, turn.History)
	if err != nil {
		out.Failure = r.fail(ctx, log, em, err)
		return out
	}
	out.Model = req.Model
	out.Dropped = req.Dropped

	body, err := req.Encode(true)
	if err != nil {
		out.Failure = r.fail(ctx, log, em, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to encode completion request"))
		return out
	}

	var accumulated strings.Builder
	raw, err := r.upstream.StreamCompletion(ctx, body, func(delta string) error {
		accumulated.WriteString(delta)
		out.Deltas++
		return em.send(NewDeltaEvent(delta, accumulated.String()))
	})
	if err == nil && em.err != nil {
		err = em.err
	}
	if err != nil {
		if em.err != nil {
			err = fmt.Errorf("%w: %w", context.Canceled, err)
		}
		out.Failure = r.fail(ctx, log, em, err)
		return out
	}
	out.Raw = raw

	if strings.TrimSpace(raw) == "" {
		out.Failure = r.fail(ctx, log, em, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeMalformed, "upstream returned an empty reply", nil, "relay-empty-reply"))
		return out
	}

	reply, prompts := r.extractor.Extract(raw)
	out.Reply = reply
	out.Prompts = prompts
	out.Appended = append(out.Appended, conversation.NewAssistantMessage(reply))

	for _, prompt := range prompts {
		result := r.generateImage(ctx, prompt)
		out.Images = append(out.Images, result)
		if result.Succeeded() {
			out.Appended = append(out.Appended, conversation.NewImageMessage(prompt, result.ImageURL))
			em.send(NewImageEvent(prompt, result.ImageURL, reply))
			continue
		}
		var pe *platformerrors.PlatformError
		if errors.As(result.Err, &pe) {
			platformerrors.LogError(log, pe)
		} else {
			log.Error().Err(result.Err).Str("prompt", prompt).Msg("image generation failed")
		}
		notice := conversation.NewImageFailureNotice(prompt, imageFailureReason(result.Err))
		out.Appended = append(out.Appended, notice)
		em.send(NewImageErrorEvent(prompt, notice.Content, reply))
	}

	if ctx.Err() != nil || em.err != nil {
		out.Failure = Failure{Class: FailureCancelled, Err: errors.Join(ctx.Err(), em.err)}
		log.Info().Msg("client went away before the turn finished, nothing recorded")
		return out
	}

	if turn.Session.ServerStored() && r.recorder != nil {
		if err := r.recorder.Append(ctx, turn.Session.Key(), out.Appended...); err != nil {
			log.Error().Err(err).Msg("failed to record turn")
			em.send(NewErrorEvent(Failure{Class: FailureInternal, Err: err}))
		} else {
			out.Persisted = true
		}
	}

	log.Debug().
		Str("model", out.Model).
		Int("deltas", out.Deltas).
		Int("reply_length", len(reply)).
		Int("images", len(prompts)).
		Bool("persisted", out.Persisted).
		Msg("turn completed")
	return out
}

// generateImage runs one image task, capturing a failure or panic in the result.
func (r *Relay) generateImage(ctx context.Context, prompt string) (result ImageResult) {
	started := time.Now()
	result.Prompt = prompt
	defer func() {
		if rec := recover(); rec != nil {
			result.Err = fmt.Errorf("image generation panicked: %v", rec)
		}
		result.Duration = time.Since(started)
	}()

	if r.images == nil {
		result.Err = errors.New("image generation is not configured")
		return result
	}
	url, err := r.images.Generate(ctx, prompt)
	if err == nil && url == "" {
		err = errors.New("image service returned no image")
	}
	result.ImageURL = url
	result.Err = err
	return result
}

func (r *Relay) fail(ctx context.Context, log zerolog.Logger, em *emitter, err error) Failure {
	failure := Classify(ctx, err)
	if failure.Class == FailureCancelled {
		log.Info().Err(err).Msg("turn cancelled")
		return failure
	}
	var pe *platformerrors.PlatformError
	if errors.As(err, &pe) {
		platformerrors.LogError(log, pe)
	} else {
		log.Error().Err(err).Str("failure", string(failure.Class)).Msg("turn failed")
	}
	em.send(NewErrorEvent(failure))
	return failure
}

func imageFailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded), platformerrors.IsErrorType(err, platformerrors.ErrorTypeTimeout):
		return "the image service timed out"
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeMalformed):
		return "the image service returned an unreadable image"
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal):
		return "the image service rejected the request"
	default:
		return "the image service is unavailable"
	}
}

// emitter forwards events until the sink fails and guarantees a single done event.
type emitter struct {
	sink     EventSink
	err      error
	finished bool
}

func (e *emitter) send(event StreamEvent) error {
	if e.err != nil {
		return e.err
	}
	if e.finished {
		return errors.New("event after done")
	}
	if err := e.sink.Send(event); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *emitter) done() {
	if e.finished {
		return
	}
	e.finished = true
	if e.err == nil {
		e.err = e.sink.Send(NewDoneEvent())
	}
}
