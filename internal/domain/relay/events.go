package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"jan-server/services/dm-api/internal/utils/platformerrors"
)

type EventKind string

const (
	EventDelta EventKind = "delta"
	EventImage EventKind = "image"
	EventError EventKind = "error"
	EventDone  EventKind = "done"
)

// typeImageError is the payload type of the inline notice for a failed image.
const typeImageError = "image_error"

// StreamEvent is one Server-Sent Event sent to the browser.
// Content is always serialized because the client reads it on every message.
type StreamEvent struct {
	Kind       EventKind    `json:"-"`
	Type       string       `json:"type"`
	Content    string       `json:"content"`
	Full       string       `json:"full,omitempty"`
	Error      bool         `json:"error,omitempty"`
	ImageURL   string       `json:"image_url,omitempty"`
	Prompt     string       `json:"prompt,omitempty"`
	Failure    FailureClass `json:"failure,omitempty"`
	StatusCode int          `json:"status_code,omitempty"`
}

func NewDeltaEvent(delta, full string) StreamEvent {
	return StreamEvent{Kind: EventDelta, Type: string(EventDelta), Content: delta, Full: full}
}

// NewImageEvent announces a generated image. full carries the reply with directives removed.
func NewImageEvent(prompt, imageURL, full string) StreamEvent {
	return StreamEvent{Kind: EventImage, Type: string(EventImage), ImageURL: imageURL, Prompt: prompt, Full: full}
}

func NewErrorEvent(failure Failure) StreamEvent {
	message := failure.UserMessage()
	return StreamEvent{
		Kind:       EventError,
		Type:       string(EventError),
		Content:    message,
		Full:       message,
		Error:      true,
		Failure:    failure.Class,
		StatusCode: failure.StatusCode,
	}
}

func NewImageErrorEvent(prompt, notice, full string) StreamEvent {
	return StreamEvent{
		Kind:    EventError,
		Type:    typeImageError,
		Content: notice,
		Full:    full,
		Error:   true,
		Prompt:  prompt,
		Failure: FailureImage,
	}
}

func NewDoneEvent() StreamEvent {
	return StreamEvent{Kind: EventDone, Type: string(EventDone)}
}

// Encode renders the event in SSE wire format.
func (e StreamEvent) Encode() ([]byte, error) {
	if e.Kind == EventDone {
		return []byte("event: done\ndata: [DONE]\n\n"), nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Kind, err)
	}
	out := make([]byte, 0, len(payload)+8)
	out = append(out, "data: "...)
	out = append(out, payload...)
	out = append(out, '\n', '\n')
	return out, nil
}

// EventSink receives the events of one relay run. An error means the client is gone.
type EventSink interface {
	Send(event StreamEvent) error
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(event StreamEvent) error

func (f SinkFunc) Send(event StreamEvent) error {
	return f(event)
}

type FailureClass string

const (
	FailureNone           FailureClass = ""
	FailureTLS            FailureClass = "tls"
	FailureConnection     FailureClass = "connection"
	FailureTimeout        FailureClass = "timeout"
	FailureUpstreamStatus FailureClass = "upstream_status"
	FailureMalformed      FailureClass = "malformed"
	FailureInternal       FailureClass = "internal"
	FailureCancelled      FailureClass = "cancelled"
	FailureImage          FailureClass = "image"
)

const troubleConnecting = "I'm having trouble connecting to my brain right now. Please try again in a few moments."

// Failure is a classified stream-time error.
type Failure struct {
	Class      FailureClass
	StatusCode int
	Err        error
}

// UserMessage is the text shown in the chat for this failure.
func (f Failure) UserMessage() string {
	switch f.Class {
	case FailureTLS:
		return troubleConnecting + " (a secure connection to the AI service could not be established)"
	case FailureConnection:
		return troubleConnecting + " (the AI service could not be reached)"
	case FailureTimeout:
		return troubleConnecting + " (the AI service took too long to answer)"
	case FailureUpstreamStatus:
		if f.StatusCode > 0 {
			return fmt.Sprintf("%s (the AI service answered with status %d)", troubleConnecting, f.StatusCode)
		}
		return troubleConnecting + " (the AI service rejected the request)"
	case FailureMalformed:
		return troubleConnecting + " (the AI service sent a reply I could not read)"
	default:
		return troubleConnecting
	}
}

// Classify maps an error from the request pipeline onto a failure class.
func Classify(ctx context.Context, err error) Failure {
	if err == nil {
		return Failure{Class: FailureNone}
	}
	if errors.Is(err, context.Canceled) || (ctx != nil && errors.Is(ctx.Err(), context.Canceled)) {
		return Failure{Class: FailureCancelled, Err: err}
	}

	failure := Failure{Class: FailureInternal, Err: err}
	var platformErr *platformerrors.PlatformError
	if !errors.As(err, &platformErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			failure.Class = FailureTimeout
		}
		return failure
	}

	switch platformErr.Type {
	case platformerrors.ErrorTypeTLS:
		failure.Class = FailureTLS
	case platformerrors.ErrorTypeUnavailable:
		failure.Class = FailureConnection
	case platformerrors.ErrorTypeTimeout:
		failure.Class = FailureTimeout
	case platformerrors.ErrorTypeExternal:
		failure.Class = FailureUpstreamStatus
		failure.StatusCode = platformErr.StatusCode()
	case platformerrors.ErrorTypeMalformed:
		failure.Class = FailureMalformed
	}
	return failure
}
