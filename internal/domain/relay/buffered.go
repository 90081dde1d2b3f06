package relay

import (
	"context"

	"github.com/tidwall/sjson"
)

// Completer returns a whole chat completion in one response.
type Completer interface {
	CreateCompletion(ctx context.Context, body []byte) (string, error)
}

type bufferedUpstream struct {
	completer Completer
}

// Buffered adapts a Completer to Upstream. The request is sent with streaming turned
// off and the reply is delivered as a single delta.
func Buffered(completer Completer) Upstream {
	return &bufferedUpstream{completer: completer}
}

func (b *bufferedUpstream) StreamCompletion(ctx context.Context, body []byte, onDelta func(delta string) error) (string, error) {
	body, err := sjson.SetBytes(body, "stream", false)
	if err != nil {
		return "", err
	}
	reply, err := b.completer.CreateCompletion(ctx, body)
	if err != nil {
		return "", err
	}
	if reply != "" {
		if err := onDelta(reply); err != nil {
			return reply, err
		}
	}
	return reply, nil
}
