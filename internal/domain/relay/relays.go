package relay

import (
	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/domain/completion"
	"jan-server/services/dm-api/internal/domain/directive"
)

// Client is an upstream that can both stream and answer in one response.
type Client interface {
	Upstream
	Completer
}

// Relays holds the streaming pipeline and its buffered twin used by synchronous chat.
type Relays struct {
	Streaming *Relay
	Buffered  *Relay
}

func NewRelays(builder *completion.Builder, client Client, images ImageGenerator, extractor *directive.Extractor, recorder Recorder, log zerolog.Logger) Relays {
	return Relays{
		Streaming: NewRelay(builder, client, images, extractor, recorder, log),
		Buffered:  NewRelay(builder, Buffered(client), images, extractor, recorder, log.With().Bool("buffered", true).Logger()),
	}
}
