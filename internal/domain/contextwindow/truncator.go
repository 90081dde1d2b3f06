package contextwindow

import (
	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/domain/conversation"
)

const (
	// DefaultResponseReserve is kept free for the model's reply.
	DefaultResponseReserve = 4000

	// DefaultLargePromptReserve replaces the response reserve when the system prompt is very large.
	DefaultLargePromptReserve = 8000

	// DefaultLargePromptThreshold is the system prompt size (tokens) that counts as very large.
	DefaultLargePromptThreshold = 2000

	// DefaultCheapTokenThreshold marks messages small enough to always survive.
	DefaultCheapTokenThreshold = 50

	// DefaultMaxMessages caps the number of history entries sent upstream.
	DefaultMaxMessages = 50

	// DefaultEmergencyKeep is how many messages survive the emergency collapse.
	DefaultEmergencyKeep = 6
)

// Limits tunes the truncation policy. Zero values fall back to the defaults.
type Limits struct {
	ResponseReserve      int
	LargePromptReserve   int
	LargePromptThreshold int
	CheapTokenThreshold  int
	MaxMessages          int
	EmergencyKeep        int
	// EmergencyCeiling bounds system prompt plus history. Zero means max_tokens.
	EmergencyCeiling int
}

func DefaultLimits() Limits {
	return Limits{
		ResponseReserve:      DefaultResponseReserve,
		LargePromptReserve:   DefaultLargePromptReserve,
		LargePromptThreshold: DefaultLargePromptThreshold,
		CheapTokenThreshold:  DefaultCheapTokenThreshold,
		MaxMessages:          DefaultMaxMessages,
		EmergencyKeep:        DefaultEmergencyKeep,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.ResponseReserve <= 0 {
		l.ResponseReserve = d.ResponseReserve
	}
	if l.LargePromptReserve <= 0 {
		l.LargePromptReserve = d.LargePromptReserve
	}
	if l.LargePromptThreshold <= 0 {
		l.LargePromptThreshold = d.LargePromptThreshold
	}
	if l.CheapTokenThreshold <= 0 {
		l.CheapTokenThreshold = d.CheapTokenThreshold
	}
	if l.MaxMessages <= 0 {
		l.MaxMessages = d.MaxMessages
	}
	if l.EmergencyKeep <= 0 {
		l.EmergencyKeep = d.EmergencyKeep
	}
	return l
}

// Result describes one truncation pass.
type Result struct {
	Messages        []conversation.Message
	Dropped         int
	EstimatedTokens int
	Emergency       bool
}

type Truncator struct {
	limits Limits
	log    zerolog.Logger
}

func NewTruncator(limits Limits, log zerolog.Logger) *Truncator {
	return &Truncator{
		limits: limits.withDefaults(),
		log:    log.With().Str("component", "context-truncator").Logger(),
	}
}

// Truncate selects the longest suffix of messages that fits the context window.
//
// The newest minRecent messages are always kept. Older messages survive while they fit
// the budget; cheap ones and structural notices survive regardless. The walk stops at
// the first message that does not fit, so the result is a contiguous suffix of the input
// and running it again on its own output returns the same slice.
func (t *Truncator) Truncate(messages []conversation.Message, systemPrompt string, maxTokens, minRecent int) Result {
	if len(messages) == 0 {
		return Result{Messages: []conversation.Message{}}
	}
	if minRecent < 0 {
		minRecent = 0
	}

	systemTokens := Estimate(systemPrompt)
	reserve := t.limits.ResponseReserve
	if systemTokens > t.limits.LargePromptThreshold {
		reserve = t.limits.LargePromptReserve
	}
	available := max(0, maxTokens-systemTokens-reserve)

	start := len(messages)
	running := 0
	for i := len(messages) - 1; i >= 0; i-- {
		cost := Estimate(messages[i].Content)
		fromEnd := len(messages) - 1 - i

		keep := fromEnd < minRecent ||
			cost < t.limits.CheapTokenThreshold ||
			messages[i].IsNotice() ||
			running+cost <= available
		if !keep {
			break
		}
		running += cost
		start = i
	}

	maxMessages := max(t.limits.MaxMessages, minRecent)
	if len(messages)-start > maxMessages {
		start = len(messages) - maxMessages
	}

	kept := messages[start:]
	total := sumTokens(kept)

	ceiling := t.limits.EmergencyCeiling
	if ceiling <= 0 {
		ceiling = maxTokens
	}
	emergency := false
	if systemTokens+total > ceiling {
		keep := max(t.limits.EmergencyKeep, minRecent)
		if len(kept) > keep {
			kept = kept[len(kept)-keep:]
			total = sumTokens(kept)
			emergency = true
		}
	}

	out := make([]conversation.Message, len(kept))
	copy(out, kept)

	dropped := len(messages) - len(out)
	if dropped > 0 {
		event := t.log.Info()
		if emergency {
			event = t.log.Warn().Bool("emergency", true)
		}
		event.
			Int("original_count", len(messages)).
			Int("kept_count", len(out)).
			Int("dropped", dropped).
			Int("system_tokens", systemTokens).
			Int("history_tokens", total).
			Int("budget", available).
			Msg("trimmed conversation to fit context window")
	}

	return Result{
		Messages:        out,
		Dropped:         dropped,
		EstimatedTokens: systemTokens + total,
		Emergency:       emergency,
	}
}

func sumTokens(messages []conversation.Message) int {
	total := 0
	for _, msg := range messages {
		total += Estimate(msg.Content)
	}
	return total
}
