package prompt

import (
	"context"

	"jan-server/services/dm-api/internal/domain/session"
)

// Context contains contextual information for composing the DM system prompt
type Context struct {
	GameID      string
	Multiplayer bool
	Action      session.Action
	// Disabled lists module names to skip for this turn.
	Disabled []string
}

// Module contributes one piece of the system prompt
type Module interface {
	// Name returns the module identifier
	Name() string

	// ShouldApply determines if this module should be applied based on context
	ShouldApply(ctx context.Context, promptCtx *Context) bool

	// Apply returns the system prompt with this module's contribution
	Apply(ctx context.Context, promptCtx *Context, systemPrompt string) (string, error)
}

// Processor composes the system prompt by applying conditional modules in order
type Processor interface {
	SystemPrompt(ctx context.Context, promptCtx *Context) (string, error)
}
