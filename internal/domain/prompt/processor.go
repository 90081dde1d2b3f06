package prompt

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// ProcessorImpl implements the Processor interface
type ProcessorImpl struct {
	modules []Module
	log     zerolog.Logger
}

// NewProcessor creates a processor with the Dungeon Master modules registered in order.
func NewProcessor(log zerolog.Logger) *ProcessorImpl {
	processor := &ProcessorImpl{
		modules: make([]Module, 0, 6),
		log:     log.With().Str("component", "prompt-processor").Logger(),
	}

	processor.RegisterModule(NewBaseModule())
	processor.RegisterModule(NewMultiplayerModule())
	processor.RegisterModule(NewSingleplayerModule())
	processor.RegisterModule(NewCharacterCreationModule())
	// roster changes go last so they can override or extend the composed prompt
	processor.RegisterModule(NewPlayerJoinedModule())
	processor.RegisterModule(NewPlayerLeftModule())

	return processor
}

// RegisterModule adds a module to the processor
func (p *ProcessorImpl) RegisterModule(module Module) {
	p.modules = append(p.modules, module)
	p.log.Debug().Str("module", module.Name()).Msg("registered prompt module")
}

// SystemPrompt applies all relevant modules and returns the composed prompt
func (p *ProcessorImpl) SystemPrompt(ctx context.Context, promptCtx *Context) (string, error) {
	if promptCtx == nil {
		promptCtx = &Context{}
	}

	systemPrompt := ""
	applied := make([]string, 0, len(p.modules))
	for _, module := range p.modules {
		if !module.ShouldApply(ctx, promptCtx) {
			continue
		}
		var err error
		systemPrompt, err = module.Apply(ctx, promptCtx, systemPrompt)
		if err != nil {
			p.log.Error().
				Err(err).
				Str("module", module.Name()).
				Msg("failed to apply prompt module")
			return "", err
		}
		applied = append(applied, module.Name())
	}

	p.log.Debug().
		Strs("applied_modules", applied).
		Str("game_id", promptCtx.GameID).
		Msg("composed system prompt")

	return strings.TrimSpace(systemPrompt), nil
}
