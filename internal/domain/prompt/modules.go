package prompt

import (
	"context"
	"slices"
	"strings"

	"jan-server/services/dm-api/internal/domain/session"
)

const (
	baseModuleName         = "dungeon_master"
	multiplayerModuleName  = "multiplayer"
	singleplayerModuleName = "singleplayer"
	characterModuleName    = "character_creation"
	playerJoinedModuleName = "player_joined"
	playerLeftModuleName   = "player_left"
)

const (
	basePrompt = "Act as a friendly D&D 5e Dungeon Master. Keep responses brief and conversational. " +
		"Include appropriate emojis in your responses to make the game more engaging. " +
		"For example: use 🗡️ for combat, 🧙 for magic, 🏰 for locations, 😊 for emotions, etc. " +
		"When a scene deserves an illustration, add one line of the form [IMAGE: short visual description]. "

	multiplayerAddition = "You are running a multiplayer game with multiple players. " +
		"When a new player joins, welcome them warmly and ask for their name and character details. " +
		"Describe how their arrival affects the current story and environment. " +
		"Include all players in the adventure and give each player opportunities to contribute. " +
		"When a player tells you their name, acknowledge with 'Player X is now named [NAME]'. " +
		"Treat each player as an independent character in the story. " +
		"When a player leaves the game, acknowledge their departure in the narrative. "

	singleplayerAddition = "When the player tells you their name, acknowledge with 'So your name is [NAME]'. "

	characterCreation = "When asking for stats (STR, DEX, CON, INT, WIS, CHA), offer to generate random stats. " +
		"After gathering character info, ask if they're ready to begin an adventure " +
		"and offer to create a story or let them choose the type of adventure. " +
		"Automatically apply modifiers to any dice rolls. Respond succinctly like a human DM would."

	playerJoinedInstruction = "IMPORTANT INSTRUCTION: A new player has just joined the game. " +
		"Your next response MUST focus ENTIRELY on welcoming this new player to the game. " +
		"STOP whatever storyline you were following, and describe how a new adventurer appears. " +
		"Ask them directly for their name and details about their character. " +
		"Use phrases like 'As you were [previous activity], a new adventurer approaches...' " +
		"Include emojis like 👋 or ✨ to welcome them. " +
		"Do NOT continue the main story until this new player has been properly introduced. " +
		"This is a hard requirement - the new player must be welcomed immediately."

	playerLeftInstruction = " The most recent message indicates a player has just left the game. " +
		"Acknowledge their departure in the narrative and explain how the story continues without them. " +
		"Perhaps they wandered off, were called away on urgent business, or disappeared mysteriously. " +
		"Use emojis like 👋 or 🚶 to mark their departure."
)

// textModule appends a fixed piece of text when its predicate holds.
type textModule struct {
	name  string
	text  string
	apply func(promptCtx *Context) bool
}

func (m *textModule) Name() string {
	return m.name
}

func (m *textModule) ShouldApply(ctx context.Context, promptCtx *Context) bool {
	if promptCtx == nil || isModuleDisabled(promptCtx, m.name) {
		return false
	}
	return m.apply == nil || m.apply(promptCtx)
}

func (m *textModule) Apply(ctx context.Context, promptCtx *Context, systemPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return systemPrompt, err
	}
	return systemPrompt + m.text, nil
}

// NewBaseModule sets the Dungeon Master persona.
func NewBaseModule() Module {
	return &textModule{name: baseModuleName, text: basePrompt}
}

func NewMultiplayerModule() Module {
	return &textModule{
		name:  multiplayerModuleName,
		text:  multiplayerAddition,
		apply: func(p *Context) bool { return p.Multiplayer },
	}
}

func NewSingleplayerModule() Module {
	return &textModule{
		name:  singleplayerModuleName,
		text:  singleplayerAddition,
		apply: func(p *Context) bool { return !p.Multiplayer },
	}
}

func NewCharacterCreationModule() Module {
	return &textModule{name: characterModuleName, text: characterCreation}
}

func NewPlayerLeftModule() Module {
	return &textModule{
		name:  playerLeftModuleName,
		text:  playerLeftInstruction,
		apply: func(p *Context) bool { return p.Action == session.ActionLeft },
	}
}

// PlayerJoinedModule discards everything composed so far: on a join the only job of the
// next reply is to welcome the newcomer.
type PlayerJoinedModule struct{}

func NewPlayerJoinedModule() *PlayerJoinedModule {
	return &PlayerJoinedModule{}
}

func (m *PlayerJoinedModule) Name() string {
	return playerJoinedModuleName
}

func (m *PlayerJoinedModule) ShouldApply(ctx context.Context, promptCtx *Context) bool {
	return promptCtx != nil && promptCtx.Action == session.ActionJoined && !isModuleDisabled(promptCtx, m.Name())
}

func (m *PlayerJoinedModule) Apply(ctx context.Context, promptCtx *Context, systemPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return systemPrompt, err
	}
	return playerJoinedInstruction, nil
}

func isModuleDisabled(promptCtx *Context, name string) bool {
	return slices.ContainsFunc(promptCtx.Disabled, func(disabled string) bool {
		return strings.EqualFold(strings.TrimSpace(disabled), name)
	})
}
