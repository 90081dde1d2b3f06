package session

import (
	"maps"
	"strings"

	"jan-server/services/dm-api/internal/domain/conversation"
)

type StorageMode string

const (
	// StorageServer keeps transcripts in the conversation store.
	StorageServer StorageMode = "server"
	// StorageClient means the browser owns the transcript and sends it with each turn.
	StorageClient StorageMode = "client"
)

// ParseStorageMode maps anything unrecognised to StorageServer.
func ParseStorageMode(raw string) StorageMode {
	if StorageMode(strings.ToLower(strings.TrimSpace(raw))) == StorageClient {
		return StorageClient
	}
	return StorageServer
}

// Action is a roster change the DM should react to on this turn.
type Action string

const (
	ActionNone   Action = ""
	ActionJoined Action = "joined"
	ActionLeft   Action = "left"
)

func ParseAction(raw string) Action {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionJoined:
		return ActionJoined
	case ActionLeft:
		return ActionLeft
	default:
		return ActionNone
	}
}

// Context carries everything about the caller that shapes one DM turn.
// It is built per request and passed explicitly; nothing reads it from ambient state.
type Context struct {
	UserID       string
	GameID       string
	ModelID      string
	StorageMode  StorageMode
	PlayerNumber int
	PlayerNames  map[int]string
	Action       Action
	RequestID    string
}

func (c Context) Key() conversation.Key {
	return conversation.NewKey(c.UserID, c.GameID)
}

// ServerStored reports whether the transcript lives server-side.
func (c Context) ServerStored() bool {
	return c.StorageMode != StorageClient
}

// WithGame returns a copy bound to another game.
func (c Context) WithGame(gameID string) Context {
	c.GameID = gameID
	return c
}

func (c Context) WithAction(action Action) Context {
	c.Action = action
	return c
}

// WithPlayerNames returns a copy whose names are merged over the existing ones.
func (c Context) WithPlayerNames(names map[int]string) Context {
	merged := make(map[int]string, len(c.PlayerNames)+len(names))
	maps.Copy(merged, c.PlayerNames)
	for n, name := range names {
		if name = strings.TrimSpace(name); name != "" && n > 0 {
			merged[n] = name
		}
	}
	c.PlayerNames = merged
	return c
}
