package gamerequests

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"jan-server/services/dm-api/internal/domain/conversation"
)

// PlayerNumber accepts 2 as well as "2". Anything that is not a positive number,
// such as the browser's "system" marker, decodes to zero.
type PlayerNumber int

func (p *PlayerNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	*p = ParsePlayerNumber(raw)
	return nil
}

// Or returns the number, or fallback when it was not given.
func (p PlayerNumber) Or(fallback int) int {
	if p < 1 {
		return fallback
	}
	return int(p)
}

func ParsePlayerNumber(raw string) PlayerNumber {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(raw), "player"))
	if err != nil || n < 1 {
		return 0
	}
	return PlayerNumber(n)
}

// GameRequest names the game an operation applies to.
type GameRequest struct {
	GameID string `json:"game_id" binding:"omitempty,max=64"`
}

// ChatRequest is one player turn.
type ChatRequest struct {
	Message      string            `json:"message" binding:"required,max=8000"`
	GameID       string            `json:"game_id" binding:"omitempty,max=64"`
	PlayerNumber PlayerNumber      `json:"player_number"`
	PlayerNames  map[string]string `json:"player_names"`
	IsSystem     bool              `json:"is_system"`
}

// SyncChatRequest is a player turn answered in one response. History is only read
// in client storage mode.
type SyncChatRequest struct {
	ChatRequest
	History []conversation.Message `json:"history"`
}

// PlayerRequest adds or removes a player.
type PlayerRequest struct {
	GameID       string       `json:"game_id" binding:"omitempty,max=64"`
	PlayerNumber PlayerNumber `json:"player_number"`
}

// RenamePlayerRequest moves every turn of one player id to another.
type RenamePlayerRequest struct {
	GameID     string `json:"game_id" binding:"omitempty,max=64"`
	FromPlayer string `json:"from_player" binding:"required,max=32"`
	ToPlayer   string `json:"to_player" binding:"required,max=32"`
}

// UpdatesRequest polls for messages added by other players.
type UpdatesRequest struct {
	GameID           string `json:"game_id" binding:"omitempty,max=64"`
	LastMessageCount int    `json:"last_message_count" binding:"min=0"`
}

// StreamRequest opens the SSE reply for the latest turn. GET requests carry the
// fields as query parameters; history is only accepted in a POST body.
type StreamRequest struct {
	GameID       string                 `form:"game_id" json:"game_id" binding:"omitempty,max=64"`
	MessageID    int                    `form:"message_id" json:"message_id"`
	PlayerNumber string                 `form:"player_number" json:"-"`
	ActionType   string                 `form:"action_type" json:"action_type" binding:"omitempty,oneof=joined left"`
	Player       PlayerNumber           `form:"-" json:"player_number"`
	PlayerNames  map[string]string      `form:"-" json:"player_names"`
	History      []conversation.Message `form:"-" json:"history"`
}

// Number resolves the player number from whichever encoding was used.
func (r StreamRequest) Number() int {
	if r.Player > 0 {
		return int(r.Player)
	}
	return ParsePlayerNumber(r.PlayerNumber).Or(1)
}

type StorageModeRequest struct {
	StorageMode string `json:"storage_mode" binding:"required,oneof=server client"`
}

type SetModelRequest struct {
	ModelID string `json:"model_id" binding:"required,max=128"`
}

// BindOptionalJSON binds a JSON body that the browser may omit entirely.
func BindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
