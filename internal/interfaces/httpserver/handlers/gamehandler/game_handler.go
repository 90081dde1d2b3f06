package gamehandler

import (
	"context"

	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/domain/session"
	"jan-server/services/dm-api/internal/infrastructure/metrics"
)

// GameHandler runs the transcript operations of a session.
type GameHandler struct {
	conversations *conversation.ConversationService
	roster        *session.Roster
	log           zerolog.Logger
}

func NewGameHandler(conversations *conversation.ConversationService, roster *session.Roster, log zerolog.Logger) *GameHandler {
	return &GameHandler{
		conversations: conversations,
		roster:        roster,
		log:           log.With().Str("component", "game-handler").Logger(),
	}
}

func (h *GameHandler) NewGame(ctx context.Context, sess session.Context) (string, error) {
	key, err := h.conversations.NewGame(ctx, sess.UserID)
	if err != nil {
		return "", err
	}
	metrics.RecordGameCreated()
	return key.GameID, nil
}

// History returns the visible transcript, creating the welcome for a new game.
func (h *GameHandler) History(ctx context.Context, sess session.Context) ([]conversation.Message, error) {
	messages, err := h.conversations.History(ctx, sess.Key())
	if err != nil {
		return nil, err
	}
	return conversation.Visible(messages), nil
}

// PostMessage records a turn and returns the position the stream request refers to.
// Names the client reports are remembered for the stream that follows. In client
// storage mode the browser keeps the transcript and nothing is written.
func (h *GameHandler) PostMessage(ctx context.Context, sess session.Context, content string, isSystem bool) (int, error) {
	h.roster.Remember(sess.UserID, sess.GameID, sess.PlayerNames)
	if !sess.ServerStored() {
		return 0, nil
	}
	if isSystem {
		return h.conversations.AppendNotice(ctx, sess.Key(), content)
	}
	return h.conversations.AppendUserMessage(ctx, sess.Key(), sess.PlayerNumber, content)
}

func (h *GameHandler) AddPlayer(ctx context.Context, sess session.Context, playerNumber int) error {
	return h.conversations.AddPlayer(ctx, sess.Key(), playerNumber)
}

func (h *GameHandler) RemovePlayer(ctx context.Context, sess session.Context, playerNumber int) error {
	return h.conversations.RemovePlayer(ctx, sess.Key(), playerNumber)
}

func (h *GameHandler) RenamePlayer(ctx context.Context, sess session.Context, from, to string) (int, error) {
	renamed, err := h.conversations.RenamePlayer(ctx, sess.Key(), from, to)
	if err != nil {
		return 0, err
	}
	h.log.Debug().
		Str("game_id", sess.GameID).
		Str("from", from).
		Str("to", to).
		Int("renamed", renamed).
		Msg("player renamed")
	return renamed, nil
}

// Updates returns the visible messages after the first since entries and the
// count the client should poll from next.
func (h *GameHandler) Updates(ctx context.Context, sess session.Context, since int) ([]conversation.Message, int, error) {
	updates, err := h.conversations.Updates(ctx, sess.Key(), since)
	if err != nil {
		return nil, 0, err
	}
	next := max(since, 0) + len(updates)
	return conversation.Visible(updates), next, nil
}

func (h *GameHandler) Clear(ctx context.Context, sess session.Context) error {
	if err := h.conversations.Clear(ctx, sess.Key()); err != nil {
		return err
	}
	h.roster.Forget(sess.UserID, sess.GameID)
	return nil
}
