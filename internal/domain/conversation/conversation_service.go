package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/utils/platformerrors"
)

// ConversationService owns the append-only game transcripts.
// Mutations for one key are serialized inside the process.
type ConversationService struct {
	store Store
	locks *keyedMutex
	log   zerolog.Logger
}

func NewConversationService(store Store, log zerolog.Logger) *ConversationService {
	return &ConversationService{
		store: store,
		locks: newKeyedMutex(),
		log:   log.With().Str("component", "conversation-service").Logger(),
	}
}

// NewGame starts a fresh game for the user, seeded with the welcome message.
func (s *ConversationService) NewGame(ctx context.Context, userID string) (Key, error) {
	key := NewKey(userID, strings.ToLower(ulid.Make().String()))
	if err := s.validate(ctx, key); err != nil {
		return Key{}, err
	}
	if err := s.store.Save(ctx, key, []Message{NewWelcomeMessage()}); err != nil {
		return Key{}, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create game")
	}
	s.log.Info().Str("user_id", userID).Str("game_id", key.GameID).Msg("new game created")
	return key, nil
}

// Load returns the stored transcript without side effects.
func (s *ConversationService) Load(ctx context.Context, key Key) ([]Message, error) {
	if err := s.validate(ctx, key); err != nil {
		return nil, err
	}
	messages, err := s.store.Load(ctx, key)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load conversation")
	}
	return messages, nil
}

// History returns the transcript, creating the welcome message for an empty game.
func (s *ConversationService) History(ctx context.Context, key Key) ([]Message, error) {
	var history []Message
	err := s.mutate(ctx, key, func(messages []Message) ([]Message, bool) {
		if len(messages) == 0 {
			history = []Message{NewWelcomeMessage()}
			return history, true
		}
		history = messages
		return messages, false
	})
	return history, err
}

// AppendUserMessage records a player's turn and returns its 1-based position.
func (s *ConversationService) AppendUserMessage(ctx context.Context, key Key, playerNumber int, content string) (int, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "message must not be empty", nil, "empty-message")
	}
	var position int
	err := s.mutate(ctx, key, func(messages []Message) ([]Message, bool) {
		if len(messages) == 0 {
			messages = append(messages, NewWelcomeMessage())
		}
		messages = append(messages, NewUserMessage(playerNumber, content))
		position = len(messages)
		return messages, true
	})
	return position, err
}

// AppendNotice records a client raised system notice and returns its 1-based position.
func (s *ConversationService) AppendNotice(ctx context.Context, key Key, content string) (int, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "notice must not be empty", nil, "empty-notice")
	}
	var position int
	err := s.mutate(ctx, key, func(messages []Message) ([]Message, bool) {
		messages = append(messages, NewSystemNotice(content))
		position = len(messages)
		return messages, true
	})
	return position, err
}

// Append adds already built messages to the end of the transcript.
func (s *ConversationService) Append(ctx context.Context, key Key, appended ...Message) error {
	if len(appended) == 0 {
		return nil
	}
	return s.mutate(ctx, key, func(messages []Message) ([]Message, bool) {
		return append(messages, appended...), true
	})
}

func (s *ConversationService) AddPlayer(ctx context.Context, key Key, playerNumber int) error {
	if playerNumber < 1 {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "player number must be positive", nil, "invalid-player-number")
	}
	return s.Append(ctx, key, NewPlayerJoinedNotice(playerNumber))
}

func (s *ConversationService) RemovePlayer(ctx context.Context, key Key, playerNumber int) error {
	if playerNumber < 1 {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "player number required", nil, "missing-player-number")
	}
	return s.Append(ctx, key, NewPlayerLeftNotice(playerNumber))
}

// RenamePlayer rewrites the player id on every existing entry.
func (s *ConversationService) RenamePlayer(ctx context.Context, key Key, from, to string) (int, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "both player ids are required", nil, "invalid-rename")
	}
	var changed int
	err := s.mutate(ctx, key, func(messages []Message) ([]Message, bool) {
		var renamed []Message
		renamed, changed = RenamePlayer(messages, from, to)
		return renamed, changed > 0
	})
	return changed, err
}

// Updates returns the entries appended after the first since messages.
func (s *ConversationService) Updates(ctx context.Context, key Key, since int) ([]Message, error) {
	messages, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if since < 0 {
		since = 0
	}
	if since >= len(messages) {
		return []Message{}, nil
	}
	return messages[since:], nil
}

func (s *ConversationService) Clear(ctx context.Context, key Key) error {
	if err := s.validate(ctx, key); err != nil {
		return err
	}
	unlock := s.locks.lock(key.String())
	defer unlock()
	if err := s.store.Delete(ctx, key); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to clear conversation")
	}
	return nil
}

// PurgeStale drops transcripts untouched for longer than retention.
func (s *ConversationService) PurgeStale(ctx context.Context, retention time.Duration) (int, error) {
	removed, err := s.store.Purge(ctx, time.Now().Add(-retention))
	if err != nil {
		return removed, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to purge conversations")
	}
	return removed, nil
}

func (s *ConversationService) mutate(ctx context.Context, key Key, fn func([]Message) ([]Message, bool)) error {
	if err := s.validate(ctx, key); err != nil {
		return err
	}
	unlock := s.locks.lock(key.String())
	defer unlock()

	messages, err := s.store.Load(ctx, key)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load conversation")
	}
	updated, dirty := fn(messages)
	if !dirty {
		return nil
	}
	if err := s.store.Save(ctx, key, updated); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to save conversation")
	}
	return nil
}

func (s *ConversationService) validate(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, err.Error(), nil, "invalid-conversation-key")
	}
	return nil
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
