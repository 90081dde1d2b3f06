package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/dm-api/internal/utils/platformerrors"
)

type fakeStore struct {
	mu      sync.Mutex
	data    map[string][]Message
	saves   int
	saveErr error
	cutoff  time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]Message)}
}

func (f *fakeStore) Load(_ context.Context, key Key) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message{}, f.data[key.String()]...), nil
}

func (f *fakeStore) Save(_ context.Context, key Key, messages []Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.data[key.String()] = append([]Message{}, messages...)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key.String())
	return nil
}

func (f *fakeStore) Purge(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return 2, nil
}

func newTestService() (*ConversationService, *fakeStore) {
	store := newFakeStore()
	return NewConversationService(store, zerolog.Nop()), store
}

func TestNewGameSeedsWelcome(t *testing.T) {
	svc, store := newTestService()

	key, err := svc.NewGame(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", key.UserID)
	assert.Len(t, key.GameID, 26)
	assert.NoError(t, key.Validate())

	stored := store.data[key.String()]
	require.Len(t, stored, 1)
	assert.Equal(t, WelcomeMessage, stored[0].Content)
	assert.Equal(t, RoleAssistant, stored[0].Role)
}

func TestHistoryCreatesWelcomeOnce(t *testing.T) {
	svc, store := newTestService()
	key := NewKey("u", "")
	assert.Equal(t, DefaultGameID, key.GameID)

	first, err := svc.History(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.History(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, store.saves, "an existing history is not rewritten")
}

func TestAppendUserMessage(t *testing.T) {
	svc, store := newTestService()
	key := NewKey("u", "g")

	position, err := svc.AppendUserMessage(context.Background(), key, 2, "  I open the door ")
	require.NoError(t, err)
	assert.Equal(t, 2, position, "welcome is prepended to an empty game")

	stored := store.data[key.String()]
	require.Len(t, stored, 2)
	assert.Equal(t, "I open the door", stored[1].Content)
	assert.Equal(t, "player2", stored[1].Player)

	_, err = svc.AppendUserMessage(context.Background(), key, 1, "   ")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestAppendIsSerializedPerKey(t *testing.T) {
	svc, store := newTestService()
	key := NewKey("u", "g")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = svc.Append(context.Background(), key, NewAssistantMessage(fmt.Sprintf("line %d", i)))
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.data[key.String()], 20)
}

func TestPlayerRosterChanges(t *testing.T) {
	svc, store := newTestService()
	key := NewKey("u", "g")
	ctx := context.Background()

	require.NoError(t, svc.AddPlayer(ctx, key, 2))
	require.NoError(t, svc.RemovePlayer(ctx, key, 2))
	assert.True(t, platformerrors.IsErrorType(svc.RemovePlayer(ctx, key, 0), platformerrors.ErrorTypeValidation))
	assert.True(t, platformerrors.IsErrorType(svc.AddPlayer(ctx, key, -1), platformerrors.ErrorTypeValidation))

	stored := store.data[key.String()]
	require.Len(t, stored, 2)
	assert.True(t, stored[0].IsSystem)
	assert.Equal(t, "NEW PLAYER JOINING: Player 2 has just joined the game and needs to be welcomed.", stored[0].Content)
	assert.Equal(t, "Player 2 has left the game.", stored[1].Content)
}

func TestRenamePlayer(t *testing.T) {
	svc, store := newTestService()
	key := NewKey("u", "g")
	ctx := context.Background()
	require.NoError(t, svc.Append(ctx, key,
		NewUserMessage(2, "hi"),
		NewAssistantMessage("hello"),
		NewUserMessage(2, "again"),
		NewUserMessage(1, "me too"),
	))

	changed, err := svc.RenamePlayer(ctx, key, "player2", "player3")
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	stored := store.data[key.String()]
	assert.Equal(t, "player3", stored[0].Player)
	assert.Equal(t, "player1", stored[3].Player)

	saves := store.saves
	changed, err = svc.RenamePlayer(ctx, key, "player9", "player4")
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Equal(t, saves, store.saves, "nothing to rename means nothing written")

	_, err = svc.RenamePlayer(ctx, key, "", "player4")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestUpdates(t *testing.T) {
	svc, _ := newTestService()
	key := NewKey("u", "g")
	ctx := context.Background()
	require.NoError(t, svc.Append(ctx, key, NewWelcomeMessage(), NewUserMessage(1, "a"), NewAssistantMessage("b")))

	updates, err := svc.Updates(ctx, key, 1)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "a", updates[0].Content)

	updates, err = svc.Updates(ctx, key, 3)
	require.NoError(t, err)
	assert.Empty(t, updates)

	updates, err = svc.Updates(ctx, key, -5)
	require.NoError(t, err)
	assert.Len(t, updates, 3)
}

func TestClearAndPurge(t *testing.T) {
	svc, store := newTestService()
	key := NewKey("u", "g")
	ctx := context.Background()
	require.NoError(t, svc.Append(ctx, key, NewWelcomeMessage()))

	require.NoError(t, svc.Clear(ctx, key))
	assert.NotContains(t, store.data, key.String())

	removed, err := svc.PurgeStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.WithinDuration(t, time.Now().Add(-time.Hour), store.cutoff, time.Minute)
}

func TestInvalidKeysAreRejected(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Load(context.Background(), NewKey("../etc", "g"))
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	err = svc.Append(context.Background(), NewKey("u", "a/b"), NewWelcomeMessage())
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestStoreFailureIsWrapped(t *testing.T) {
	svc, store := newTestService()
	store.saveErr = errors.New("disk full")

	err := svc.Append(context.Background(), NewKey("u", "g"), NewWelcomeMessage())
	require.Error(t, err)
	var pe *platformerrors.PlatformError
	assert.ErrorAs(t, err, &pe)
}

func TestAppendNotice(t *testing.T) {
	svc, store := newTestService()
	key := NewKey("u", "g")
	require.NoError(t, svc.Append(context.Background(), key, NewWelcomeMessage()))

	position, err := svc.AppendNotice(context.Background(), key, "A new player (Player 2) has joined the game.")
	require.NoError(t, err)
	assert.Equal(t, 2, position)
	assert.True(t, store.data[key.String()][1].IsNotice())

	_, err = svc.AppendNotice(context.Background(), key, " ")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}
