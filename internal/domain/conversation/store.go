package conversation

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// DefaultGameID is used when the client does not name a game.
const DefaultGameID = "default"

var safeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Key identifies one game of one user.
type Key struct {
	UserID string
	GameID string
}

func NewKey(userID, gameID string) Key {
	if gameID == "" {
		gameID = DefaultGameID
	}
	return Key{UserID: userID, GameID: gameID}
}

func (k Key) String() string {
	return k.UserID + "/" + k.GameID
}

// Validate rejects identifiers that are unsafe to use as file names or cache keys.
func (k Key) Validate() error {
	if !safeIDPattern.MatchString(k.UserID) {
		return fmt.Errorf("invalid user id %q", k.UserID)
	}
	if !safeIDPattern.MatchString(k.GameID) {
		return fmt.Errorf("invalid game id %q", k.GameID)
	}
	return nil
}

// Store persists whole transcripts. Load of an unknown key returns an empty slice.
type Store interface {
	Load(ctx context.Context, key Key) ([]Message, error)
	Save(ctx context.Context, key Key, messages []Message) error
	Delete(ctx context.Context, key Key) error
	// Purge removes transcripts not written since the cutoff and reports how many went.
	Purge(ctx context.Context, cutoff time.Time) (int, error)
}
