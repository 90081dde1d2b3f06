package session

import (
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const DefaultRosterTTL = 24 * time.Hour

// Roster remembers the player names a client last reported for a game, so a
// stream opened without them (EventSource cannot send a body) still labels turns.
type Roster struct {
	mu    sync.Mutex // serializes read-merge-write in Remember
	names *cache.Cache
}

func NewRoster(ttl time.Duration) *Roster {
	if ttl <= 0 {
		ttl = DefaultRosterTTL
	}
	return &Roster{names: cache.New(ttl, ttl/2)}
}

// Remember merges names over what is already known for the game.
func (r *Roster) Remember(userID, gameID string, names map[int]string) {
	if len(names) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := rosterKey(userID, gameID)
	merged := r.Names(userID, gameID)
	for n, name := range names {
		if name = strings.TrimSpace(name); n > 0 && name != "" {
			merged[n] = name
		}
	}
	r.names.SetDefault(key, merged)
}

// Names returns a copy of the remembered names, never nil.
func (r *Roster) Names(userID, gameID string) map[int]string {
	out := make(map[int]string)
	if val, ok := r.names.Get(rosterKey(userID, gameID)); ok {
		maps.Copy(out, val.(map[int]string))
	}
	return out
}

func (r *Roster) Forget(userID, gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names.Delete(rosterKey(userID, gameID))
}

// ParsePlayerNames converts the browser's {"1": "Finn"} map, skipping bad keys.
func ParsePlayerNames(raw map[string]string) map[int]string {
	out := make(map[int]string, len(raw))
	for k, name := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(k, "player")))
		if err != nil || n < 1 {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			out[n] = name
		}
	}
	return out
}

func rosterKey(userID, gameID string) string {
	return userID + "/" + gameID
}
