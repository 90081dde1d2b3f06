package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	MessageTypeImage = "image"
	// MessageTypeImageError marks the inline notice shown in place of an image that failed.
	MessageTypeImageError = "image_error"

	// WelcomeMessage opens every new game.
	WelcomeMessage = "Hello adventurer! Let's begin your quest. What is your name?"

	defaultPlayer = "player1"
)

// Message is one entry of a game transcript.
type Message struct {
	Role        Role   `json:"role"`
	Content     string `json:"content"`
	Player      string `json:"player,omitempty"`
	Invisible   bool   `json:"invisible,omitempty"`
	IsSystem    bool   `json:"is_system,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// IsImage reports whether the message is a display-only generated image.
func (m Message) IsImage() bool {
	return m.MessageType == MessageTypeImage
}

// IsDisplayOnly reports whether the message exists for the UI only and is never sent upstream.
func (m Message) IsDisplayOnly() bool {
	return m.MessageType == MessageTypeImage || m.MessageType == MessageTypeImageError
}

// IsNotice reports whether the message is a structural notification (player joined/left).
func (m Message) IsNotice() bool {
	return m.IsSystem || m.Role == RoleSystem
}

// PlayerOrDefault returns the player id, treating an unlabelled user turn as player one.
func (m Message) PlayerOrDefault() string {
	if strings.TrimSpace(m.Player) == "" {
		return defaultPlayer
	}
	return m.Player
}

func now() int64 {
	return time.Now().Unix()
}

// PlayerID formats the identifier stored on user turns for a player number.
func PlayerID(number int) string {
	return "player" + strconv.Itoa(number)
}

// PlayerNumber parses "player3" into 3.
func PlayerNumber(playerID string) (int, bool) {
	raw, found := strings.CutPrefix(strings.TrimSpace(playerID), "player")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func NewWelcomeMessage() Message {
	return Message{Role: RoleAssistant, Content: WelcomeMessage, CreatedAt: now()}
}

func NewUserMessage(playerNumber int, content string) Message {
	if playerNumber < 1 {
		playerNumber = 1
	}
	return Message{Role: RoleUser, Content: content, Player: PlayerID(playerNumber), CreatedAt: now()}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, CreatedAt: now()}
}

func NewImageMessage(prompt, imageURL string) Message {
	return Message{
		Role:        RoleAssistant,
		MessageType: MessageTypeImage,
		ImageURL:    imageURL,
		Prompt:      prompt,
		CreatedAt:   now(),
	}
}

// NewImageFailureNotice is the visible stand-in for an image that could not be generated.
func NewImageFailureNotice(prompt, reason string) Message {
	content := "The image could not be generated."
	if reason = strings.TrimSpace(reason); reason != "" {
		content = fmt.Sprintf("The image could not be generated: %s", reason)
	}
	return Message{
		Role:        RoleAssistant,
		Content:     content,
		MessageType: MessageTypeImageError,
		Prompt:      prompt,
		CreatedAt:   now(),
	}
}

// NewSystemNotice is a structural notice that is shown to the model as a system message.
func NewSystemNotice(content string) Message {
	return Message{Role: RoleSystem, Content: content, IsSystem: true, CreatedAt: now()}
}

// NewPlayerJoinedNotice is sent to the model so the DM welcomes the newcomer.
func NewPlayerJoinedNotice(playerNumber int) Message {
	return NewSystemNotice(fmt.Sprintf("NEW PLAYER JOINING: Player %d has just joined the game and needs to be welcomed.", playerNumber))
}

func NewPlayerLeftNotice(playerNumber int) Message {
	return NewSystemNotice(fmt.Sprintf("Player %d has left the game.", playerNumber))
}

var (
	multiplayerNamePattern  = regexp.MustCompile(`Player (\d+) is now named ([A-Za-z][\w'-]*)`)
	singleplayerNamePattern = regexp.MustCompile(`So your name is ([A-Za-z][\w'-]*)`)
)

// PlayerNames collects the names the DM acknowledged in its replies.
// Later acknowledgements win over earlier ones.
func PlayerNames(messages []Message) map[int]string {
	names := make(map[int]string)
	for _, msg := range messages {
		if msg.Role != RoleAssistant || msg.IsImage() {
			continue
		}
		for _, match := range multiplayerNamePattern.FindAllStringSubmatch(msg.Content, -1) {
			if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
				names[n] = match[2]
			}
		}
		if match := singleplayerNamePattern.FindStringSubmatch(msg.Content); match != nil {
			names[1] = match[1]
		}
	}
	return names
}

// DistinctPlayers counts the distinct authors among user turns.
func DistinctPlayers(messages []Message) int {
	seen := make(map[string]struct{})
	for _, msg := range messages {
		if msg.Role != RoleUser {
			continue
		}
		seen[msg.PlayerOrDefault()] = struct{}{}
	}
	return len(seen)
}

// RenamePlayer returns a copy of messages with every occurrence of the player id
// from replaced by to, together with the number of rewritten entries.
func RenamePlayer(messages []Message, from, to string) ([]Message, int) {
	out := make([]Message, len(messages))
	copy(out, messages)
	changed := 0
	for i := range out {
		if out[i].Player == from {
			out[i].Player = to
			changed++
		}
	}
	return out, changed
}

// Visible drops the entries hidden from transcript listings.
func Visible(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Invisible {
			continue
		}
		out = append(out, msg)
	}
	return out
}
