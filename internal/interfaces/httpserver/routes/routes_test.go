package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/config"
	"jan-server/services/dm-api/internal/domain/completion"
	"jan-server/services/dm-api/internal/domain/contextwindow"
	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/domain/directive"
	"jan-server/services/dm-api/internal/domain/model"
	"jan-server/services/dm-api/internal/domain/prompt"
	"jan-server/services/dm-api/internal/domain/relay"
	"jan-server/services/dm-api/internal/domain/session"
	"jan-server/services/dm-api/internal/infrastructure/store/memstore"
	"jan-server/services/dm-api/internal/interfaces/httpserver/handlers/gamehandler"
	"jan-server/services/dm-api/internal/interfaces/httpserver/handlers/modelhandler"
	"jan-server/services/dm-api/internal/interfaces/httpserver/handlers/streamhandler"
	"jan-server/services/dm-api/internal/interfaces/httpserver/middlewares"
	"jan-server/services/dm-api/internal/interfaces/httpserver/routes/game"
	"jan-server/services/dm-api/internal/interfaces/httpserver/routes/settings"
	"jan-server/services/dm-api/internal/interfaces/httpserver/routes/stream"
)

type scriptedClient struct {
	reply  string
	bodies []string
}

func (s *scriptedClient) StreamCompletion(_ context.Context, body []byte, onDelta func(string) error) (string, error) {
	s.bodies = append(s.bodies, string(body))
	for _, word := range strings.SplitAfter(s.reply, " ") {
		if err := onDelta(word); err != nil {
			return "", err
		}
	}
	return s.reply, nil
}

func (s *scriptedClient) CreateCompletion(_ context.Context, body []byte) (string, error) {
	s.bodies = append(s.bodies, string(body))
	return s.reply, nil
}

type testServer struct {
	engine  *gin.Engine
	client  *scriptedClient
	cookies []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := &scriptedClient{reply: "The innkeeper nods at you."}
	catalog := model.NewDefaultCatalog()
	conversations := conversation.NewConversationService(memstore.New(0), zerolog.Nop())
	roster := session.NewRoster(time.Hour)
	builder := completion.NewBuilder(
		catalog,
		prompt.NewProcessor(zerolog.Nop()),
		contextwindow.NewTruncator(contextwindow.DefaultLimits(), zerolog.Nop()),
		completion.Options{MaxContextTokens: 45000, MinRecentMessages: 6},
		zerolog.Nop(),
	)
	extractor := directive.NewExtractor(directive.Options{StylePrefix: "fantasy art style", MaxPrompts: 3})
	relays := relay.NewRelays(builder, client, nil, extractor, conversations, zerolog.Nop())

	gameHandler := gamehandler.NewGameHandler(conversations, roster, zerolog.Nop())
	streamHandler := streamhandler.NewStreamHandler(relays, conversations, roster, zerolog.Nop())
	modelHandler := modelhandler.NewModelHandler(catalog, zerolog.Nop())
	dmRoute := NewDMRoute(
		game.NewGameRoute(gameHandler),
		stream.NewStreamRoute(streamHandler, gameHandler),
		settings.NewSettingsRoute(modelHandler, &config.Config{}),
	)

	engine := gin.New()
	engine.Use(middlewares.RequestID(), middlewares.SessionMiddleware(false))
	dmRoute.RegisterRouter(engine)
	return &testServer{engine: engine, client: client}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		s.setCookie(c)
	}
	return w
}

func (s *testServer) setCookie(cookie *http.Cookie) {
	for i, c := range s.cookies {
		if c.Name == cookie.Name {
			s.cookies[i] = cookie
			return
		}
	}
	s.cookies = append(s.cookies, cookie)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz", "/version"} {
		if w := s.do(t, http.MethodGet, path, nil); w.Code != http.StatusOK {
			t.Fatalf("%s returned %d", path, w.Code)
		}
	}
}

func TestGameFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/new_game", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("new_game returned %d: %s", w.Code, w.Body.String())
	}
	created := decode[struct {
		Success bool   `json:"success"`
		GameID  string `json:"game_id"`
	}](t, w)
	if !created.Success || len(created.GameID) != 26 {
		t.Fatalf("unexpected new game response %+v", created)
	}
	if len(s.cookies) == 0 || s.cookies[0].Name != middlewares.UserIDCookie {
		t.Fatalf("expected the user id cookie to be issued")
	}

	w = s.do(t, http.MethodPost, "/chat", map[string]any{
		"message":       "I order an ale",
		"game_id":       created.GameID,
		"player_number": "1",
		"player_names":  map[string]string{"1": "Finn"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("chat returned %d: %s", w.Code, w.Body.String())
	}
	chat := decode[struct {
		MessageID int  `json:"message_id"`
		Streaming bool `json:"streaming"`
	}](t, w)
	if chat.MessageID != 2 || !chat.Streaming {
		t.Fatalf("unexpected chat response %+v", chat)
	}

	w = s.do(t, http.MethodGet, "/stream?t=1&game_id="+created.GameID+"&message_id=2&player_number=1", nil)
	body := w.Body.String()
	if !strings.Contains(body, "innkeeper") || !strings.HasSuffix(body, "event: done\ndata: [DONE]\n\n") {
		t.Fatalf("unexpected stream %q", body)
	}
	if len(s.client.bodies) != 1 || !strings.Contains(s.client.bodies[0], "I order an ale") {
		t.Fatalf("the recorded turn must reach the upstream request")
	}

	w = s.do(t, http.MethodPost, "/load_history", map[string]any{"game_id": created.GameID})
	history := decode[struct {
		History []conversation.Message `json:"history"`
	}](t, w)
	if len(history.History) != 3 || history.History[2].Content != "The innkeeper nods at you." {
		t.Fatalf("unexpected history %+v", history.History)
	}

	w = s.do(t, http.MethodPost, "/get_updates", map[string]any{"game_id": created.GameID, "last_message_count": 2})
	updates := decode[struct {
		HasUpdates   bool                   `json:"has_updates"`
		Updates      []conversation.Message `json:"updates"`
		MessageCount int                    `json:"message_count"`
	}](t, w)
	if !updates.HasUpdates || len(updates.Updates) != 1 || updates.MessageCount != 3 {
		t.Fatalf("unexpected updates %+v", updates)
	}

	w = s.do(t, http.MethodPost, "/clear", map[string]any{"game_id": created.GameID})
	if w.Code != http.StatusOK {
		t.Fatalf("clear returned %d", w.Code)
	}
	w = s.do(t, http.MethodPost, "/get_updates", map[string]any{"game_id": created.GameID, "last_message_count": 0})
	if decode[struct {
		HasUpdates bool `json:"has_updates"`
	}](t, w).HasUpdates {
		t.Fatalf("cleared game must have no updates")
	}
}

func TestRemovePlayerRequiresNumber(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/remove_player", map[string]any{"game_id": "g1"})
	resp := decode[struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}](t, w)
	if resp.Success || resp.Error != "Player number required" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAddPlayerAppendsSystemNotice(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/add_player", map[string]any{"game_id": "g1", "player_number": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("add_player returned %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/get_updates", map[string]any{"game_id": "g1", "last_message_count": 0})
	updates := decode[struct {
		Updates      []conversation.Message `json:"updates"`
		MessageCount int                    `json:"message_count"`
	}](t, w)
	if updates.MessageCount != 1 || len(updates.Updates) != 1 {
		t.Fatalf("expected one notice, got %+v", updates)
	}
	notice := updates.Updates[0]
	if !notice.IsSystem || !strings.Contains(notice.Content, "NEW PLAYER JOINING: Player 2") {
		t.Fatalf("unexpected notice %+v", notice)
	}
}

func TestAddPlayerDefaultsToPlayerTwo(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/add_player", map[string]any{"game_id": "g1"})
	resp := decode[struct {
		Success      bool `json:"success"`
		PlayerNumber int  `json:"player_number"`
	}](t, w)
	if !resp.Success || resp.PlayerNumber != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}

	w = s.do(t, http.MethodPost, "/get_updates", map[string]any{"game_id": "g1", "last_message_count": 0})
	updates := decode[struct {
		Updates []conversation.Message `json:"updates"`
	}](t, w)
	if len(updates.Updates) != 1 || !strings.Contains(updates.Updates[0].Content, "Player 2") {
		t.Fatalf("unexpected updates %+v", updates)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/chat", map[string]any{"message": "", "game_id": "g1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := decode[map[string]any](t, w); resp["code"] != "chat-invalid" {
		t.Fatalf("unexpected error body %v", resp)
	}
}

func TestChatSync(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/chat/sync", map[string]any{"message": "I look around", "game_id": "g1"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat/sync returned %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[map[string]any](t, w); resp["response"] != "The innkeeper nods at you." {
		t.Fatalf("unexpected response %v", resp)
	}
	if !strings.Contains(s.client.bodies[0], `"stream":false`) {
		t.Fatalf("sync chat must disable streaming")
	}
}

func TestClientStorageModeStreamsPostedHistory(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, http.MethodPost, "/set_storage_mode", map[string]any{"storage_mode": "client"}); w.Code != http.StatusOK {
		t.Fatalf("set_storage_mode returned %d", w.Code)
	}

	w := s.do(t, http.MethodPost, "/stream?game_id=g1", map[string]any{
		"history": []map[string]any{
			{"role": "assistant", "content": "Welcome, travellers."},
			{"role": "user", "content": "We enter the crypt", "player": "player1"},
		},
	})
	if !strings.Contains(w.Body.String(), "innkeeper") {
		t.Fatalf("unexpected stream %q", w.Body.String())
	}
	if !strings.Contains(s.client.bodies[0], "We enter the crypt") {
		t.Fatalf("posted history must be sent upstream")
	}

	w = s.do(t, http.MethodPost, "/load_history", map[string]any{"game_id": "g1"})
	history := decode[struct {
		History []conversation.Message `json:"history"`
	}](t, w)
	if len(history.History) != 1 {
		t.Fatalf("client mode must not store the turn, got %d messages", len(history.History))
	}
}

func TestSettings(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(t, http.MethodPost, "/set_storage_mode", map[string]any{"storage_mode": "cloud"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown storage mode, got %d", w.Code)
	}

	w := s.do(t, http.MethodPost, "/set_model", map[string]any{"model_id": "not-a-model"})
	selected := decode[struct {
		ModelID  string `json:"model_id"`
		Fallback bool   `json:"fallback"`
	}](t, w)
	def := model.NewDefaultCatalog().Default().ID
	if !selected.Fallback || selected.ModelID != def {
		t.Fatalf("unexpected set_model response %+v", selected)
	}

	w = s.do(t, http.MethodGet, "/models", nil)
	list := decode[struct {
		Selected string `json:"selected"`
		Default  string `json:"default"`
	}](t, w)
	if list.Selected != def || list.Default != def {
		t.Fatalf("unexpected models response %+v", list)
	}
}
