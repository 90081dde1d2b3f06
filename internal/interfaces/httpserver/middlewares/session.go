package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jan-server/services/dm-api/internal/domain/session"
)

// Session cookies.
const (
	UserIDCookie      = "user_id"
	ModelIDCookie     = "model_id"
	StorageModeCookie = "storage_mode"

	CookieMaxAge = int(365 * 24 * time.Hour / time.Second)

	sessionKey = "dm_session"
)

// SessionMiddleware issues the anonymous user id cookie and exposes the cookie
// backed session to handlers.
func SessionMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := c.Cookie(UserIDCookie)
		if err != nil || uuid.Validate(userID) != nil {
			userID = uuid.NewString()
			SetCookie(c, UserIDCookie, userID, secure)
		}

		modelID, _ := c.Cookie(ModelIDCookie)
		storageMode, _ := c.Cookie(StorageModeCookie)

		c.Set(sessionKey, session.Context{
			UserID:       userID,
			ModelID:      modelID,
			StorageMode:  session.ParseStorageMode(storageMode),
			PlayerNumber: 1,
			RequestID:    RequestIDFromContext(c),
		})
		c.Next()
	}
}

// SessionFromContext returns the session built by SessionMiddleware.
func SessionFromContext(c *gin.Context) (session.Context, bool) {
	val, ok := c.Get(sessionKey)
	if !ok {
		return session.Context{}, false
	}
	sess, ok := val.(session.Context)
	return sess, ok
}

// SetCookie writes a one year, http-only, path-wide cookie.
func SetCookie(c *gin.Context, name, value string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, CookieMaxAge, "/", "", secure, true)
}

// GameSession returns the caller's session bound to gameID and tags the request
// with the game for logging and tracing.
func GameSession(c *gin.Context, gameID string) (session.Context, bool) {
	sess, ok := SessionFromContext(c)
	if !ok {
		return sess, false
	}
	// an empty id selects the default game
	sess = sess.WithGame(sess.WithGame(gameID).Key().GameID)
	c.Set(GameIDKey, sess.GameID)
	return sess, true
}
