package responses

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"jan-server/services/dm-api/internal/utils/platformerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(handler gin.HandlerFunc) (*httptest.ResponseRecorder, ErrorResponse) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		c.Request = c.Request.WithContext(platformerrors.WithRequestID(c.Request.Context(), "req-1"))
		handler(c)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	var body ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestHandleErrorMapsPlatformErrors(t *testing.T) {
	w, body := serve(func(c *gin.Context) {
		err := platformerrors.NewError(c.Request.Context(), platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "message must not be empty", nil, "empty-message")
		HandleError(c, err, "Failed to add message")
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if body.Code != "empty-message" || body.Error != "message must not be empty" || body.RequestID != "req-1" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestHandleErrorHidesInternalDetails(t *testing.T) {
	w, body := serve(func(c *gin.Context) {
		err := platformerrors.NewError(c.Request.Context(), platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "disk quota exceeded on /var", nil, "save-failed")
		HandleError(c, err, "Failed to save game")
	})

	if w.Code != http.StatusInternalServerError || body.Error != "Failed to save game" {
		t.Fatalf("unexpected response %d %+v", w.Code, body)
	}
}

func TestHandleErrorPlainError(t *testing.T) {
	w, body := serve(func(c *gin.Context) {
		HandleError(c, errors.New("boom"), "Something failed")
	})

	if w.Code != http.StatusInternalServerError || body.Code != "unclassified" || body.RequestID != "req-1" {
		t.Fatalf("unexpected response %d %+v", w.Code, body)
	}
}

func TestHandleNewError(t *testing.T) {
	w, body := serve(func(c *gin.Context) {
		HandleNewError(c, platformerrors.ErrorTypeNotFound, "game not found", "game-missing")
	})

	if w.Code != http.StatusNotFound || body.Code != "game-missing" {
		t.Fatalf("unexpected response %d %+v", w.Code, body)
	}
}
