package httpclients

import (
	"context"
	"time"

	"jan-server/services/dm-api/internal/infrastructure/logger"
	"jan-server/services/dm-api/internal/utils/platformerrors"

	"resty.dev/v3"
)

type httpClientStartsAt struct{}

const requestIDHeader = "X-Request-Id"

// NewClient returns a resty client that forwards the request id and logs every exchange at debug level.
func NewClient(clientName string, timeout time.Duration) *resty.Client {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.SetRetryCount(0)
	client.AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
		ctx := context.WithValue(r.Context(), httpClientStartsAt{}, time.Now())
		if requestID := platformerrors.RequestIDFromContext(ctx); requestID != "" {
			r.SetHeader(requestIDHeader, requestID)
		}
		r.SetContext(ctx)
		return nil
	})
	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		log := logger.GetLogger()
		startTime, _ := r.Request.Context().Value(httpClientStartsAt{}).(time.Time)

		event := log.Debug().
			Str("request_id", platformerrors.RequestIDFromContext(r.Request.Context())).
			Str("client", clientName).
			Int("status", r.StatusCode()).
			Bool("streaming", r.Request.DoNotParseResponse).
			Dur("latency", time.Since(startTime))
		if raw := r.Request.RawRequest; raw != nil {
			event = event.Str("method", raw.Method).Str("path", raw.URL.Path)
		}
		event.Msg("HTTP client request")
		return nil
	})
	return client
}
