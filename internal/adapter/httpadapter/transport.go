package httpadapter

import (
	"log/slog"
	"net/http"
)

type loggingTransport struct {
	base http.RoundTripper
	log  *slog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.log.DebugContext(req.Context(), "http request", slog.String("method", req.Method), slog.String("url", req.URL.String()))

	return t.base.RoundTrip(req)
}
