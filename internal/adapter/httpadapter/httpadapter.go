package httpadapter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/jgivc/fetchimages/internal/common"
	"github.com/jgivc/fetchimages/internal/config"
	"github.com/jgivc/fetchimages/internal/entity"
)

const (
	headerContentType        = "Content-Type"
	headerContentLength      = "Content-Length"
	headerContentDisposition = "Content-Disposition"
	headerUserAgent          = "User-Agent"
)

var (
	dispositionFilenameRegexp = regexp.MustCompile(`(?i)filename\s*=\s*"?([^";]+)"?`)
)

type httpAdapter struct {
	cl  *http.Client
	cfg *config.HTTPConfig
	log *slog.Logger
}

func NewHTTPAdapter(cfg *config.HTTPConfig, log *slog.Logger) *httpAdapter {
	cl := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &loggingTransport{base: http.DefaultTransport, log: log},
	}

	return NewHTTPAdapterWithClient(cl, cfg, log)
}

func NewHTTPAdapterWithClient(cl *http.Client, cfg *config.HTTPConfig, log *slog.Logger) *httpAdapter {
	return &httpAdapter{
		cl:  cl,
		cfg: cfg,
		log: log.With(slog.String("item", "HTTPAdapter")),
	}
}

// Probe learns the content type, size and filename hint of rawURL without downloading the body.
// Servers that refuse HEAD are asked with GET and the body is closed unread.
func (a *httpAdapter) Probe(ctx context.Context, rawURL string) (*entity.Metadata, error) {
	if err := checkURL(rawURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout)
	defer cancel()

	resp, err := a.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		a.log.Debug("HEAD is not supported, probe with GET", slog.String("url", rawURL), slog.Int("status", resp.StatusCode))

		resp, err = a.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return nil, err
		}
		resp.Body.Close()
	}

	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%w: probe %s: unexpected status %d", common.ErrNetwork, rawURL, resp.StatusCode)
	}

	md := &entity.Metadata{
		URL:           resp.Request.URL.String(),
		ContentType:   resp.Header.Get(headerContentType),
		ContentLength: contentLength(resp),
		Filename:      dispositionFilename(resp.Header.Get(headerContentDisposition)),
	}
	md.MediaType = mediaType(md.ContentType)

	return md, nil
}

// Fetch downloads rawURL. At most limit bytes are read; a body that reaches limit is rejected.
func (a *httpAdapter) Fetch(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	if err := checkURL(rawURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	resp, err := a.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%w: fetch %s: unexpected status %d", common.ErrNetwork, rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read body of %s: %w", common.ErrNetwork, rawURL, err)
	}

	if int64(len(data)) >= limit {
		return nil, fmt.Errorf("%w: body of %s reaches the size limit of %d bytes", common.ErrGateRejected, rawURL, limit)
	}

	return data, nil
}

func (a *httpAdapter) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot create %s request: %w", common.ErrNetwork, method, err)
	}
	req.Header.Set(headerUserAgent, a.cfg.UserAgent)

	resp, err := a.cl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s request failed: %w", common.ErrNetwork, method, err)
	}

	return resp, nil
}

func checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid url: %w", common.ErrNetwork, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", common.ErrNetwork, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%w: url %q has no host", common.ErrNetwork, rawURL)
	}

	return nil
}

func isSuccess(code int) bool {
	return code >= 200 && code <= 299
}

func contentLength(resp *http.Response) int64 {
	if v := strings.TrimSpace(resp.Header.Get(headerContentLength)); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil && n >= 0 {
			return n
		}

		return -1
	}

	// HEAD responses without the header report 0 or -1 here; only trust it for GET.
	if resp.Request != nil && resp.Request.Method == http.MethodGet && resp.ContentLength >= 0 {
		return resp.ContentLength
	}

	return -1
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}

	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}

	return strings.ToLower(strings.TrimSpace(mt))
}

// dispositionFilename returns the decoded filename parameter of a Content-Disposition header.
// filename* (RFC 2231) is preferred by mime.ParseMediaType; percent escapes are decoded after.
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}

	var name string
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
	} else if m := dispositionFilenameRegexp.FindStringSubmatch(header); m != nil {
		name = strings.TrimSpace(m[1])
	}

	if strings.Contains(name, "%") {
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
	}

	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || strings.HasSuffix(name, "/") {
		return ""
	}

	return path.Base(name)
}
