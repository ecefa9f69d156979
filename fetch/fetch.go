// Package fetch performs HTTP GET requests on behalf of the program. Every
// request carries the same browser User-Agent: Google Fonts decides which font
// format to serve based on it.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"fontdl/config"
)

// StatusError is returned when server responds with non 2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server responded with %s for %s", e.Status, e.URL)
}

// Transport sets User-Agent on every request going through it.
type Transport struct {
	Base      http.RoundTripper
	UserAgent string
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	// do not modify caller's request
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.UserAgent)
	return base.RoundTrip(r)
}

// Client fetches stylesheets and font files.
type Client struct {
	http *http.Client
	log  *zap.Logger
}

// NewClient creates client according to download configuration. Zero timeout
// leaves limits to the transport defaults.
func NewClient(cfg *config.DownloadConfig, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if proxy := strings.TrimSpace(cfg.Proxy.Value()); len(proxy) > 0 {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("bad proxy url: %w", err)
		}
		base.Proxy = http.ProxyURL(u)
	}

	return &Client{
		http: &http.Client{
			Transport: &Transport{Base: base, UserAgent: cfg.UserAgent},
			Timeout:   cfg.Timeout,
		},
		log: log.Named("fetch"),
	}, nil
}

// get issues GET request, response body must be closed by caller.
func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	c.log.Debug("GET", zap.String("url", target), zap.String("status", resp.Status), zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

// Text fetches textual resource and returns it decoded to UTF-8. Response
// charset is used unless forced encoding is provided.
func (c *Client) Text(ctx context.Context, target string, enc encoding.Encoding) (string, error) {
	resp, err := c.get(ctx, target)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if !isText(ct) {
		return "", fmt.Errorf("unexpected content type '%s' for %s", ct, target)
	}

	var r io.Reader
	switch label := charsetLabel(ct); {
	case enc != nil:
		r = enc.NewDecoder().Reader(resp.Body)
	case len(label) > 0:
		if r, err = charset.NewReaderLabel(label, resp.Body); err != nil {
			return "", fmt.Errorf("unable to decode %s: %w", target, err)
		}
	default:
		// CSS without declared charset is UTF-8, never guess
		r = unicode.UTF8BOM.NewDecoder().Reader(resp.Body)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("unable to read %s: %w", target, err)
	}
	return string(data), nil
}

// Download copies raw response body to w.
func (c *Client) Download(ctx context.Context, target string, w io.Writer) (int64, error) {
	resp, err := c.get(ctx, target)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("unable to read %s: %w", target, err)
	}
	return n, nil
}

// charsetLabel returns charset parameter of content type, if any.
func charsetLabel(ct string) string {
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}

// isText accepts absent content type, any text/* and css served with non
// text media type.
func isText(ct string) bool {
	if len(ct) == 0 {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "text/") || strings.HasSuffix(mt, "/css")
}
