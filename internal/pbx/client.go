package pbx

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
)

// client is the shared authenticated HTTP client both adapters use. It
// owns bearer-token injection and the uniform error wrapping: callers of
// getJSON/postJSON only ever see *pbx.Error.
type client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
}

func newClient(cfg models.PBXConnectionConfig, timeout time.Duration) (*client, error) {
	raw := strings.TrimRight(cfg.ServerURL, "/")
	if cfg.Port > 0 {
		raw = raw + ":" + strconv.Itoa(cfg.Port)
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, Errf(CodeUnreachable, "invalid server URL %q", cfg.ServerURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &client{
		base:   base,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: timeout, Transport: transport},
	}, nil
}

func (c *client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, query), nil)
	if err != nil {
		return &Error{Code: CodeVendor, Message: "building request", Cause: err}
	}
	return c.do(req, path, out)
}

func (c *client) postJSON(ctx context.Context, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Code: CodeVendor, Message: "encoding request body", Cause: err}
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path, nil), rdr)
	if err != nil {
		return &Error{Code: CodeVendor, Message: "building request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *client) do(req *http.Request, path string, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err, fmt.Sprintf("calling %s", path))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return classifyStatus(resp.StatusCode, fmt.Sprintf("calling %s", path))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Code: CodeVendor, Message: fmt.Sprintf("decoding %s response", path), Cause: err}
	}
	return nil
}

// timeRangeQuery encodes an optional start/end window the way both vendor
// APIs expect (RFC3339 query parameters; zero times are omitted).
func timeRangeQuery(from, to time.Time) url.Values {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("startTime", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		q.Set("endTime", to.UTC().Format(time.RFC3339))
	}
	return q
}
