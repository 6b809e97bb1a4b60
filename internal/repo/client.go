// Package repo implements the shared repository HTTP client: one struct
// holding the base URL and API key, centralizing every repository call
// and its authentication header.
package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goware/urlx"
	retryable "github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/gdcc/dvuploader-go/internal/dverrors"
)

const userAgent = "dvuploader-go/0.1.0"

// HeaderAPIKey is the authentication header required on every repository
// request.
const HeaderAPIKey = "X-Dataverse-key"

// Client is the shared repository HTTP client used by the orchestrator,
// both upload drivers, and the lock client.
type Client struct {
	baseURL *url.URL
	apiKey  string

	// PlainHTTP is used for object-store PUTs, which must not be silently
	// retried by a generic policy.
	PlainHTTP *http.Client
}

// New creates a repository client for the given base address.
func New(address, apiKey string) (*Client, error) {
	u, err := urlx.ParseWithDefaultScheme(address, "https")
	if err != nil {
		return nil, errors.Wrap(err, "parsing repository address")
	}
	return &Client{
		baseURL:   u,
		apiKey:    apiKey,
		PlainHTTP: &http.Client{Timeout: 0},
	}, nil
}

// BaseURL returns the scheme+host portion of the client's base address.
func (c *Client) BaseURL() *url.URL {
	return &url.URL{Scheme: c.baseURL.Scheme, Host: c.baseURL.Host}
}

// Resolve joins path (and optional query) against the client's base URL.
func (c *Client) Resolve(path string, query url.Values) *url.URL {
	if query == nil {
		query = url.Values{}
	}
	return c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
}

func (c *Client) newRetryableRequest(method, path string, query url.Values, body io.Reader) (*retryable.Request, error) {
	u := c.Resolve(path, query)
	req, err := retryable.NewRequest(method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderAPIKey, c.apiKey)
	return req, nil
}

// NewPlainRequest builds a non-retried *http.Request against the
// repository, for calls whose retry semantics are driver-specific (the
// capability probe, grouped registration, native and metadata form POSTs).
func (c *Client) NewPlainRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.Resolve(path, query)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderAPIKey, c.apiKey)
	return req, nil
}

// NewServerRequest builds a plain *http.Request against a URL that the
// server returned (ticket complete/abort targets), which may be relative
// to the server base. Absolute URLs (as used for direct object-store PUTs)
// are passed through unchanged, and carry no repository auth header since
// they are pre-signed.
func (c *Client) NewServerRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", target)
	}

	var full string
	if u.IsAbs() {
		full = target
	} else {
		full = c.baseURL.ResolveReference(u).String()
	}

	req, err := http.NewRequestWithContext(ctx, method, full, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if !u.IsAbs() {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}
	return req, nil
}

// Do sends req using the shared plain HTTP client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.PlainHTTP.Do(req)
}

// GetJSON issues a retried GET and decodes a successful JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := c.newRetryableRequest(http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}

	resp, err := newRetryableClient().Do(req.WithContext(ctx))
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	return parseResponse(resp, out)
}

// StatusOnly issues a retried request and returns only the resulting
// status code and body, classifying non-2xx responses via dverrors.
func (c *Client) StatusOnly(ctx context.Context, method, path string, query url.Values, body io.Reader) (int, []byte, error) {
	req, err := c.newRetryableRequest(method, path, query, body)
	if err != nil {
		return 0, nil, err
	}

	resp, err := newRetryableClient().Do(req.WithContext(ctx))
	if err != nil {
		return 0, nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.WithStack(err)
	}
	return resp.StatusCode, b, nil
}

// errorFromStatus classifies an HTTP response into a dverrors kind.
func errorFromStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode < 400 {
		return nil
	}
	return dverrors.ClassifyStatus(resp.StatusCode, string(body))
}

func parseResponse(resp *http.Response, out interface{}) error {
	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := errorFromStatus(resp, b); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return errors.WithStack(json.Unmarshal(b, out))
}

// PostJSONBody is a convenience wrapper used by components that need to
// POST a JSON-encodable body and decode a JSON response.
func (c *Client) PostJSONBody(ctx context.Context, path string, query url.Values, body interface{}, out interface{}) error {
	buf := &bytes.Buffer{}
	if body != nil {
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return errors.WithStack(err)
		}
	}

	req, err := c.newRetryableRequest(http.MethodPost, path, query, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := newRetryableClient().Do(req.WithContext(ctx))
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	return parseResponse(resp, out)
}

func newRetryableClient() *retryable.Client {
	return &retryable.Client{
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		Logger:       &errorLogger{Logger: log.New(os.Stderr, "", log.LstdFlags)},
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
		RetryMax:     5,
		CheckRetry:   retryable.DefaultRetryPolicy,
		Backoff:      exponentialJitterBackoff,
		ErrorHandler: retryable.PassthroughErrorHandler,
	}
}

var random = rand.New(rand.NewSource(time.Now().UnixNano()))

// exponentialJitterBackoff implements exponential backoff with full jitter.
func exponentialJitterBackoff(minDuration, maxDuration time.Duration, attempt int, resp *http.Response) time.Duration {
	min := float64(minDuration)
	max := float64(maxDuration)
	backoff := min + math.Min(max-min, min*math.Exp2(float64(attempt)))*random.Float64()
	return time.Duration(backoff)
}

type errorLogger struct {
	Logger *log.Logger
}

func (l *errorLogger) Printf(template string, args ...interface{}) {
	if strings.HasPrefix(template, "[ERR]") {
		l.Logger.Printf(template, args...)
	}
}
