package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/sirupsen/logrus"

	"github.com/vitrix/updates-center/internal/store"
)

// Client is a thin HTTP client for the hosted entity API. It handles
// Bearer token authentication, JSON marshaling, and retry with backoff on
// network errors, 408, 429 and 5xx responses. It implements store.Store.
type Client struct {
	baseURL    string
	appID      string
	token      string
	httpClient *http.Client
	maxRetries uint
	retryDelay time.Duration
	log        logrus.FieldLogger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetries sets the number of retries after the first attempt and the
// base delay between them.
func WithRetries(n uint, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a new entity API client. baseURL is the API root
// (e.g., https://api.example.com), appID scopes every entity path.
func NewClient(baseURL, appID, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		appID:   appID,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches the records of entity matching q.
func (c *Client) List(
	ctx context.Context,
	entity string,
	q store.Query,
) ([]json.RawMessage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	if len(q.Filters) > 0 {
		filter, err := json.Marshal(encodeFilters(q.Filters))
		if err != nil {
			return nil, fmt.Errorf("encoding filter: %w", err)
		}
		params.Set("q", string(filter))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var out []json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.entityPath(entity), params, nil, &out); err != nil {
		return nil, fmt.Errorf("listing %s: %w", entity, err)
	}
	return out, nil
}

// Update applies a partial update to a record.
func (c *Client) Update(
	ctx context.Context,
	entity, id string,
	fields map[string]any,
) error {
	path := c.entityPath(entity) + "/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodPut, path, nil, fields, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return fmt.Errorf("updating %s %s: %w", entity, id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", entity, id, err)
	}
	return nil
}

// Create inserts a record and returns it as stored by the API.
func (c *Client) Create(
	ctx context.Context,
	entity string,
	fields map[string]any,
) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, c.entityPath(entity), nil, fields, &out); err != nil {
		return nil, fmt.Errorf("creating %s: %w", entity, err)
	}
	return out, nil
}

func (c *Client) entityPath(entity string) string {
	return fmt.Sprintf("/api/apps/%s/entities/%s",
		url.PathEscape(c.appID), url.PathEscape(entity))
}

// encodeFilters renders filters in the API's query syntax:
// {"field": value} for equality and {"field": {"$in": [...]}} for sets.
// The API has no case-insensitive match; fold filters send the lower-cased
// value, which is how the app writes email fields.
func encodeFilters(filters []store.Filter) map[string]any {
	out := make(map[string]any, len(filters))
	for _, f := range filters {
		switch f.Op {
		case store.OpEq:
			out[f.Field] = f.Values[0]
		case store.OpFold:
			s, _ := f.Values[0].(string)
			out[f.Field] = strings.ToLower(s)
		case store.OpIn:
			values := f.Values
			if values == nil {
				values = []any{}
			}
			out[f.Field] = map[string]any{"$in": values}
		}
	}
	return out
}

// do builds the request, handles auth and retries, and decodes the JSON
// response into result when it is non-nil.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	params url.Values,
	body interface{},
	result interface{},
) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	return retry.Do(
		func() error {
			var bodyReader io.Reader = http.NoBody
			if payload != nil {
				bodyReader = bytes.NewReader(payload)
			}

			req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("creating request: %w", err))
			}

			req.Header.Set("Authorization", "Bearer "+c.token)
			req.Header.Set("Accept", "application/json")
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(ctx.Err())
				}
				return fmt.Errorf("executing request %s %s: %w", method, path, err)
			}

			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				return fmt.Errorf("reading response body: %w", readErr)
			}

			if resp.StatusCode == http.StatusUnauthorized ||
				resp.StatusCode == http.StatusForbidden {
				return retry.Unrecoverable(&AuthError{BaseURL: c.baseURL, Code: resp.StatusCode})
			}

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				se := &StatusError{
					Code:   resp.StatusCode,
					Method: method,
					Path:   path,
					Body:   strings.TrimSpace(string(respBody)),
				}
				if se.Temporary() {
					return se
				}
				return retry.Unrecoverable(se)
			}

			// No content to parse (e.g. 204).
			if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
				return nil
			}

			if err := json.Unmarshal(respBody, result); err != nil {
				return retry.Unrecoverable(fmt.Errorf(
					"unmarshaling response from %s %s: %w", method, path, err,
				))
			}
			return nil
		},
		retry.Attempts(c.maxRetries+1),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(c.retryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.WithFields(logrus.Fields{
				"method":  method,
				"path":    path,
				"attempt": n + 1,
				"error":   err,
			}).Warn("Retrying entity API request")
		}),
	)
}
