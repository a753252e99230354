// Package supabase is a minimal client for a Supabase project: the PostgREST
// table API, the GoTrue auth API and the realtime channel endpoint.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/userdeck-io/userdeck/internal/apperrors"
)

// Client talks to one Supabase project. Table operations authenticate with
// the service role key; auth operations use the anon key plus, where present,
// the end user's access token.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	http       *http.Client
}

// NewClient creates a client for the project at baseURL. The service role key
// falls back to the anon key when not provided.
func NewClient(baseURL, anonKey, serviceKey string) (*Client, error) {
	if baseURL == "" || anonKey == "" {
		return nil, fmt.Errorf("%w: supabase url and anon key are required", apperrors.ErrConfiguration)
	}
	if serviceKey == "" {
		serviceKey = anonKey
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// APIError is a provider failure the project actually responded with, as
// opposed to a transport failure. Code carries GoTrue's structured error code
// or PostgREST's SQLSTATE when the body included one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// parseAPIError decodes the several error body shapes GoTrue and PostgREST
// produce into one APIError.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var raw struct {
		ErrorCode   string          `json:"error_code"`
		Msg         string          `json:"msg"`
		Message     string          `json:"message"`
		Code        json.RawMessage `json:"code"`
		Error       string          `json:"error"`
		Description string          `json:"error_description"`
	}
	if json.Unmarshal(body, &raw) == nil {
		apiErr.Code = raw.ErrorCode
		if apiErr.Code == "" && len(raw.Code) > 0 {
			apiErr.Code = strings.Trim(string(raw.Code), `"`)
		}
		if apiErr.Code == "" {
			apiErr.Code = raw.Error
		}
		switch {
		case raw.Msg != "":
			apiErr.Message = raw.Msg
		case raw.Message != "":
			apiErr.Message = raw.Message
		case raw.Description != "":
			apiErr.Message = raw.Description
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// Eq builds PostgREST equality filters (column -> eq.value).
func Eq(column string, value interface{}) url.Values {
	q := url.Values{}
	q.Set(column, fmt.Sprintf("eq.%v", value))
	return q
}

// SelectRows reads rows matching the filters into dest, a pointer to a slice.
// A negative limit means no limit.
func (c *Client) SelectRows(ctx context.Context, table string, filters url.Values, offset, limit int, dest interface{}) error {
	q := url.Values{}
	for k, vs := range filters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("select", "*")
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if limit >= 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.rest(ctx, http.MethodGet, table, q, nil, dest)
}

// InsertRow inserts one row and decodes the returned representation into
// dest, a pointer to a slice.
func (c *Client) InsertRow(ctx context.Context, table string, row, dest interface{}) error {
	return c.rest(ctx, http.MethodPost, table, nil, row, dest)
}

// UpdateRows patches rows matching the filters and decodes the returned
// representations into dest.
func (c *Client) UpdateRows(ctx context.Context, table string, filters url.Values, row, dest interface{}) error {
	return c.rest(ctx, http.MethodPatch, table, filters, row, dest)
}

// DeleteRows deletes rows matching the filters and decodes the deleted
// representations into dest.
func (c *Client) DeleteRows(ctx context.Context, table string, filters url.Values, dest interface{}) error {
	return c.rest(ctx, http.MethodDelete, table, filters, nil, dest)
}

func (c *Client) rest(ctx context.Context, method, table string, query url.Values, body, dest interface{}) error {
	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Prefer", "return=representation")
	return c.do(req, dest)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Request, error) {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes the request. A transport failure wraps ErrBackendUnavailable;
// a provider 4xx/5xx becomes an APIError for the caller to classify.
func (c *Client) do(req *http.Request, dest interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, data)
	}
	if dest != nil && len(data) > 0 {
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
	}
	return nil
}
