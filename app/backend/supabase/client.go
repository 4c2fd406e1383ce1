// Package supabase talks to a Supabase project: GoTrue for identity and
// PostgREST for table rows.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// RequestTimeout bounds every call to the project.
const RequestTimeout = 10 * time.Second

// Client is configured with a project URL and its public (anon) key.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
}

// NewClient validates the project URL and returns a Client. A nil
// httpClient means http.DefaultClient.
func NewClient(projectURL, anonKey string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(projectURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("project url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("project url: unsupported scheme %q", u.Scheme)
	}
	if anonKey == "" {
		return nil, errors.New("anon key is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u.String(), anonKey: anonKey, http: httpClient}, nil
}

// APIError is the decoded error body of a GoTrue or PostgREST response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.StatusCode, e.Message)
}

// request describes one HTTP call to the project.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
	token  oauth2.TokenSource
}

// do sends req and decodes a successful JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return err
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("apikey", c.anonKey)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	hc := c.http
	if req.token != nil {
		// oauth2.Transport sets the Authorization header from the session.
		hc = &http.Client{
			Transport: &oauth2.Transport{Source: req.token, Base: c.http.Transport},
			Timeout:   c.http.Timeout,
		}
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeAPIError understands both the GoTrue and the PostgREST error shapes.
func decodeAPIError(status int, data []byte) error {
	var body struct {
		Code             json.RawMessage `json:"code"`
		ErrorCode        string          `json:"error_code"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Msg              string          `json:"msg"`
		Message          string          `json:"message"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	var code string
	if len(body.Code) > 0 && body.Code[0] == '"' {
		_ = json.Unmarshal(body.Code, &code)
	}
	apiErr.Code = firstNonEmpty(body.ErrorCode, code, body.Error)
	apiErr.Message = firstNonEmpty(body.Msg, body.Message, body.ErrorDescription, body.Error, http.StatusText(status))
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
