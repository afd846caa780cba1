// Package sdapi is a small typed client for the Automatic1111 WebUI REST API.
// It performs single requests only; retrying and polling are left to callers.
package sdapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultHost is used when no base URL is configured.
const DefaultHost = "http://127.0.0.1:7860"

const (
	pathModels   = "/sdapi/v1/sd-models"
	pathOptions  = "/sdapi/v1/options"
	pathProgress = "/sdapi/v1/progress?skip_current_image=true"
	pathTxt2Img  = "/sdapi/v1/txt2img"
	pathShutdown = "/shutdown"

	// maxErrorBody caps how much of a failed response body is kept.
	maxErrorBody = 4096
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "sdapi: http " + e.Status
	}
	return fmt.Sprintf("sdapi: http %s: %s", e.Status, e.Body)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to one WebUI instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client for baseURL. The underlying http.Client has no global
// timeout: every call is bounded by the context it receives.
func New(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultHost
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{baseURL: baseURL, httpClient: &http.Client{Transport: tr, Timeout: 0}}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// BaseURL returns the server root, without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Models lists the checkpoints known to the server. It doubles as the
// readiness probe.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var out []Model
	if err := c.do(ctx, http.MethodGet, pathModels, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetCheckpoint asks the server to load the named checkpoint. The server
// answers before loading has finished; poll Progress to observe completion.
func (c *Client) SetCheckpoint(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, pathOptions, Options{SDModelCheckpoint: name}, nil)
}

// Progress reports the server job queue.
func (c *Client) Progress(ctx context.Context) (Progress, error) {
	var p Progress
	err := c.do(ctx, http.MethodGet, pathProgress, nil, &p)
	return p, err
}

// Txt2Img submits a generation payload.
func (c *Client) Txt2Img(ctx context.Context, payload any) (Txt2ImgResult, error) {
	var res Txt2ImgResult
	err := c.do(ctx, http.MethodPost, pathTxt2Img, payload, &res)
	return res, err
}

// Shutdown asks the server to exit.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathShutdown, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("sdapi: encode %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sdapi: decode %s: %w", path, err)
	}
	return nil
}
