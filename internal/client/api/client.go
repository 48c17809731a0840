// Package api is the HTTP client the terminal client uses to talk to the
// EquipSense server. It holds the token pair in memory, attaches the access
// token to every request, transparently refreshes an expired token once and
// retries, and maps common failures to sentinel errors callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

const refreshPath = "/api/auth/token/refresh/"

// Client talks to one EquipSense server. Not safe for concurrent use: the
// token pair mutates on login, refresh and logout.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	accessToken  string
	refreshToken string
	user         *User
}

// New returns a client for the server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsLoggedIn reports whether the client holds an access token.
func (c *Client) IsLoggedIn() bool {
	return c.accessToken != ""
}

// User returns the account stored at login, or nil before login.
func (c *Client) User() *User {
	return c.user
}

// send performs one HTTP round trip and drains the body.
func (c *Client) send(ctx context.Context, method string, path string, contentType string, body []byte) ([]byte, *http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("error building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading response: %w", err)
	}
	return data, resp, nil
}

// do sends the request, refreshing the token pair and retrying once when
// the server answers 401 and a refresh token is held. Bodies are byte
// slices so the retry can replay them.
func (c *Client) do(ctx context.Context, method string, path string, contentType string, body []byte) ([]byte, *http.Response, error) {
	data, resp, err := c.send(ctx, method, path, contentType, body)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.refreshToken != "" && path != refreshPath {
		if err := c.refresh(ctx); err != nil {
			// The original 401 stands; the caller maps it.
			return data, resp, nil
		}
		return c.send(ctx, method, path, contentType, body)
	}
	return data, resp, nil
}

// refresh rotates the token pair through the refresh endpoint.
func (c *Client) refresh(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"refresh": c.refreshToken})
	if err != nil {
		return fmt.Errorf("error encoding refresh request: %w", err)
	}

	data, resp, err := c.send(ctx, http.MethodPost, refreshPath, "application/json", body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, data)
	}

	var out struct {
		Tokens *Tokens `json:"tokens"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("error decoding refresh response: %w", err)
	}
	if out.Tokens == nil {
		return fmt.Errorf("refresh response carries no tokens")
	}
	c.accessToken = out.Tokens.Access
	c.refreshToken = out.Tokens.Refresh
	return nil
}

// apiError turns a non-2xx reply into an error carrying the server's
// message. Both the flat {"error"} and the {"success","message"} envelopes
// are understood.
func apiError(status int, body []byte) error {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &e)

	msg := e.Error
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	}
	return errors.New(msg)
}

// postJSON posts in as JSON and decodes a reply with the wanted status
// into out.
func (c *Client) postJSON(ctx context.Context, path string, in any, wantStatus int, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("error encoding request: %w", err)
	}

	data, resp, err := c.do(ctx, http.MethodPost, path, "application/json", body)
	if err != nil {
		return err
	}
	if resp.StatusCode != wantStatus {
		return apiError(resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}
	return nil
}

// getJSON fetches path and decodes a 200 reply into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	data, resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// Login authenticates through the single-step endpoint the desktop builds
// use and stores the issued token pair.
func (c *Client) Login(ctx context.Context, username string, password string) (*User, error) {
	var out struct {
		User   *User   `json:"user"`
		Tokens *Tokens `json:"tokens"`
	}
	err := c.postJSON(ctx, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, http.StatusOK, &out)
	if err != nil {
		return nil, err
	}
	if out.Tokens == nil || out.User == nil {
		return nil, fmt.Errorf("login response carries no tokens")
	}

	c.accessToken = out.Tokens.Access
	c.refreshToken = out.Tokens.Refresh
	c.user = out.User
	return out.User, nil
}

// Logout revokes the refresh token server-side. The local session is
// dropped even when revocation fails; the tokens are gone either way.
func (c *Client) Logout(ctx context.Context) error {
	refresh := c.refreshToken
	defer func() {
		c.accessToken = ""
		c.refreshToken = ""
		c.user = nil
	}()

	if refresh == "" {
		return nil
	}
	data, resp, err := c.do(ctx, http.MethodPost, "/api/auth/logout/", "application/json",
		[]byte(fmt.Sprintf(`{"refresh_token":%q}`, refresh)))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, data)
	}
	return nil
}

// Profile fetches the live account row for the logged-in user.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := c.getJSON(ctx, "/api/auth/profile/", &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, fmt.Errorf("profile response carries no user")
	}
	return out.User, nil
}

// Upload posts a CSV as multipart form data.
func (c *Client) Upload(ctx context.Context, filename string, contents []byte) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("error building upload: %w", err)
	}
	if _, err := part.Write(contents); err != nil {
		return nil, fmt.Errorf("error building upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("error building upload: %w", err)
	}

	data, resp, err := c.do(ctx, http.MethodPost, "/api/upload", mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp.StatusCode, data)
	}

	var out UploadResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return &out, nil
}

// withDatasetID appends an optional dataset_id query parameter.
func withDatasetID(path string, datasetID string) string {
	if datasetID == "" {
		return path
	}
	return path + "?dataset_id=" + url.QueryEscape(datasetID)
}

// Summary fetches the statistics of the given dataset, or of the latest
// one when datasetID is empty.
func (c *Client) Summary(ctx context.Context, datasetID string) (*Summary, error) {
	var out Summary
	if err := c.getJSON(ctx, withDatasetID("/api/summary", datasetID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches the upload history, newest first.
func (c *Client) History(ctx context.Context) (*History, error) {
	var out History
	if err := c.getJSON(ctx, "/api/history", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TypeDistribution fetches equipment counts per type.
func (c *Client) TypeDistribution(ctx context.Context, datasetID string) (map[string]int, error) {
	var out struct {
		TypeDistribution map[string]int `json:"type_distribution"`
	}
	if err := c.getJSON(ctx, withDatasetID("/api/type-distribution", datasetID), &out); err != nil {
		return nil, err
	}
	return out.TypeDistribution, nil
}

// Report downloads the PDF report for a dataset. The filename comes from
// the Content-Disposition header the server sets.
func (c *Client) Report(ctx context.Context, datasetID string) (string, []byte, error) {
	data, resp, err := c.do(ctx, http.MethodGet, withDatasetID("/api/report", datasetID), "", nil)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, apiError(resp.StatusCode, data)
	}

	filename := "equipment_report.pdf"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := filepath.Base(params["filename"]); name != "" && name != "." {
			filename = name
		}
	}
	return filename, data, nil
}
