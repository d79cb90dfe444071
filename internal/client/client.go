// Package client is the HTTP client the injectly CLI uses to talk to the
// daemon's management API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

type APIClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func New(baseURL, token string) *APIClient {
	return &APIClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
	}
}

func (c *APIClient) Setup(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password, "confirmPassword": password}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/setup", body)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *APIClient) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/login", body)
	if err != nil {
		return LoginResponse{}, err
	}
	var out LoginResponse
	if err := c.do(req, &out); err != nil {
		return LoginResponse{}, err
	}
	return out, nil
}

func (c *APIClient) Logout(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/logout", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *APIClient) ListScripts(ctx context.Context) (ScriptsResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/scripts", nil)
	if err != nil {
		return ScriptsResponse{}, err
	}
	var out ScriptsResponse
	if err := c.do(req, &out); err != nil {
		return ScriptsResponse{}, err
	}
	return out, nil
}

func (c *APIClient) CreateScript(ctx context.Context, name, content string) (Script, error) {
	body := map[string]string{"name": name, "content": content}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/scripts", body)
	if err != nil {
		return Script{}, err
	}
	var out Script
	if err := c.do(req, &out); err != nil {
		return Script{}, err
	}
	return out, nil
}

func (c *APIClient) GetScript(ctx context.Context, id int64) (Script, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v1/scripts/%d", id), nil)
	if err != nil {
		return Script{}, err
	}
	var out Script
	if err := c.do(req, &out); err != nil {
		return Script{}, err
	}
	return out, nil
}

func (c *APIClient) UpdateScript(ctx context.Context, id int64, name, content string) (Script, error) {
	body := map[string]string{"name": name, "content": content}
	req, err := c.newRequest(ctx, http.MethodPut, fmt.Sprintf("/api/v1/scripts/%d", id), body)
	if err != nil {
		return Script{}, err
	}
	var out Script
	if err := c.do(req, &out); err != nil {
		return Script{}, err
	}
	return out, nil
}

func (c *APIClient) DeleteScript(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/scripts/%d", id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// AssignScript replaces the script's full set of site assignments.
func (c *APIClient) AssignScript(ctx context.Context, id int64, siteIDs []int64) (Script, error) {
	body := map[string]any{"siteIds": siteIDs}
	req, err := c.newRequest(ctx, http.MethodPut, fmt.Sprintf("/api/v1/scripts/%d/sites", id), body)
	if err != nil {
		return Script{}, err
	}
	var out Script
	if err := c.do(req, &out); err != nil {
		return Script{}, err
	}
	return out, nil
}

func (c *APIClient) ScriptStats(ctx context.Context, id int64) (ScriptStats, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v1/scripts/%d/stats", id), nil)
	if err != nil {
		return ScriptStats{}, err
	}
	var out ScriptStats
	if err := c.do(req, &out); err != nil {
		return ScriptStats{}, err
	}
	return out, nil
}

func (c *APIClient) ListSites(ctx context.Context) (SitesResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/sites", nil)
	if err != nil {
		return SitesResponse{}, err
	}
	var out SitesResponse
	if err := c.do(req, &out); err != nil {
		return SitesResponse{}, err
	}
	return out, nil
}

func (c *APIClient) CreateSite(ctx context.Context, domain string) (Site, error) {
	body := map[string]string{"domain": domain}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/sites", body)
	if err != nil {
		return Site{}, err
	}
	var out Site
	if err := c.do(req, &out); err != nil {
		return Site{}, err
	}
	return out, nil
}

func (c *APIClient) DeleteSite(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/sites/%d", id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *APIClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *APIClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return mapAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode api response: %w", err)
	}
	return nil
}

type apiErrorPayload struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

func mapAPIError(resp *http.Response) error {
	payload := apiErrorPayload{}
	body, _ := io.ReadAll(resp.Body)
	if len(body) > 0 {
		_ = json.Unmarshal(body, &payload)
	}
	msg := strings.TrimSpace(payload.Error)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = "request failed"
	}
	if len(payload.Details) > 0 {
		msg = msg + ": " + strings.Join(payload.Details, "; ")
	}
	return fmt.Errorf("%s (HTTP %d)", msg, resp.StatusCode)
}
