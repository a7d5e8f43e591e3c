package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"collabvc/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "COLLABVC_HTTP_TIMEOUT"
	tokenEnvKey        = "COLLABVC_TOKEN"
)

// Client is a small HTTP client for the collabvc API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewClient creates a client. The session token defaults to $COLLABVC_TOKEN.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeoutFromEnv()},
		token:   strings.TrimSpace(os.Getenv(tokenEnvKey)),
	}
}

// SetToken replaces the bearer session token.
func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

// HasToken reports whether requests carry a bearer token.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

func (c *Client) Login(ctx context.Context, username, password string) (AuthLoginResponse, error) {
	var resp AuthLoginResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", nil, AuthLoginRequest{Username: username, Password: password}, &resp)
	return resp, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context) (AuthMeResponse, error) {
	var resp AuthMeResponse
	err := c.do(ctx, http.MethodGet, "/v1/auth/me", nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateWorkspace(ctx context.Context, req WorkspaceCreateRequest) (WorkspaceResponse, error) {
	var resp WorkspaceResponse
	err := c.do(ctx, http.MethodPost, "/v1/workspaces", nil, req, &resp)
	return resp, err
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]WorkspaceResponse, error) {
	var resp []WorkspaceResponse
	err := c.do(ctx, http.MethodGet, "/v1/workspaces", nil, nil, &resp)
	return resp, err
}

func (c *Client) GetWorkspace(ctx context.Context, workspaceID string) (WorkspaceResponse, error) {
	var resp WorkspaceResponse
	err := c.do(ctx, http.MethodGet, workspacePath(workspaceID), nil, nil, &resp)
	return resp, err
}

func (c *Client) UpdateWorkspace(ctx context.Context, workspaceID string, req WorkspaceUpdateRequest) (WorkspaceResponse, error) {
	var resp WorkspaceResponse
	err := c.do(ctx, http.MethodPatch, workspacePath(workspaceID), nil, req, &resp)
	return resp, err
}

func (c *Client) AddMember(ctx context.Context, workspaceID string, req MemberAddRequest) (WorkspaceResponse, error) {
	var resp WorkspaceResponse
	err := c.do(ctx, http.MethodPost, workspacePath(workspaceID)+"/members", nil, req, &resp)
	return resp, err
}

func (c *Client) RemoveMember(ctx context.Context, workspaceID, username string) error {
	return c.do(ctx, http.MethodDelete, workspacePath(workspaceID)+"/members/"+url.PathEscape(username), nil, nil, nil)
}

// Commit creates a new version of a file.
func (c *Client) Commit(ctx context.Context, workspaceID string, req CommitRequest) (models.VersionRecord, error) {
	var resp models.VersionRecord
	err := c.do(ctx, http.MethodPost, workspacePath(workspaceID)+"/versions", nil, req, &resp)
	return resp, err
}

// GetFile returns a file at versionID, or its latest version when versionID is empty.
func (c *Client) GetFile(ctx context.Context, workspaceID, filePath, versionID string) (FileResponse, error) {
	var query url.Values
	if versionID != "" {
		query = url.Values{"version": []string{versionID}}
	}
	var resp FileResponse
	err := c.do(ctx, http.MethodGet, workspacePath(workspaceID)+"/files/"+escapeFilePath(filePath), query, nil, &resp)
	return resp, err
}

func (c *Client) History(ctx context.Context, workspaceID, filePath string, limit int) (VersionListResponse, error) {
	var resp VersionListResponse
	err := c.do(ctx, http.MethodGet, workspacePath(workspaceID)+"/history/"+escapeFilePath(filePath), limitQuery(limit), nil, &resp)
	return resp, err
}

func (c *Client) ListFiles(ctx context.Context, workspaceID string) (FilesResponse, error) {
	var resp FilesResponse
	err := c.do(ctx, http.MethodGet, workspacePath(workspaceID)+"/files", nil, nil, &resp)
	return resp, err
}

func (c *Client) RecentVersions(ctx context.Context, workspaceID string, limit int) (VersionListResponse, error) {
	var resp VersionListResponse
	err := c.do(ctx, http.MethodGet, workspacePath(workspaceID)+"/versions", limitQuery(limit), nil, &resp)
	return resp, err
}

func (c *Client) GetVersion(ctx context.Context, workspaceID, versionID string) (FileResponse, error) {
	var resp FileResponse
	err := c.do(ctx, http.MethodGet, workspacePath(workspaceID)+"/versions/"+url.PathEscape(versionID), nil, nil, &resp)
	return resp, err
}

// Revert restores filePath to the content of versionID as a new version.
func (c *Client) Revert(ctx context.Context, workspaceID, filePath, versionID string) (models.VersionRecord, error) {
	var resp models.VersionRecord
	endpoint := workspacePath(workspaceID) + "/revert/" + url.PathEscape(versionID) + "/" + escapeFilePath(filePath)
	err := c.do(ctx, http.MethodPost, endpoint, nil, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Error
		return apiErr
	}
	apiErr.Message = fmt.Sprintf("api error: %s", resp.Status)
	return apiErr
}

func workspacePath(workspaceID string) string {
	return "/v1/workspaces/" + url.PathEscape(workspaceID)
}

func escapeFilePath(filePath string) string {
	segments := strings.Split(strings.TrimLeft(filePath, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	return url.Values{"limit": []string{strconv.Itoa(limit)}}
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
