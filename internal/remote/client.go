// Package remote talks to the HTTP API of another gitdesk server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/thiagokokada/gitdesk/internal/git"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("remote: %s", e.Message)
}

// Is maps API statuses back to the repository sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case git.ErrUnknownCommit:
		return e.Status == http.StatusNotFound
	case git.ErrInvalidPath:
		return e.Status == http.StatusBadRequest && strings.Contains(e.Message, git.ErrInvalidPath.Error())
	case git.ErrNoFiles:
		return e.Status == http.StatusBadRequest && strings.Contains(e.Message, git.ErrNoFiles.Error())
	}
	return false
}

type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for the server at baseURL. A nil httpClient uses
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported remote scheme %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: u, http: httpClient}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil, nil)
}

func (c *Client) ListCommits(ctx context.Context) ([]git.Commit, error) {
	var commits []git.Commit
	err := c.do(ctx, http.MethodGet, "/api/commits", nil, nil, &commits)
	return commits, err
}

func (c *Client) ListUncommittedChanges(ctx context.Context) ([]string, error) {
	var files []string
	err := c.do(ctx, http.MethodGet, "/api/uncommitted", nil, nil, &files)
	return files, err
}

func (c *Client) ListChangedFiles(ctx context.Context, hash string) ([]string, error) {
	var files []string
	err := c.do(ctx, http.MethodGet, "/api/changed-files", url.Values{"commit": {hash}}, nil, &files)
	return files, err
}

func (c *Client) FileVersions(ctx context.Context, hash, path string) (git.FileVersions, error) {
	var v git.FileVersions
	err := c.do(ctx, http.MethodGet, "/api/file-versions", url.Values{"commit": {hash}, "path": {path}}, nil, &v)
	return v, err
}

func (c *Client) FileContent(ctx context.Context, ref, path string) (string, error) {
	var resp struct {
		Content string `json:"content"`
	}
	err := c.do(ctx, http.MethodGet, "/api/file-content", url.Values{"ref": {ref}, "path": {path}}, nil, &resp)
	return resp.Content, err
}

func (c *Client) UpdateFileContent(ctx context.Context, path, content string) error {
	body := map[string]string{"path": path, "content": content}
	return c.do(ctx, http.MethodPut, "/api/file-content", nil, body, nil)
}

func (c *Client) CreateCommit(ctx context.Context, paths []string, message string) (string, error) {
	var resp struct {
		Hash string `json:"hash"`
	}
	body := map[string]any{"files": paths, "message": message}
	err := c.do(ctx, http.MethodPost, "/api/commit", nil, body, &resp)
	return resp.Hash, err
}

func (c *Client) RollbackFiles(ctx context.Context, hash string, paths []string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	body := map[string]any{"commit": hash, "files": paths}
	err := c.do(ctx, http.MethodPost, "/api/rollback", nil, body, &resp)
	return resp.Message, err
}

func (c *Client) RepositoryTree(ctx context.Context) ([]git.TreeNode, error) {
	var tree []git.TreeNode
	err := c.do(ctx, http.MethodGet, "/api/tree", nil, nil, &tree)
	return tree, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		slog.Debug("read error body", slog.Any("error", err))
	}
	serr := &StatusError{Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		serr.Message = payload.Error
	} else {
		serr.Message = strings.TrimSpace(string(data))
	}
	return serr
}
