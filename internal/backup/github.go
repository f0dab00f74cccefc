package backup

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/marchino/etfwatch/pkg/config"
	"github.com/marchino/etfwatch/pkg/httputil"
	"github.com/marchino/etfwatch/pkg/logger"
)

// GitHubCommitter pushes a file to a repository through the GitHub
// contents API.
type GitHubCommitter struct {
	token  string
	repo   string // "owner/name"
	branch string
	client *httputil.Client
	logger *logger.Logger
}

// NewGitHubCommitter creates a committer, or nil when no token is
// configured so callers can skip publishing.
func NewGitHubCommitter(cfg config.BackupConfig, client *httputil.Client, log *logger.Logger) *GitHubCommitter {
	if cfg.GitHubToken == "" || cfg.GitHubRepo == "" {
		log.Info("GITHUB_TOKEN not set, backup commits disabled")
		return nil
	}
	return &GitHubCommitter{
		token:  cfg.GitHubToken,
		repo:   cfg.GitHubRepo,
		branch: cfg.Branch,
		client: client,
		logger: log,
	}
}

// CommitFile creates or updates path in the repository. An existing
// file's sha is fetched first so the PUT becomes an update.
func (g *GitHubCommitter) CommitFile(ctx context.Context, path, message string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file for commit: %w", err)
	}

	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/contents/%s", g.repo, filepath.ToSlash(path))

	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  g.branch,
	}
	if sha, ok := g.currentSHA(ctx, apiURL); ok {
		payload["sha"] = sha
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal commit payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create commit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("commit file: %w", err)
	}
	respBody, err := httputil.ReadBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("GitHub commit failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	g.logger.Infof("GitHub commit OK: %s", path)
	return nil
}

// currentSHA fetches the sha of the existing file, if any.
func (g *GitHubCommitter) currentSHA(ctx context.Context, apiURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", false
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", false
	}
	body, err := httputil.ReadBody(resp)
	if err != nil || resp.StatusCode != http.StatusOK {
		return "", false
	}

	var payload struct {
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	return payload.SHA, payload.SHA != ""
}

func (g *GitHubCommitter) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
}
