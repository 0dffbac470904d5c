// Package ghclient is the thin GitHub collaborator: failed-run discovery,
// run-log download and fix delivery as a pull request. The fix engine never
// sees any of this; it only consumes raw log text and produces corrected
// buffers.
package ghclient

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/quellcrist/flowmend/internal/config"
)

// maxLogRedirects bounds the redirect chain when resolving log archives.
const maxLogRedirects = 3

// Client wraps the GitHub API for one repository. All calls go through a
// client-side rate limiter so batch analysis cannot trip abuse detection.
type Client struct {
	gh      *github.Client
	httpc   *http.Client
	limiter *rate.Limiter
	owner   string
	repo    string
	base    string
	log     *zap.Logger
}

// New builds a Client from configuration. Repository must be "owner/name".
func New(cfg config.GitHubConfig, log *zap.Logger) (*Client, error) {
	gh := github.NewClient(nil)
	if cfg.Token != "" {
		gh = gh.WithAuthToken(cfg.Token)
	}
	return NewWithClient(gh, cfg, log)
}

// NewWithClient builds a Client around an existing go-github client. Tests
// use it to point at a stub server.
func NewWithClient(gh *github.Client, cfg config.GitHubConfig, log *zap.Logger) (*Client, error) {
	if gh == nil {
		return nil, fmt.Errorf("ghclient: github client is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	owner, repo, ok := strings.Cut(cfg.Repository, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("ghclient: repository must be owner/name, got %q", cfg.Repository)
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 5
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 10
	}
	base := cfg.BaseBranch
	if base == "" {
		base = "main"
	}
	return &Client{
		gh:      gh,
		httpc:   &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
		owner:   owner,
		repo:    repo,
		base:    base,
		log:     log,
	}, nil
}

// ListFailedRuns returns up to limit of the most recent failed workflow
// runs.
func (c *Client) ListFailedRuns(ctx context.Context, limit int) ([]*github.WorkflowRun, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	runs, _, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, c.owner, c.repo, &github.ListWorkflowRunsOptions{
		Status:      "failure",
		ListOptions: github.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("ghclient: listing failed runs: %w", err)
	}
	out := runs.WorkflowRuns
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	c.log.Debug("failed runs listed", zap.Int("count", len(out)))
	return out, nil
}

// FetchRunLog downloads one run's log archive and returns its concatenated
// text, files in name order.
func (c *Client) FetchRunLog(ctx context.Context, runID int64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	u, _, err := c.gh.Actions.GetWorkflowRunLogs(ctx, c.owner, c.repo, runID, maxLogRedirects)
	if err != nil {
		return "", fmt.Errorf("ghclient: resolving logs for run %d: %w", runID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("ghclient: building log request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("ghclient: downloading logs for run %d: %w", runID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ghclient: log download for run %d returned %s", runID, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ghclient: reading log archive: %w", err)
	}
	return flattenLogArchive(data)
}

// FetchRunLogs downloads several runs' logs concurrently. Individual
// failures fail the whole batch.
func (c *Client) FetchRunLogs(ctx context.Context, runIDs []int64) (map[int64]string, error) {
	var mu sync.Mutex
	out := make(map[int64]string, len(runIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range runIDs {
		id := id
		g.Go(func() error {
			text, err := c.FetchRunLog(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			out[id] = text
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FixPR describes one automated-fix delivery.
type FixPR struct {
	Path    string
	Content string
	Branch  string
	Title   string
	Body    string
}

// OpenFixPR creates a branch off the base, commits the corrected file and
// opens a pull request. Returns the PR's HTML URL.
func (c *Client) OpenFixPR(ctx context.Context, pr FixPR) (string, error) {
	if pr.Path == "" || pr.Branch == "" {
		return "", fmt.Errorf("ghclient: path and branch are required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	baseRef, _, err := c.gh.Git.GetRef(ctx, c.owner, c.repo, "refs/heads/"+c.base)
	if err != nil {
		return "", fmt.Errorf("ghclient: resolving base branch %s: %w", c.base, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	_, _, err = c.gh.Git.CreateRef(ctx, c.owner, c.repo, &github.Reference{
		Ref:    github.String("refs/heads/" + pr.Branch),
		Object: &github.GitObject{SHA: baseRef.Object.SHA},
	})
	if err != nil {
		return "", fmt.Errorf("ghclient: creating branch %s: %w", pr.Branch, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	existing, _, _, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, pr.Path, &github.RepositoryContentGetOptions{Ref: pr.Branch})
	if err != nil {
		return "", fmt.Errorf("ghclient: reading %s: %w", pr.Path, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	message := pr.Title
	if message == "" {
		message = "Fix workflow configuration"
	}
	_, _, err = c.gh.Repositories.UpdateFile(ctx, c.owner, c.repo, pr.Path, &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(pr.Content),
		Branch:  github.String(pr.Branch),
		SHA:     github.String(existing.GetSHA()),
	})
	if err != nil {
		return "", fmt.Errorf("ghclient: updating %s: %w", pr.Path, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	created, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(message),
		Head:  github.String(pr.Branch),
		Base:  github.String(c.base),
		Body:  github.String(pr.Body),
	})
	if err != nil {
		return "", fmt.Errorf("ghclient: opening pull request: %w", err)
	}

	c.log.Info("fix pull request opened",
		zap.String("branch", pr.Branch),
		zap.String("url", created.GetHTMLURL()))
	return created.GetHTMLURL(), nil
}

// flattenLogArchive concatenates every file in the zip archive GitHub
// serves for run logs, in name order.
func flattenLogArchive(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("ghclient: opening log archive: %w", err)
	}
	files := make([]*zip.File, len(zr.File))
	copy(files, zr.File)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var b strings.Builder
	for _, f := range files {
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("ghclient: opening %s in log archive: %w", f.Name, err)
		}
		if _, err := io.Copy(&b, rc); err != nil {
			rc.Close()
			return "", fmt.Errorf("ghclient: reading %s in log archive: %w", f.Name, err)
		}
		rc.Close()
		b.WriteString("\n")
	}
	return b.String(), nil
}
