/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package gitlab

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/CrashBytes/team-pulse/internal/cache"
    "github.com/CrashBytes/team-pulse/internal/config"
    "github.com/CrashBytes/team-pulse/internal/domain"
    "github.com/rs/zerolog"
)

const (
    projectTTL = 30 * time.Minute
    mrTTL      = 30 * time.Minute
    commitTTL  = 30 * time.Minute
)

type Client struct {
    baseURL string
    token   string
    http    *http.Client
    cache   *cache.Cache
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger, c *cache.Cache) *Client {
    return &Client{
        baseURL: cfg.GitLabURL,
        token:   cfg.GitLabToken,
        http:    &http.Client{Timeout: cfg.HTTPTimeout},
        cache:   c,
        log:     log,
    }
}

func (c *Client) Configured() bool { return c.baseURL != "" && c.token != "" }

func (c *Client) doJSON(ctx context.Context, u string, out any) error {
    if !c.Configured() { return errors.New("gitlab: client not configured") }
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
        if err != nil { return err }
        req.Header.Set("Authorization", "Bearer "+c.token)
        resp, err := c.http.Do(req)
        if err != nil { lastErr = err } else {
            b, _ := io.ReadAll(resp.Body)
            resp.Body.Close()
            if resp.StatusCode >= 300 {
                if resp.StatusCode == 429 || resp.StatusCode >= 500 {
                    lastErr = fmt.Errorf("gitlab api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                } else {
                    return fmt.Errorf("gitlab api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                }
            } else {
                return json.Unmarshal(b, out)
            }
        }
        time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
    }
    return lastErr
}

func (c *Client) apiURL(path string, q url.Values) string {
    u := strings.TrimRight(c.baseURL, "/") + "/api/v4" + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) Project(ctx context.Context, projectID string) (*domain.ProjectInfo, error) {
    key := "gitlab:project:" + projectID
    var out domain.ProjectInfo
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return &out, nil }
    }
    var payload struct {
        Name           string `json:"name"`
        LastActivityAt string `json:"last_activity_at"`
    }
    u := c.apiURL("/projects/"+url.PathEscape(projectID), nil)
    if err := c.doJSON(ctx, u, &payload); err != nil { return nil, err }
    out = domain.ProjectInfo{Name: payload.Name, LastActivityAt: payload.LastActivityAt}
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, projectTTL) }
    return &out, nil
}

// MergeRequests lists MRs in any state updated after since, capped at one page
// of 100.
func (c *Client) MergeRequests(ctx context.Context, projectID string, since time.Time) ([]domain.MergeRequest, error) {
    key := fmt.Sprintf("gitlab:mrs:%s:%s", projectID, since.UTC().Format(time.RFC3339))
    var out []domain.MergeRequest
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return out, nil }
    }
    q := url.Values{}
    q.Set("state", "all")
    q.Set("updated_after", since.UTC().Format(time.RFC3339))
    q.Set("per_page", "100")
    u := c.apiURL("/projects/"+url.PathEscape(projectID)+"/merge_requests", q)
    var payload []struct {
        IID    int64  `json:"iid"`
        Title  string `json:"title"`
        State  string `json:"state"`
        Author *struct {
            Username string `json:"username"`
            Name     string `json:"name"`
        } `json:"author"`
        CreatedAt *time.Time `json:"created_at"`
        MergedAt  *time.Time `json:"merged_at"`
        ClosedAt  *time.Time `json:"closed_at"`
        UpdatedAt *time.Time `json:"updated_at"`
    }
    if err := c.doJSON(ctx, u, &payload); err != nil { return nil, err }
    out = make([]domain.MergeRequest, 0, len(payload))
    for _, mr := range payload {
        m := domain.MergeRequest{
            IID:       mr.IID,
            Title:     mr.Title,
            State:     mr.State,
            CreatedAt: mr.CreatedAt,
            MergedAt:  mr.MergedAt,
            ClosedAt:  mr.ClosedAt,
            UpdatedAt: mr.UpdatedAt,
        }
        if mr.Author != nil {
            m.AuthorUsername = mr.Author.Username
            m.AuthorName = mr.Author.Name
        }
        out = append(out, m)
    }
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, mrTTL) }
    return out, nil
}

func (c *Client) Commits(ctx context.Context, projectID string, since time.Time) ([]domain.Commit, error) {
    key := fmt.Sprintf("gitlab:commits:%s:%s", projectID, since.UTC().Format(time.RFC3339))
    var out []domain.Commit
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return out, nil }
    }
    q := url.Values{}
    q.Set("since", since.UTC().Format(time.RFC3339))
    q.Set("per_page", "100")
    u := c.apiURL("/projects/"+url.PathEscape(projectID)+"/repository/commits", q)
    var payload []struct {
        ID          string     `json:"id"`
        AuthorName  string     `json:"author_name"`
        AuthorEmail string     `json:"author_email"`
        CreatedAt   *time.Time `json:"created_at"`
    }
    if err := c.doJSON(ctx, u, &payload); err != nil { return nil, err }
    out = make([]domain.Commit, 0, len(payload))
    for _, cm := range payload {
        out = append(out, domain.Commit{ID: cm.ID, AuthorName: cm.AuthorName, AuthorEmail: cm.AuthorEmail, CreatedAt: cm.CreatedAt})
    }
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, commitTTL) }
    return out, nil
}
