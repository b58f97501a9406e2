/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "context"
    "encoding/base64"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/CrashBytes/team-pulse/internal/cache"
    "github.com/CrashBytes/team-pulse/internal/config"
    "github.com/CrashBytes/team-pulse/internal/domain"
    "github.com/rs/zerolog"
)

const (
    sprintTTL = time.Hour
    issueTTL  = time.Hour
    searchTTL = time.Hour
)

type Client struct {
    baseURL string
    email   string
    token   string
    http    *http.Client
    cache   *cache.Cache
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger, c *cache.Cache) *Client {
    return &Client{
        baseURL: cfg.JiraBaseURL,
        email:   cfg.JiraEmail,
        token:   cfg.JiraToken,
        http:    &http.Client{Timeout: cfg.HTTPTimeout},
        cache:   c,
        log:     log,
    }
}

func (c *Client) Configured() bool { return c.baseURL != "" && c.email != "" && c.token != "" }

func (c *Client) apiURL(path string, q url.Values) string {
    base := strings.TrimRight(c.baseURL, "/")
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := base + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) doJSON(ctx context.Context, u string, out any) error {
    if !c.Configured() { return errors.New("jira: client not configured") }
    auth := base64.StdEncoding.EncodeToString([]byte(c.email + ":" + c.token))
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
        if err != nil { return err }
        req.Header.Set("Authorization", "Basic "+auth)
        req.Header.Set("Accept", "application/json")
        resp, err := c.http.Do(req)
        if err != nil { lastErr = err } else {
            b, _ := io.ReadAll(resp.Body)
            resp.Body.Close()
            if resp.StatusCode >= 300 {
                // retry on 429/5xx, everything else is final
                if resp.StatusCode == 429 || resp.StatusCode >= 500 {
                    lastErr = fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                } else {
                    return fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                }
            } else {
                return json.Unmarshal(b, out)
            }
        }
        time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
    }
    return lastErr
}

type sprintPayload struct {
    ID        int64  `json:"id"`
    Name      string `json:"name"`
    State     string `json:"state"`
    StartDate string `json:"startDate"`
    EndDate   string `json:"endDate"`
}

type issuePayload struct {
    Key    string `json:"key"`
    Fields struct {
        Summary string `json:"summary"`
        Status  struct {
            Name           string `json:"name"`
            StatusCategory struct {
                Key string `json:"key"`
            } `json:"statusCategory"`
        } `json:"status"`
        StoryPoints *float64 `json:"customfield_10016"`
        Assignee    *struct {
            DisplayName  string `json:"displayName"`
            EmailAddress string `json:"emailAddress"`
        } `json:"assignee"`
        Priority *struct {
            Name string `json:"name"`
        } `json:"priority"`
        Created string `json:"created"`
        Updated string `json:"updated"`
    } `json:"fields"`
}

// BoardSprints lists sprints for a board filtered by state ("active,future" or
// "closed"), capped at maxResults. Results are cached for an hour.
func (c *Client) BoardSprints(ctx context.Context, boardID, states string, maxResults int) ([]domain.Sprint, error) {
    key := fmt.Sprintf("jira:sprints:%s:%s", boardID, states)
    var out []domain.Sprint
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return out, nil }
    }
    q := url.Values{}
    q.Set("state", states)
    q.Set("maxResults", strconv.Itoa(maxResults))
    u := c.apiURL("/rest/agile/1.0/board/"+url.PathEscape(boardID)+"/sprint", q)
    var page struct {
        Values []sprintPayload `json:"values"`
    }
    if err := c.doJSON(ctx, u, &page); err != nil { return nil, err }
    out = make([]domain.Sprint, 0, len(page.Values))
    for _, sp := range page.Values {
        out = append(out, domain.Sprint{
            ID:        sp.ID,
            Name:      sp.Name,
            State:     sp.State,
            StartDate: parseTimeUTC(sp.StartDate),
            EndDate:   parseTimeUTC(sp.EndDate),
        })
    }
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, sprintTTL) }
    return out, nil
}

// SprintIssues fetches the narrow issue fields the dashboard needs, capped at
// 100 issues per sprint.
func (c *Client) SprintIssues(ctx context.Context, sprintID int64) ([]domain.Issue, error) {
    key := fmt.Sprintf("jira:sprint-issues:%d", sprintID)
    var out []domain.Issue
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return out, nil }
    }
    q := url.Values{}
    q.Set("fields", "summary,status,customfield_10016,assignee")
    q.Set("maxResults", "100")
    u := c.apiURL("/rest/agile/1.0/sprint/"+strconv.FormatInt(sprintID, 10)+"/issue", q)
    var page struct {
        Issues []issuePayload `json:"issues"`
    }
    if err := c.doJSON(ctx, u, &page); err != nil { return nil, err }
    out = convertIssues(page.Issues)
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, issueTTL) }
    return out, nil
}

// SearchIssues runs a JQL query; used by the individual report.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]domain.Issue, error) {
    if strings.TrimSpace(jql) == "" { return nil, errors.New("jira: empty jql") }
    key := "jira:search:" + jql
    var out []domain.Issue
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return out, nil }
    }
    q := url.Values{}
    q.Set("jql", jql)
    q.Set("fields", "summary,status,customfield_10016,assignee,priority,created,updated")
    q.Set("maxResults", "1000")
    u := c.apiURL("/rest/api/2/search", q)
    var page struct {
        Issues []issuePayload `json:"issues"`
    }
    if err := c.doJSON(ctx, u, &page); err != nil { return nil, err }
    out = convertIssues(page.Issues)
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, searchTTL) }
    return out, nil
}

// BoardInfo is the debug-endpoint board listing shape.
type BoardInfo struct {
    ID       int64  `json:"id"`
    Name     string `json:"name"`
    Type     string `json:"type"`
    Location string `json:"location"`
}

// Boards lists all boards visible to the token; operator/debug use only, so it
// bypasses the cache.
func (c *Client) Boards(ctx context.Context) ([]BoardInfo, error) {
    q := url.Values{}
    q.Set("maxResults", "100")
    u := c.apiURL("/rest/agile/1.0/board", q)
    var page struct {
        Values []struct {
            ID       int64  `json:"id"`
            Name     string `json:"name"`
            Type     string `json:"type"`
            Location *struct {
                Name string `json:"name"`
            } `json:"location"`
        } `json:"values"`
    }
    if err := c.doJSON(ctx, u, &page); err != nil { return nil, err }
    boards := make([]BoardInfo, 0, len(page.Values))
    for _, b := range page.Values {
        info := BoardInfo{ID: b.ID, Name: b.Name, Type: b.Type}
        if b.Location != nil { info.Location = b.Location.Name }
        boards = append(boards, info)
    }
    return boards, nil
}

func convertIssues(payloads []issuePayload) []domain.Issue {
    out := make([]domain.Issue, 0, len(payloads))
    for _, p := range payloads {
        iss := domain.Issue{
            Key:            p.Key,
            Summary:        p.Fields.Summary,
            StatusName:     p.Fields.Status.Name,
            StatusCategory: p.Fields.Status.StatusCategory.Key,
            StoryPoints:    p.Fields.StoryPoints,
            Created:        parseTimeUTC(p.Fields.Created),
            Updated:        parseTimeUTC(p.Fields.Updated),
        }
        if p.Fields.Priority != nil { iss.Priority = p.Fields.Priority.Name }
        if p.Fields.Assignee != nil {
            iss.Assignee = &domain.Assignee{DisplayName: p.Fields.Assignee.DisplayName, Email: p.Fields.Assignee.EmailAddress}
        }
        out = append(out, iss)
    }
    return out
}

func parseTimeUTC(s string) *time.Time {
    if s == "" { return nil }
    layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700"}
    for _, l := range layouts {
        if t, err := time.Parse(l, s); err == nil {
            tt := t.UTC()
            return &tt
        }
    }
    return nil
}
