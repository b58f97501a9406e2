/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package snyk

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/CrashBytes/team-pulse/internal/cache"
    "github.com/CrashBytes/team-pulse/internal/config"
    "github.com/CrashBytes/team-pulse/internal/domain"
    "github.com/rs/zerolog"
)

const (
    baseURL     = "https://snyk.io/api/v1"
    projectsTTL = time.Hour
    vulnsTTL    = 30 * time.Minute
    summaryTTL  = 30 * time.Minute

    // sampled per summary to stay inside the org rate limit
    sampleSize = 5
)

type Project struct {
    ID   string `json:"id"`
    Name string `json:"name"`
    Type string `json:"type"`
}

type Client struct {
    token string
    orgID string
    http  *http.Client
    cache *cache.Cache
    log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger, c *cache.Cache) *Client {
    return &Client{
        token: cfg.SnykToken,
        orgID: cfg.SnykOrgID,
        http:  &http.Client{Timeout: cfg.HTTPTimeout},
        cache: c,
        log:   log,
    }
}

func (c *Client) Configured() bool { return c.token != "" && c.orgID != "" }

func (c *Client) do(ctx context.Context, method, u string, body, out any) error {
    if !c.Configured() { return errors.New("snyk: client not configured") }
    var r io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return err }
        r = bytes.NewReader(b)
    }
    req, err := http.NewRequestWithContext(ctx, method, u, r)
    if err != nil { return err }
    req.Header.Set("Authorization", "token "+c.token)
    if body != nil { req.Header.Set("Content-Type", "application/json") }
    resp, err := c.http.Do(req)
    if err != nil { return err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(resp.Body)
        return fmt.Errorf("snyk api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
    }
    return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) OrgProjects(ctx context.Context) ([]Project, error) {
    key := "snyk:org:" + c.orgID + ":projects"
    var out []Project
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return out, nil }
    }
    var payload struct {
        Projects []Project `json:"projects"`
    }
    if err := c.do(ctx, http.MethodGet, baseURL+"/org/"+c.orgID+"/projects", nil, &payload); err != nil { return nil, err }
    out = payload.Projects
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, projectsTTL) }
    return out, nil
}

func (c *Client) ProjectVulnerabilities(ctx context.Context, projectID string) (*domain.VulnCounts, error) {
    key := fmt.Sprintf("snyk:vulnerabilities:%s:%s", c.orgID, projectID)
    var out domain.VulnCounts
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return &out, nil }
    }
    body := map[string]any{
        "filters": map[string]any{
            "severities": []string{"high", "medium", "low"},
            "types":      []string{"vuln", "license"},
        },
    }
    var payload struct {
        Issues []struct {
            IssueData struct {
                Severity string `json:"severity"`
            } `json:"issueData"`
            FixInfo *struct {
                IsFixable bool `json:"isFixable"`
            } `json:"fixInfo"`
        } `json:"issues"`
    }
    u := baseURL + "/org/" + c.orgID + "/project/" + projectID + "/aggregated-issues"
    if err := c.do(ctx, http.MethodPost, u, body, &payload); err != nil { return nil, err }
    for _, iss := range payload.Issues {
        switch iss.IssueData.Severity {
        case "high": out.High++
        case "medium": out.Medium++
        case "low": out.Low++
        }
        if iss.FixInfo != nil && iss.FixInfo.IsFixable { out.Fixable++ }
    }
    out.Total = len(payload.Issues)
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, vulnsTTL) }
    return &out, nil
}

// OrgSummary aggregates vulnerabilities over a sample of org projects; a
// failing project is logged and skipped so siblings still count.
func (c *Client) OrgSummary(ctx context.Context) (*domain.VulnerabilitySummary, error) {
    key := "snyk:org:" + c.orgID + ":summary"
    var out domain.VulnerabilitySummary
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return &out, nil }
    }
    projects, err := c.OrgProjects(ctx)
    if err != nil { return nil, err }
    sample := projects
    if len(sample) > sampleSize { sample = sample[:sampleSize] }
    out = domain.VulnerabilitySummary{
        TotalProjects:   len(projects),
        SampledProjects: len(sample),
        ProjectTypes:    map[string]int{},
    }
    for _, p := range projects { out.ProjectTypes[p.Type]++ }
    for _, p := range sample {
        vulns, err := c.ProjectVulnerabilities(ctx, p.ID)
        if err != nil {
            c.log.Warn().Err(err).Str("project", p.ID).Msg("snyk: project vulnerabilities failed")
            continue
        }
        out.Vulnerabilities.High += vulns.High
        out.Vulnerabilities.Medium += vulns.Medium
        out.Vulnerabilities.Low += vulns.Low
        out.Vulnerabilities.Total += vulns.Total
        out.Vulnerabilities.Fixable += vulns.Fixable
    }
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, summaryTTL) }
    return &out, nil
}
