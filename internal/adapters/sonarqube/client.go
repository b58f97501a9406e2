/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package sonarqube

import (
    "context"
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

const metricsTTL = time.Hour

// Client reads current measures from a live SonarQube server. The aggregator
// defaults to a static quality table; wire this in instead when SONARQUBE_URL
// is set.
type Client struct {
    baseURL    string
    token      string
    projectKey string
    http       *http.Client
    cache      *cache.Cache
    log        zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger, c *cache.Cache) *Client {
    return &Client{
        baseURL:    cfg.SonarBaseURL,
        token:      cfg.SonarToken,
        projectKey: cfg.SonarProjectKey,
        http:       &http.Client{Timeout: cfg.HTTPTimeout},
        cache:      c,
        log:        log,
    }
}

func (c *Client) Configured() bool { return c.baseURL != "" && c.token != "" && c.projectKey != "" }

// Metrics implements the aggregator's quality source; the live server carries
// one project per deployment so the dashboard filter does not change the key.
func (c *Client) Metrics(ctx context.Context, filter string) (*domain.CodeQuality, error) {
    return c.ProjectMetrics(ctx, c.projectKey)
}

func (c *Client) ProjectMetrics(ctx context.Context, projectKey string) (*domain.CodeQuality, error) {
    if !c.Configured() { return nil, errors.New("sonarqube: client not configured") }
    key := "sonar:project:" + projectKey
    var out domain.CodeQuality
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return &out, nil }
    }
    q := url.Values{}
    q.Set("component", projectKey)
    q.Set("metricKeys", "bugs,vulnerabilities,coverage,sqale_rating")
    u := c.baseURL + "/api/measures/component?" + q.Encode()
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
    if err != nil { return nil, err }
    req.Header.Set("Authorization", "Bearer "+c.token)
    resp, err := c.http.Do(req)
    if err != nil { return nil, err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(resp.Body)
        return nil, fmt.Errorf("sonarqube api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
    }
    var payload struct {
        Component struct {
            Measures []struct {
                Metric string `json:"metric"`
                Value  string `json:"value"`
            } `json:"measures"`
        } `json:"component"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil { return nil, err }
    values := map[string]string{}
    for _, m := range payload.Component.Measures { values[m.Metric] = m.Value }
    out = domain.CodeQuality{
        Bugs:                  atoiOr(values["bugs"], 0),
        Vulnerabilities:       atoiOr(values["vulnerabilities"], 0),
        Coverage:              atofOr(values["coverage"], 0),
        MaintainabilityRating: ratingLetter(values["sqale_rating"]),
    }
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, metricsTTL) }
    return &out, nil
}

func atoiOr(s string, def int) int {
    n, err := strconv.Atoi(s)
    if err != nil { return def }
    return n
}

func atofOr(s string, def float64) float64 {
    f, err := strconv.ParseFloat(s, 64)
    if err != nil { return def }
    return f
}

// ratingLetter maps SonarQube's numeric sqale_rating (1.0..5.0) to A..E.
func ratingLetter(s string) string {
    f, err := strconv.ParseFloat(s, 64)
    if err != nil || f < 1 || f > 5 { return "A" }
    return string(rune('A' + int(f) - 1))
}
