/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package slack

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/url"
    "strconv"
    "time"

    "github.com/CrashBytes/team-pulse/internal/cache"
    "github.com/CrashBytes/team-pulse/internal/config"
    "github.com/CrashBytes/team-pulse/internal/domain"
    "github.com/CrashBytes/team-pulse/internal/metrics"
    "github.com/rs/zerolog"
)

const (
    activityTTL = 30 * time.Minute
    // presence is the most volatile thing we cache
    presenceTTL = 5 * time.Minute
)

type Client struct {
    token   string
    apiBase string
    http    *http.Client
    cache   *cache.Cache
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger, c *cache.Cache) *Client {
    return &Client{
        token:   cfg.SlackToken,
        apiBase: "https://slack.com/api/",
        http:    &http.Client{Timeout: cfg.HTTPTimeout},
        cache:   c,
        log:     log,
    }
}

func (c *Client) Configured() bool { return c.token != "" }

func (c *Client) get(ctx context.Context, method string, q url.Values, out any) error {
    if c.token == "" { return errors.New("slack: missing token") }
    u := c.apiBase + method
    if len(q) > 0 { u = u + "?" + q.Encode() }
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
    if err != nil { return err }
    req.Header.Set("Authorization", "Bearer "+c.token)
    resp, err := c.http.Do(req)
    if err != nil { return err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 { return fmt.Errorf("slack %s status=%d", method, resp.StatusCode) }
    return json.NewDecoder(resp.Body).Decode(out)
}

type message struct {
    Type string `json:"type"`
    User string `json:"user"`
    TS   string `json:"ts"`
    Bot  string `json:"bot_id"`
}

// ChannelActivity summarizes human messages in a channel over the trailing
// window. Bot traffic is excluded.
func (c *Client) ChannelActivity(ctx context.Context, channelID string, days int) (*domain.TeamActivity, error) {
    if days <= 0 { days = 30 }
    key := fmt.Sprintf("slack:channel:%s:%d", channelID, days)
    var out domain.TeamActivity
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return &out, nil }
    }
    oldest := time.Now().Add(-time.Duration(days) * 24 * time.Hour).Unix()
    q := url.Values{}
    q.Set("channel", channelID)
    q.Set("oldest", strconv.FormatInt(oldest, 10))
    q.Set("limit", "1000")
    var payload struct {
        OK       bool      `json:"ok"`
        Error    string    `json:"error"`
        Messages []message `json:"messages"`
    }
    if err := c.get(ctx, "conversations.history", q, &payload); err != nil { return nil, err }
    if !payload.OK { return nil, fmt.Errorf("slack conversations.history: %s", payload.Error) }

    byUser := map[string]int{}
    var stamps []time.Time
    total := 0
    for _, m := range payload.Messages {
        if m.Type != "message" || m.Bot != "" { continue }
        user := m.User
        if user == "" { user = "unknown" }
        byUser[user]++
        total++
        if sec, err := strconv.ParseFloat(m.TS, 64); err == nil {
            stamps = append(stamps, time.Unix(int64(sec), 0).UTC())
        }
    }
    out = domain.TeamActivity{
        TotalMessages:         total,
        MessagesByUser:        byUser,
        DailyActivity:         metrics.DailyMessageActivity(stamps, days),
        AverageMessagesPerDay: int(float64(total)/float64(days) + 0.5),
    }
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, activityTTL) }
    return &out, nil
}

func (c *Client) UserPresence(ctx context.Context, userID string) (*domain.Presence, error) {
    key := "slack:presence:" + userID
    var out domain.Presence
    if b, ok := c.cache.Get(key); ok {
        if json.Unmarshal(b, &out) == nil { return &out, nil }
    }
    q := url.Values{}
    q.Set("user", userID)
    var payload struct {
        OK           bool   `json:"ok"`
        Error        string `json:"error"`
        Presence     string `json:"presence"`
        Online       bool   `json:"online"`
        LastActivity int64  `json:"last_activity"`
    }
    if err := c.get(ctx, "users.getPresence", q, &payload); err != nil { return nil, err }
    if !payload.OK { return nil, fmt.Errorf("slack users.getPresence: %s", payload.Error) }
    out = domain.Presence{Presence: payload.Presence, Online: payload.Online, LastActivity: payload.LastActivity}
    if b, err := json.Marshal(out); err == nil { c.cache.Set(key, b, presenceTTL) }
    return &out, nil
}
