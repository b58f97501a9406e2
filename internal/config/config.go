/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
    "encoding/json"
    "log"
    "os"
    "sort"
    "strconv"
    "strings"
    "time"
)

// ProjectDef describes one source-control project from config.json.
type ProjectDef struct {
    Display  string `json:"display"`
    Category string `json:"category"`
}

// BoardDef describes one issue-tracker board from config.json.
type BoardDef struct {
    Name     string `json:"name"`
    Category string `json:"category"`
}

type Config struct {
    AppEnv   string
    TZ       string
    HTTPAddr string

    JiraBaseURL string
    JiraEmail   string
    JiraToken   string

    GitLabURL   string
    GitLabToken string

    FirebaseCredentialsFile string
    FirebaseCredentialsJSON string

    SonarBaseURL    string
    SonarToken      string
    SonarProjectKey string

    SnykToken string
    SnykOrgID string

    SlackToken     string
    SlackChannelID string

    ConfigFile string
    Projects   map[string]ProjectDef
    Boards     map[string]BoardDef

    HTTPTimeout time.Duration
    WarmCron    string
    WarmEnabled bool
}

func getenv(key, def string) string {
    v := os.Getenv(key)
    if v == "" { return def }
    return v
}

func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" { return def }
    d, err := time.ParseDuration(v)
    if err != nil { return def }
    return d
}

func boolean(key string, def bool) bool {
    v := os.Getenv(key)
    if v == "" { return def }
    b, err := strconv.ParseBool(v)
    if err != nil { return def }
    return b
}

func Load() Config {
    cfg := Config{
        AppEnv:   getenv("APP_ENV", "dev"),
        TZ:       getenv("APP_TZ", "UTC"),
        HTTPAddr: getenv("HTTP_ADDR", ":5001"),

        JiraBaseURL: strings.TrimRight(getenv("JIRA_HOST", ""), "/"),
        JiraEmail:   getenv("JIRA_EMAIL", ""),
        JiraToken:   getenv("JIRA_TOKEN", ""),

        GitLabURL:   strings.TrimRight(getenv("GITLAB_URL", ""), "/"),
        GitLabToken: getenv("GITLAB_TOKEN", ""),

        FirebaseCredentialsFile: getenv("FIREBASE_SERVICE_ACCOUNT_FILE", ""),
        FirebaseCredentialsJSON: getenv("FIREBASE_SERVICE_ACCOUNT", ""),

        SonarBaseURL:    strings.TrimRight(getenv("SONARQUBE_URL", ""), "/"),
        SonarToken:      getenv("SONARQUBE_TOKEN", ""),
        SonarProjectKey: getenv("SONARQUBE_PROJECT", ""),

        SnykToken: getenv("SNYK_TOKEN", ""),
        SnykOrgID: getenv("SNYK_ORG_ID", ""),

        SlackToken:     getenv("SLACK_TOKEN", ""),
        SlackChannelID: getenv("SLACK_CHANNEL_ID", ""),

        ConfigFile: getenv("CONFIG_FILE", "config.json"),

        HTTPTimeout: dur("HTTP_TIMEOUT", 15*time.Second),
        WarmCron:    getenv("CACHE_WARM_CRON", "*/15 * * * *"),
        WarmEnabled: boolean("CACHE_WARM_ENABLED", false),
    }

    if loc, err := time.LoadLocation(cfg.TZ); err == nil {
        time.Local = loc
    } else {
        log.Printf("warning: cannot load TZ %s: %v", cfg.TZ, err)
    }

    cfg.Projects, cfg.Boards = loadDefinitions(cfg.ConfigFile)
    return cfg
}

// loadDefinitions reads the project/board mapping once at startup. A missing or
// broken file leaves both maps empty; the aggregation endpoint treats that as a
// hard configuration error rather than failing at startup.
func loadDefinitions(path string) (map[string]ProjectDef, map[string]BoardDef) {
    projects := map[string]ProjectDef{}
    boards := map[string]BoardDef{}
    data, err := os.ReadFile(path)
    if err != nil {
        log.Printf("warning: cannot read %s: %v", path, err)
        return projects, boards
    }
    var file struct {
        Projects map[string]ProjectDef `json:"projects"`
        Boards   map[string]BoardDef   `json:"boards"`
    }
    if err := json.Unmarshal(data, &file); err != nil {
        log.Printf("warning: invalid %s: %v", path, err)
        return projects, boards
    }
    if file.Projects != nil { projects = file.Projects }
    if file.Boards != nil { boards = file.Boards }
    return projects, boards
}

// ProjectIDs returns configured project ids in a fixed order so rollup
// accumulation stays deterministic across requests.
func (c Config) ProjectIDs() []string {
    out := make([]string, 0, len(c.Projects))
    for k := range c.Projects { out = append(out, k) }
    sortIDs(out)
    return out
}

// BoardIDs returns configured board ids in a fixed order.
func (c Config) BoardIDs() []string {
    out := make([]string, 0, len(c.Boards))
    for k := range c.Boards { out = append(out, k) }
    sortIDs(out)
    return out
}

// sortIDs orders numeric ids numerically and everything else lexically.
func sortIDs(ids []string) {
    sort.Slice(ids, func(i, j int) bool {
        a, errA := strconv.Atoi(ids[i])
        b, errB := strconv.Atoi(ids[j])
        if errA == nil && errB == nil { return a < b }
        return ids[i] < ids[j]
    })
}
