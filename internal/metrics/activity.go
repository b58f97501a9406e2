/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
    "sort"
    "time"

    "github.com/CrashBytes/team-pulse/internal/domain"
)

// AuthorPRs is one author's merge-request tally.
type AuthorPRs struct {
    Count  int `json:"count"`
    Merged int `json:"merged"`
}

// GroupPRsByAuthor tallies merge requests per author username.
func GroupPRsByAuthor(mrs []domain.MergeRequest) map[string]AuthorPRs {
    out := map[string]AuthorPRs{}
    for _, mr := range mrs {
        a := out[mr.AuthorUsername]
        a.Count++
        if mr.MergedAt != nil { a.Merged++ }
        out[mr.AuthorUsername] = a
    }
    return out
}

// DailyPRActivity counts merge requests created per calendar day over the
// trailing window, oldest first.
func DailyPRActivity(mrs []domain.MergeRequest, days int) []domain.DailyCount {
    stamps := make([]time.Time, 0, len(mrs))
    for _, mr := range mrs {
        if mr.CreatedAt != nil { stamps = append(stamps, *mr.CreatedAt) }
    }
    return dailyBuckets(stamps, days)
}

// DailyMessageActivity counts chat messages per calendar day over the trailing
// window, oldest first.
func DailyMessageActivity(stamps []time.Time, days int) []domain.DailyCount {
    return dailyBuckets(stamps, days)
}

func dailyBuckets(stamps []time.Time, days int) []domain.DailyCount {
    byDate := map[string]int{}
    now := time.Now().UTC()
    for i := 0; i < days; i++ {
        byDate[now.AddDate(0, 0, -i).Format("2006-01-02")] = 0
    }
    for _, t := range stamps {
        d := t.UTC().Format("2006-01-02")
        if _, ok := byDate[d]; ok { byDate[d]++ }
    }
    keys := make([]string, 0, len(byDate))
    for k := range byDate { keys = append(keys, k) }
    sort.Strings(keys)
    out := make([]domain.DailyCount, 0, len(keys))
    for _, k := range keys {
        out = append(out, domain.DailyCount{Date: k, Count: byDate[k]})
    }
    return out
}
