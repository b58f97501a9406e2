/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */

// Package metrics holds the pure calculators behind the dashboard panels.
// Everything here is deterministic given its inputs; all I/O lives in the
// adapters and the aggregator.
package metrics

import (
    "fmt"
    "math"
    "sort"
    "time"

    "github.com/CrashBytes/team-pulse/internal/domain"
)

// Completed reports whether an issue sits in the "done" status category.
func Completed(i domain.Issue) bool { return i.StatusCategory == "done" }

func points(i domain.Issue, fallback float64) float64 {
    if i.StoryPoints == nil { return fallback }
    return *i.StoryPoints
}

// SprintTotals sums a sprint's issues. An issue with no estimate counts as one
// point here; sprint scope is assumed groomed, so a missing estimate is treated
// as a small ticket rather than a free one.
func SprintTotals(issues []domain.Issue) domain.SprintMetrics {
    var m domain.SprintMetrics
    for _, i := range issues {
        m.TotalIssues++
        m.TotalStoryPoints += points(i, 1)
        if Completed(i) {
            m.CompletedIssues++
            m.CompletedStoryPoints += points(i, 1)
        }
    }
    m.RemainingStoryPoints = m.TotalStoryPoints - m.CompletedStoryPoints
    return m
}

// WindowTotals sums issues over an arbitrary date window. Unlike SprintTotals,
// an issue with no estimate counts as zero so unestimated backlog noise does
// not inflate velocity.
func WindowTotals(issues []domain.Issue) domain.WindowMetrics {
    var m domain.WindowMetrics
    for _, i := range issues {
        m.TotalIssues++
        m.TotalStoryPoints += points(i, 0)
        if Completed(i) {
            m.CompletedIssues++
            m.CompletedStoryPoints += points(i, 0)
        }
    }
    m.RemainingStoryPoints = m.TotalStoryPoints - m.CompletedStoryPoints
    return m
}

// GroupByAssignee counts issues per assignee display name. Unassigned issues
// land in the "Unassigned" bucket.
func GroupByAssignee(issues []domain.Issue) map[string]int {
    out := map[string]int{}
    for _, i := range issues {
        name := "Unassigned"
        if i.Assignee != nil && i.Assignee.DisplayName != "" { name = i.Assignee.DisplayName }
        out[name]++
    }
    return out
}

func GroupByStatus(issues []domain.Issue) map[string]int {
    out := map[string]int{}
    for _, i := range issues { out[i.StatusName]++ }
    return out
}

func GroupByPriority(issues []domain.Issue) map[string]int {
    out := map[string]int{}
    for _, i := range issues {
        p := i.Priority
        if p == "" { p = "None" }
        out[p]++
    }
    return out
}

// VelocityTrend buckets completed story points by the week the issue was last
// updated, sorted by week key.
func VelocityTrend(issues []domain.Issue) []domain.VelocityPoint {
    weekly := map[string]float64{}
    for _, i := range issues {
        if !Completed(i) || i.Updated == nil { continue }
        weekly[weekKey(*i.Updated)] += points(i, 0)
    }
    keys := make([]string, 0, len(weekly))
    for k := range weekly { keys = append(keys, k) }
    sort.Strings(keys)
    out := make([]domain.VelocityPoint, 0, len(keys))
    for _, k := range keys {
        out = append(out, domain.VelocityPoint{Week: k, Points: weekly[k]})
    }
    return out
}

// weekKey is a naive year-week label, week = ceil(dayOfYear/7). It is not ISO
// 8601; it only needs to sort lexically within a year.
func weekKey(t time.Time) string {
    week := (t.YearDay() + 6) / 7
    return fmt.Sprintf("%d-W%02d", t.Year(), week)
}

// AverageCycleTime is the mean created-to-last-update interval in whole days
// over completed issues. Returns 0 when nothing is completed.
func AverageCycleTime(issues []domain.Issue) int {
    var total time.Duration
    n := 0
    for _, i := range issues {
        if !Completed(i) || i.Created == nil || i.Updated == nil { continue }
        total += i.Updated.Sub(*i.Created)
        n++
    }
    if n == 0 { return 0 }
    days := total.Hours() / 24 / float64(n)
    return int(math.Round(days))
}

// DailyProgress buckets created and completed issue counts per calendar day
// over the trailing window, oldest first. Records outside the window are
// dropped.
func DailyProgress(issues []domain.Issue, days int) []domain.DailyProgress {
    type bucket struct{ created, completed int }
    byDate := map[string]*bucket{}
    now := time.Now().UTC()
    for i := 0; i < days; i++ {
        d := now.AddDate(0, 0, -i).Format("2006-01-02")
        byDate[d] = &bucket{}
    }
    for _, i := range issues {
        if i.Created != nil {
            if b, ok := byDate[i.Created.UTC().Format("2006-01-02")]; ok { b.created++ }
        }
        if Completed(i) && i.Updated != nil {
            if b, ok := byDate[i.Updated.UTC().Format("2006-01-02")]; ok { b.completed++ }
        }
    }
    keys := make([]string, 0, len(byDate))
    for k := range byDate { keys = append(keys, k) }
    sort.Strings(keys)
    out := make([]domain.DailyProgress, 0, len(keys))
    for _, k := range keys {
        b := byDate[k]
        out = append(out, domain.DailyProgress{Date: k, Created: b.created, Completed: b.completed})
    }
    return out
}

// Burndown builds the sprint burndown series for days 0..min(totalDays, 14).
// The ideal line decays linearly from the total; the actual value is set only
// at today's day index so the chart plots a single observed point.
func Burndown(totalPoints, remainingPoints float64, totalDays, daysRemaining int) []domain.BurndownPoint {
    if totalDays <= 0 { return nil }
    last := totalDays
    if last > 14 { last = 14 }
    out := make([]domain.BurndownPoint, 0, last+1)
    for day := 0; day <= last; day++ {
        p := domain.BurndownPoint{
            Day:            day,
            IdealRemaining: math.Max(0, totalPoints*(1-float64(day)/float64(totalDays))),
        }
        if day == totalDays-daysRemaining {
            r := remainingPoints
            p.ActualRemaining = &r
        }
        out = append(out, p)
    }
    return out
}
