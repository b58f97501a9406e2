/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
    "math"

    "github.com/CrashBytes/team-pulse/internal/domain"
)

// HealthScore collapses the mobile telemetry into one 0-100 number. Crash-free
// rate dominates; slow cold start and weak week-one retention each shave a few
// percent off.
func HealthScore(crash *domain.CrashSummary, perf *domain.PerformanceSnapshot, analytics *domain.AnalyticsSnapshot) int {
    score := 100.0
    if crash != nil { score *= crash.CrashFreeRate / 100 }
    if perf != nil && perf.AppStartTime.Average > 2.0 { score *= 0.97 }
    if analytics != nil && analytics.Retention.Day7 < 60 { score *= 0.98 }
    return int(math.Round(score))
}

// HealthRecommendations turns the same telemetry into operator-facing
// follow-ups. Empty input produces the all-clear message rather than nothing.
func HealthRecommendations(crash *domain.CrashSummary, perf *domain.PerformanceSnapshot, analytics *domain.AnalyticsSnapshot) []string {
    var recs []string
    if crash != nil && crash.CrashFreeRate < 99.5 {
        recs = append(recs, "Investigate top crash groups; crash-free rate is below target")
    }
    if perf != nil && perf.AppStartTime.Average > 1.8 {
        recs = append(recs, "Optimize app startup time")
    }
    if analytics != nil && analytics.Retention.Day7 < 65 {
        recs = append(recs, "Improve first-week onboarding retention")
    }
    if crash != nil && crash.TotalCrashes > 3 {
        recs = append(recs, "Focus on crash stability improvements")
    }
    if len(recs) == 0 {
        recs = append(recs, "App health is excellent - maintain quality standards")
    }
    return recs
}
