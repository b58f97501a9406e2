/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"

    "github.com/CrashBytes/team-pulse/internal/domain"
)

// StaticQuality serves the code-quality panel from a fixed per-filter table.
// It satisfies the same QualitySource interface as the live sonarqube client,
// so swapping in live data is a wiring change in main, not a code change here.
type StaticQuality struct{}

func (StaticQuality) Metrics(_ context.Context, filter string) (*domain.CodeQuality, error) {
    switch filter {
    case "mobile":
        return &domain.CodeQuality{Coverage: 82.3, Bugs: 1, Vulnerabilities: 0, MaintainabilityRating: "A"}, nil
    case "web":
        return &domain.CodeQuality{Coverage: 74.8, Bugs: 3, Vulnerabilities: 2, MaintainabilityRating: "B"}, nil
    default:
        return &domain.CodeQuality{Coverage: 78.5, Bugs: 2, Vulnerabilities: 1, MaintainabilityRating: "B"}, nil
    }
}
