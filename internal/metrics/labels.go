/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
    "math"
    "time"
)

// FilterLabel maps a project filter to its display label. Unknown filters fall
// back to "All Projects".
func FilterLabel(filter string) string {
    switch filter {
    case "mobile":
        return "Mobile Projects"
    case "web":
        return "Web Projects"
    default:
        return "All Projects"
    }
}

// DateRangeLabel names the window spanned by start and end. A missing bound
// means the default trailing month.
func DateRangeLabel(start, end *time.Time) string {
    if start == nil || end == nil { return "Last 30 Days" }
    days := int(math.Ceil(end.Sub(*start).Hours() / 24))
    switch {
    case days <= 35:
        return "Last 30 Days"
    case days <= 100:
        return "Last 3 Months"
    case days <= 190:
        return "Last 6 Months"
    case days <= 370:
        return "Last Year"
    default:
        return "All Time"
    }
}
