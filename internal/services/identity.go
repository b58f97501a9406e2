/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "strings"

    "github.com/CrashBytes/team-pulse/internal/domain"
)

// Identity resolution is best-effort string matching across sources. There is
// no directory lookup; a developer who uses different names in the tracker and
// in git will appear twice. Precedence per source: merge-request author login,
// then email local part, then raw display name.

func identityFromAssignee(a *domain.Assignee) (username, name string) {
    if a == nil || a.DisplayName == "" { return "", "" }
    if a.Email != "" {
        return emailLocalPart(a.Email), a.DisplayName
    }
    return a.DisplayName, a.DisplayName
}

func identityFromCommit(c domain.Commit) (username, name string) {
    if c.AuthorName == "" { return "", "" }
    if strings.Contains(c.AuthorEmail, "@") {
        return emailLocalPart(c.AuthorEmail), c.AuthorName
    }
    return c.AuthorName, c.AuthorName
}

func emailLocalPart(email string) string {
    if i := strings.IndexByte(email, '@'); i > 0 { return email[:i] }
    return email
}
