/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
    "testing"
    "time"

    "github.com/CrashBytes/team-pulse/internal/domain"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func tp(s string) *time.Time {
    t, err := time.Parse(time.RFC3339, s)
    if err != nil { panic(err) }
    return &t
}

func TestSprintTotals_MissingEstimateCountsAsOne(t *testing.T) {
    issues := []domain.Issue{
        {Key: "T-1", StatusCategory: "done", StoryPoints: fp(5)},
        {Key: "T-2", StatusCategory: "indeterminate", StoryPoints: fp(3)},
        {Key: "T-3", StatusCategory: "done"}, // no estimate
    }
    m := SprintTotals(issues)
    assert.Equal(t, 3, m.TotalIssues)
    assert.Equal(t, 2, m.CompletedIssues)
    assert.Equal(t, 9.0, m.TotalStoryPoints)
    assert.Equal(t, 6.0, m.CompletedStoryPoints)
    assert.Equal(t, 3.0, m.RemainingStoryPoints)
}

func TestWindowTotals_MissingEstimateCountsAsZero(t *testing.T) {
    issues := []domain.Issue{
        {Key: "T-1", StatusCategory: "done", StoryPoints: fp(5)},
        {Key: "T-3", StatusCategory: "done"}, // no estimate
    }
    m := WindowTotals(issues)
    assert.Equal(t, 2, m.TotalIssues)
    assert.Equal(t, 2, m.CompletedIssues)
    assert.Equal(t, 5.0, m.TotalStoryPoints)
    assert.Equal(t, 5.0, m.CompletedStoryPoints)
}

func TestCompleted_OnlyDoneCategoryCounts(t *testing.T) {
    assert.True(t, Completed(domain.Issue{StatusCategory: "done"}))
    assert.False(t, Completed(domain.Issue{StatusCategory: "indeterminate"}))
    assert.False(t, Completed(domain.Issue{StatusCategory: "new"}))
    // status name is not enough; the category key decides
    assert.False(t, Completed(domain.Issue{StatusName: "Done", StatusCategory: "indeterminate"}))
}

func TestGroupByAssignee_UnassignedBucket(t *testing.T) {
    issues := []domain.Issue{
        {Assignee: &domain.Assignee{DisplayName: "Jordan Lee"}},
        {Assignee: &domain.Assignee{DisplayName: "Jordan Lee"}},
        {Assignee: nil},
        {Assignee: &domain.Assignee{}},
    }
    got := GroupByAssignee(issues)
    assert.Equal(t, 2, got["Jordan Lee"])
    assert.Equal(t, 2, got["Unassigned"])
}

func TestGroupByPriority_EmptyIsNone(t *testing.T) {
    got := GroupByPriority([]domain.Issue{{Priority: "High"}, {Priority: ""}})
    assert.Equal(t, 1, got["High"])
    assert.Equal(t, 1, got["None"])
}

func TestVelocityTrend_WeekKeysAndOrdering(t *testing.T) {
    issues := []domain.Issue{
        {StatusCategory: "done", StoryPoints: fp(3), Updated: tp("2025-01-02T10:00:00Z")},
        {StatusCategory: "done", StoryPoints: fp(2), Updated: tp("2025-01-05T10:00:00Z")},
        {StatusCategory: "done", StoryPoints: fp(8), Updated: tp("2025-03-10T10:00:00Z")},
        {StatusCategory: "indeterminate", StoryPoints: fp(13), Updated: tp("2025-03-10T10:00:00Z")},
        {StatusCategory: "done", StoryPoints: fp(1)}, // no updated timestamp
    }
    got := VelocityTrend(issues)
    require.Len(t, got, 2)
    // Jan 2 is day 2, Jan 5 is day 5; both land in week 1.
    assert.Equal(t, "2025-W01", got[0].Week)
    assert.Equal(t, 5.0, got[0].Points)
    // Mar 10 is day 69, week 10.
    assert.Equal(t, "2025-W10", got[1].Week)
    assert.Equal(t, 8.0, got[1].Points)
}

func TestAverageCycleTime(t *testing.T) {
    issues := []domain.Issue{
        {StatusCategory: "done", Created: tp("2025-06-01T00:00:00Z"), Updated: tp("2025-06-05T00:00:00Z")},
        {StatusCategory: "done", Created: tp("2025-06-01T00:00:00Z"), Updated: tp("2025-06-11T00:00:00Z")},
        {StatusCategory: "indeterminate", Created: tp("2025-06-01T00:00:00Z"), Updated: tp("2025-06-30T00:00:00Z")},
    }
    assert.Equal(t, 7, AverageCycleTime(issues))
    assert.Equal(t, 0, AverageCycleTime(nil))
}

func TestDailyProgress_WindowAndOrdering(t *testing.T) {
    now := time.Now().UTC()
    yesterday := now.AddDate(0, 0, -1)
    ancient := now.AddDate(0, 0, -90)
    issues := []domain.Issue{
        {StatusCategory: "done", Created: &yesterday, Updated: &yesterday},
        {StatusCategory: "new", Created: &yesterday},
        {StatusCategory: "done", Created: &ancient, Updated: &ancient}, // outside window
    }
    got := DailyProgress(issues, 7)
    require.Len(t, got, 7)
    for i := 1; i < len(got); i++ {
        assert.Less(t, got[i-1].Date, got[i].Date)
    }
    var created, completed int
    for _, d := range got {
        created += d.Created
        completed += d.Completed
    }
    assert.Equal(t, 2, created)
    assert.Equal(t, 1, completed)
}

func TestBurndown_SparseActualPoint(t *testing.T) {
    got := Burndown(20, 12, 10, 4)
    require.Len(t, got, 11)
    assert.Equal(t, 20.0, got[0].IdealRemaining)
    assert.Equal(t, 0.0, got[10].IdealRemaining)
    for i, p := range got {
        if i == 6 {
            require.NotNil(t, p.ActualRemaining)
            assert.Equal(t, 12.0, *p.ActualRemaining)
            continue
        }
        assert.Nil(t, p.ActualRemaining, "day %d", i)
    }
}

func TestBurndown_CapsAtFourteenDays(t *testing.T) {
    got := Burndown(30, 30, 21, 21)
    require.Len(t, got, 15)
    // today is day 0 with the full total remaining
    require.NotNil(t, got[0].ActualRemaining)
    assert.Equal(t, 30.0, *got[0].ActualRemaining)
}

func TestBurndown_ZeroLengthSprint(t *testing.T) {
    assert.Nil(t, Burndown(10, 10, 0, 0))
}
