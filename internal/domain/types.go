/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import "time"

// Sprint is one board iteration, tagged with the board it came from so merged
// multi-board lists stay attributable.
type Sprint struct {
    ID          int64      `json:"id"`
    Name        string     `json:"name"`
    State       string     `json:"state"` // active | future | closed
    StartDate   *time.Time `json:"startDate"`
    EndDate     *time.Time `json:"endDate"`
    BoardID     string     `json:"boardId"`
    BoardName   string     `json:"boardName"`
    DisplayName string     `json:"displayName"`
    Category    string     `json:"category"`
}

// Issue is the narrow issue-tracker record the dashboard needs. StoryPoints is
// nil when the estimate field is absent; calculators apply the documented
// fallback for their context.
type Issue struct {
    Key            string
    Summary        string
    StatusName     string
    StatusCategory string
    Priority       string
    StoryPoints    *float64
    Assignee       *Assignee
    Created        *time.Time
    Updated        *time.Time
}

type Assignee struct {
    DisplayName string
    Email       string
}

type MergeRequest struct {
    IID            int64
    Title          string
    State          string // merged | opened | closed
    AuthorUsername string
    AuthorName     string
    CreatedAt      *time.Time
    MergedAt       *time.Time
    ClosedAt       *time.Time
    UpdatedAt      *time.Time
}

type Commit struct {
    ID          string
    AuthorName  string
    AuthorEmail string
    CreatedAt   *time.Time
}

type ProjectInfo struct {
    Name           string
    LastActivityAt string
}

// ProjectRollup is the per-project source-control panel.
type ProjectRollup struct {
    Name         string `json:"name"`
    Display      string `json:"display"`
    Category     string `json:"category"`
    TotalMRs     int    `json:"totalMRs"`
    MergedMRs    int    `json:"mergedMRs"`
    OpenMRs      int    `json:"openMRs"`
    TotalCommits int    `json:"totalCommits"`
    LastActivity string `json:"lastActivity"`
}

type GitLabSummary struct {
    TotalMRs  int                      `json:"totalMRs"`
    MergedMRs int                      `json:"mergedMRs"`
    OpenMRs   int                      `json:"openMRs"`
    Commits   CommitTotals             `json:"commits"`
    Projects  map[string]ProjectRollup `json:"projects"`
    Filter    string                   `json:"filter"`
}

type CommitTotals struct {
    Total int `json:"total"`
}

// SprintMetrics are the selected-sprint issue totals (missing estimate counts
// as one point in this context).
type SprintMetrics struct {
    TotalIssues          int     `json:"totalIssues"`
    CompletedIssues      int     `json:"completedIssues"`
    TotalStoryPoints     float64 `json:"totalStoryPoints"`
    CompletedStoryPoints float64 `json:"completedStoryPoints"`
    RemainingStoryPoints float64 `json:"remainingStoryPoints"`
}

// WindowMetrics are team totals over the requested date window (missing
// estimate counts as zero points in this context).
type WindowMetrics struct {
    TotalIssues          int     `json:"totalIssues"`
    CompletedIssues      int     `json:"completedIssues"`
    TotalStoryPoints     float64 `json:"totalStoryPoints"`
    CompletedStoryPoints float64 `json:"completedStoryPoints"`
    RemainingStoryPoints float64 `json:"remainingStoryPoints"`
}

type CurrentSprint struct {
    ID                 int64  `json:"id"`
    Name               string `json:"name"`
    BoardName          string `json:"boardName"`
    State              string `json:"state"`
    Category           string `json:"category"`
    DaysRemaining      int    `json:"daysRemaining"`
    ProgressPercentage int    `json:"progressPercentage"`
}

// BurndownPoint.ActualRemaining is sparse: populated only on the single day
// index that corresponds to today, nil everywhere else. Consumers must not
// treat it as a per-day history.
type BurndownPoint struct {
    Day             int      `json:"day"`
    IdealRemaining  float64  `json:"idealRemaining"`
    ActualRemaining *float64 `json:"actualRemaining"`
}

type JiraPanel struct {
    SprintMetrics
    CurrentSprint *CurrentSprint  `json:"currentSprint,omitempty"`
    BurndownChart []BurndownPoint `json:"burndownChart,omitempty"`
    Error         string          `json:"error,omitempty"`
}

// Developer is one resolved identity with accumulators from every source.
// Identity resolution is best-effort string matching; see services.ResolveIdentity.
type Developer struct {
    Name               string  `json:"name"`
    Username           string  `json:"gitlabUsername"`
    TotalPRs           int     `json:"totalPRs"`
    MergedPRs          int     `json:"mergedPRs"`
    TotalCommits       int     `json:"totalCommits"`
    JiraTickets        int     `json:"jiraTickets"`
    JiraPoints         float64 `json:"jiraPoints"`
    PRDensity          float64 `json:"prDensity"`
    PRMergeRate        float64 `json:"prMergeRate"`
    TotalContributions int     `json:"totalContributions"`
}

type CrashGroup struct {
    Error       string `json:"error"`
    Occurrences int    `json:"occurrences"`
}

type CrashSummary struct {
    CrashFreeRate float64      `json:"crashFreeRate"`
    TotalCrashes  int          `json:"totalCrashes"`
    NewCrashes    int          `json:"newCrashes"`
    AffectedUsers int          `json:"affectedUsers"`
    TopCrashes    []CrashGroup `json:"topCrashes,omitempty"`
    Trend         string       `json:"trend,omitempty"`
}

type PerfMetric struct {
    Average float64 `json:"average"`
    P95     float64 `json:"p95,omitempty"`
    Trend   string  `json:"trend,omitempty"`
}

type PerformanceSnapshot struct {
    AppStartTime     PerfMetric `json:"appStartTime"`
    NetworkLatency   PerfMetric `json:"networkLatency"`
    ScreenRenderTime PerfMetric `json:"screenRenderTime"`
    APIResponseTime  PerfMetric `json:"apiResponseTime"`
}

type ActiveUsers struct {
    Daily   int    `json:"daily"`
    Monthly int    `json:"monthly"`
    Trend   string `json:"trend,omitempty"`
}

type SessionMetrics struct {
    AverageSessionDuration float64 `json:"averageSessionDuration"`
    SessionsPerUser        float64 `json:"sessionsPerUser"`
    BounceRate             float64 `json:"bounceRate"`
}

type Retention struct {
    Day1  float64 `json:"day1"`
    Day7  float64 `json:"day7"`
    Day30 float64 `json:"day30"`
}

type AnalyticsSnapshot struct {
    ActiveUsers    ActiveUsers    `json:"activeUsers"`
    SessionMetrics SessionMetrics `json:"sessionMetrics"`
    Retention      Retention      `json:"retention"`
}

// MobileHealth is the optional mobile-app panel. IsDemo marks the whole
// payload as synthetic so the live/demo boundary is never ambiguous.
type MobileHealth struct {
    Score           int                  `json:"score"`
    Crashlytics     *CrashSummary        `json:"crashlytics"`
    Performance     *PerformanceSnapshot `json:"performance"`
    Analytics       *AnalyticsSnapshot   `json:"analytics"`
    Recommendations []string             `json:"recommendations"`
    IsDemo          bool                 `json:"isDemo"`
    IsLiveData      bool                 `json:"isLiveData"`
}

type CodeQuality struct {
    Coverage              float64 `json:"coverage"`
    Bugs                  int     `json:"bugs"`
    Vulnerabilities       int     `json:"vulnerabilities"`
    MaintainabilityRating string  `json:"maintainabilityRating"`
}

type VulnCounts struct {
    High    int `json:"high"`
    Medium  int `json:"medium"`
    Low     int `json:"low"`
    Total   int `json:"total"`
    Fixable int `json:"fixable"`
}

type VulnerabilitySummary struct {
    TotalProjects   int            `json:"totalProjects"`
    SampledProjects int            `json:"sampledProjects"`
    Vulnerabilities VulnCounts     `json:"vulnerabilities"`
    ProjectTypes    map[string]int `json:"projectTypes"`
}

type DailyCount struct {
    Date  string `json:"date"`
    Count int    `json:"count"`
}

type TeamActivity struct {
    TotalMessages         int            `json:"totalMessages"`
    MessagesByUser        map[string]int `json:"messagesByUser"`
    DailyActivity         []DailyCount   `json:"dailyActivity"`
    AverageMessagesPerDay int            `json:"averageMessagesPerDay"`
}

type Presence struct {
    Presence     string `json:"presence"`
    Online       bool   `json:"online"`
    LastActivity int64  `json:"lastActivity,omitempty"`
}

type DateRange struct {
    Start string `json:"start,omitempty"`
    End   string `json:"end,omitempty"`
    Label string `json:"label"`
}

// SourceError records one isolated source failure; the snapshot is still 200.
type SourceError struct {
    Source  string `json:"source"`
    Message string `json:"message"`
}

// DashboardSnapshot is the root aggregate, one per request: a pure function of
// (filter, window, selected sprint id) given external state at fetch time.
type DashboardSnapshot struct {
    GitLab           *GitLabSummary        `json:"gitlab"`
    Firebase         *MobileHealth         `json:"firebase"`
    Jira             *JiraPanel            `json:"jira"`
    JiraDateRange    *WindowMetrics        `json:"jiraDateRange,omitempty"`
    Developers       []Developer           `json:"developers"`
    AvailableSprints []Sprint              `json:"availableSprints"`
    SelectedSprint   *Sprint               `json:"selectedSprint,omitempty"`
    Filter           string                `json:"filter"`
    FilterLabel      string                `json:"filterLabel"`
    DateRange        DateRange             `json:"dateRange"`
    Sonarqube        *CodeQuality          `json:"sonarqube"`
    Snyk             *VulnerabilitySummary `json:"snyk,omitempty"`
    Slack            *TeamActivity         `json:"slack,omitempty"`
    Message          string                `json:"message"`
    Errors           []SourceError         `json:"errors"`
}

type DailyProgress struct {
    Date      string `json:"date"`
    Created   int    `json:"created"`
    Completed int    `json:"completed"`
}

type VelocityPoint struct {
    Week   string  `json:"week"`
    Points float64 `json:"points"`
}

// IndividualReport is the per-developer endpoint payload.
type IndividualReport struct {
    UserID string          `json:"userId"`
    Jira   *IndividualJira `json:"jira"`
    Slack  *Presence       `json:"slack"`
    Errors []SourceError   `json:"errors"`
}

type IndividualJira struct {
    TotalTickets      int             `json:"totalTickets"`
    CompletedTickets  int             `json:"completedTickets"`
    TotalStoryPoints  float64         `json:"totalStoryPoints"`
    AverageCycleTime  int             `json:"averageCycleTime"`
    TicketsByPriority map[string]int  `json:"ticketsByPriority"`
    DailyProgress     []DailyProgress `json:"dailyProgress"`
}
