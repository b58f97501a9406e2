/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "errors"
    "fmt"
    "math"
    "sort"
    "sync"
    "time"

    "github.com/CrashBytes/team-pulse/internal/config"
    "github.com/CrashBytes/team-pulse/internal/domain"
    "github.com/CrashBytes/team-pulse/internal/metrics"
    "github.com/hashicorp/go-multierror"
    "github.com/rs/zerolog"
    "golang.org/x/sync/errgroup"
)

type JiraClient interface {
    Configured() bool
    BoardSprints(ctx context.Context, boardID, states string, maxResults int) ([]domain.Sprint, error)
    SprintIssues(ctx context.Context, sprintID int64) ([]domain.Issue, error)
    SearchIssues(ctx context.Context, jql string) ([]domain.Issue, error)
}

type GitLabClient interface {
    Configured() bool
    Project(ctx context.Context, projectID string) (*domain.ProjectInfo, error)
    MergeRequests(ctx context.Context, projectID string, since time.Time) ([]domain.MergeRequest, error)
    Commits(ctx context.Context, projectID string, since time.Time) ([]domain.Commit, error)
}

type MobileBackend interface {
    Configured() bool
    HealthScore(ctx context.Context) (*domain.MobileHealth, error)
}

type QualitySource interface {
    Metrics(ctx context.Context, filter string) (*domain.CodeQuality, error)
}

type VulnScanner interface {
    Configured() bool
    OrgSummary(ctx context.Context) (*domain.VulnerabilitySummary, error)
}

type ChatClient interface {
    Configured() bool
    ChannelActivity(ctx context.Context, channelID string, days int) (*domain.TeamActivity, error)
    UserPresence(ctx context.Context, userID string) (*domain.Presence, error)
}

// ErrConfigMissing means no projects or boards are defined. It is the only
// hard failure for a dashboard request; every source outage degrades instead.
var ErrConfigMissing = errors.New("no projects or boards configured")

type Service struct {
    cfg     config.Config
    log     zerolog.Logger
    jira    JiraClient
    gitlab  GitLabClient
    mobile  MobileBackend
    quality QualitySource
    vulns   VulnScanner
    chat    ChatClient
}

func New(cfg config.Config, log zerolog.Logger, jira JiraClient, gitlab GitLabClient, mobile MobileBackend, quality QualitySource, vulns VulnScanner, chat ChatClient) *Service {
    return &Service{cfg: cfg, log: log, jira: jira, gitlab: gitlab, mobile: mobile, quality: quality, vulns: vulns, chat: chat}
}

type OverviewQuery struct {
    Filter   string
    Start    *time.Time
    End      *time.Time
    SprintID int64
}

// projectActivity keeps one project's raw fetch so the developer rollup reuses
// it instead of refetching.
type projectActivity struct {
    id      string
    mrs     []domain.MergeRequest
    commits []domain.Commit
}

// Overview assembles one dashboard snapshot. Independent sources are fetched
// concurrently; a failing source lands in snap.Errors and leaves its panel
// empty, never failing the whole request. Accumulation order is fixed (boards
// and projects by sorted id, sprints by start date) so rollups are
// deterministic given deterministic source responses.
func (s *Service) Overview(ctx context.Context, q OverviewQuery) (*domain.DashboardSnapshot, error) {
    if len(s.cfg.Projects) == 0 || len(s.cfg.Boards) == 0 { return nil, ErrConfigMissing }
    filter := normalizeFilter(q.Filter)

    snap := &domain.DashboardSnapshot{
        Filter:      filter,
        FilterLabel: metrics.FilterLabel(filter),
        DateRange: domain.DateRange{
            Start: fmtDate(q.Start),
            End:   fmtDate(q.End),
            Label: metrics.DateRangeLabel(q.Start, q.End),
        },
        AvailableSprints: []domain.Sprint{},
        Developers:       []domain.Developer{},
        Errors:           []domain.SourceError{},
    }

    since := time.Now().UTC().AddDate(0, 0, -30)
    if q.Start != nil { since = *q.Start }

    var mu sync.Mutex
    addErr := func(source string, err error) {
        s.log.Error().Err(err).Str("source", source).Msg("source fetch failed")
        mu.Lock()
        snap.Errors = append(snap.Errors, domain.SourceError{Source: source, Message: err.Error()})
        mu.Unlock()
    }

    var (
        allSprints  []domain.Sprint
        gitProjects []projectActivity
    )

    // Plain errgroup, no derived context: one slow or failing source must not
    // cancel its siblings. Goroutines record errors and return nil.
    var g errgroup.Group
    g.Go(func() error {
        sprints, err := s.fetchSprints(ctx, filter)
        if err != nil { addErr("jira", err) }
        allSprints = sprints
        return nil
    })
    g.Go(func() error {
        snap.GitLab, gitProjects = s.fetchGitLab(ctx, filter, since, func(err error) { addErr("gitlab", err) })
        return nil
    })
    if filter != "web" && s.mobile != nil {
        g.Go(func() error {
            health, err := s.mobile.HealthScore(ctx)
            if err != nil { addErr("firebase", err); return nil }
            snap.Firebase = health
            return nil
        })
    }
    g.Go(func() error {
        cq, err := s.quality.Metrics(ctx, filter)
        if err != nil { addErr("sonarqube", err); return nil }
        snap.Sonarqube = cq
        return nil
    })
    if s.vulns != nil && s.vulns.Configured() {
        g.Go(func() error {
            sum, err := s.vulns.OrgSummary(ctx)
            if err != nil { addErr("snyk", err); return nil }
            snap.Snyk = sum
            return nil
        })
    }
    if s.chat != nil && s.chat.Configured() && s.cfg.SlackChannelID != "" {
        g.Go(func() error {
            act, err := s.chat.ChannelActivity(ctx, s.cfg.SlackChannelID, 30)
            if err != nil { addErr("slack", err); return nil }
            snap.Slack = act
            return nil
        })
    }
    g.Wait()

    // Developer rollups and window totals walk every sprint that intersects
    // the requested window, then every fetched project's activity. Computed
    // before sprint selection so the velocity-only degraded response still
    // carries them.
    windowTotals, developers := s.rollup(ctx, allSprints, gitProjects, q)
    snap.JiraDateRange = &windowTotals
    snap.Developers = developers

    for _, sp := range allSprints {
        if sp.State == "active" || sp.State == "future" {
            snap.AvailableSprints = append(snap.AvailableSprints, sp)
        }
    }

    target := selectSprint(snap.AvailableSprints, q.SprintID)
    if target == nil {
        snap.Jira = &domain.JiraPanel{Error: "No active or future sprints available"}
        snap.Message = "No active or future sprints found"
        return snap, nil
    }
    snap.SelectedSprint = target

    panel := &domain.JiraPanel{}
    issues, err := s.jira.SprintIssues(ctx, target.ID)
    if err != nil {
        addErr("jira", fmt.Errorf("sprint %d issues: %w", target.ID, err))
        panel.Error = "Failed to fetch sprint issues"
    } else {
        panel.SprintMetrics = metrics.SprintTotals(issues)
    }

    daysRemaining, totalDays := sprintDays(target, time.Now().UTC())
    progress := 0
    if panel.TotalStoryPoints > 0 {
        progress = int(math.Round(panel.CompletedStoryPoints / panel.TotalStoryPoints * 100))
    }
    panel.CurrentSprint = &domain.CurrentSprint{
        ID:                 target.ID,
        Name:               target.Name,
        BoardName:          target.BoardName,
        State:              target.State,
        Category:           target.Category,
        DaysRemaining:      daysRemaining,
        ProgressPercentage: progress,
    }
    panel.BurndownChart = metrics.Burndown(panel.TotalStoryPoints, panel.RemainingStoryPoints, totalDays, daysRemaining)
    snap.Jira = panel

    firebaseNote := ""
    if snap.Firebase != nil { firebaseNote = " (Firebase: Live Data)" }
    snap.Message = fmt.Sprintf("%s: Sprint %q on %s - %d days remaining%s [GitLab activity: %s]",
        snap.FilterLabel, target.Name, target.BoardName, daysRemaining, firebaseNote, snap.DateRange.Label)
    return snap, nil
}

// fetchSprints merges active, future and recent closed sprints across every
// board matching the filter, tagged with board identity, sorted by start date.
// Per-board failures are folded together; sprints from healthy boards survive.
func (s *Service) fetchSprints(ctx context.Context, filter string) ([]domain.Sprint, error) {
    var result *multierror.Error
    var out []domain.Sprint
    for _, boardID := range s.cfg.BoardIDs() {
        def := s.cfg.Boards[boardID]
        if filter != "all" && def.Category != filter { continue }
        seen := map[int64]bool{}
        for _, fetch := range []struct {
            states string
            max    int
        }{{"active,future", 50}, {"closed", 100}} {
            sprints, err := s.jira.BoardSprints(ctx, boardID, fetch.states, fetch.max)
            if err != nil {
                result = multierror.Append(result, fmt.Errorf("board %s (%s): %w", boardID, def.Name, err))
                continue
            }
            for _, sp := range sprints {
                if seen[sp.ID] { continue }
                seen[sp.ID] = true
                sp.BoardID = boardID
                sp.BoardName = def.Name
                sp.Category = def.Category
                sp.DisplayName = def.Name + ": " + sp.Name
                out = append(out, sp)
            }
        }
    }
    sort.SliceStable(out, func(i, j int) bool {
        return startOrZero(out[i]).Before(startOrZero(out[j]))
    })
    return out, result.ErrorOrNil()
}

// fetchGitLab walks matching projects in sorted id order, building per-project
// rollups plus aggregate totals and keeping the raw activity for the developer
// rollup. A failing project is reported and skipped; the summary covers
// whatever succeeded.
func (s *Service) fetchGitLab(ctx context.Context, filter string, since time.Time, report func(error)) (*domain.GitLabSummary, []projectActivity) {
    summary := &domain.GitLabSummary{Projects: map[string]domain.ProjectRollup{}, Filter: filter}
    var kept []projectActivity
    for _, projectID := range s.cfg.ProjectIDs() {
        def := s.cfg.Projects[projectID]
        if filter != "all" && def.Category != filter { continue }

        info, err := s.gitlab.Project(ctx, projectID)
        if err != nil {
            report(fmt.Errorf("project %s: %w", projectID, err))
            continue
        }
        mrs, err := s.gitlab.MergeRequests(ctx, projectID, since)
        if err != nil {
            report(fmt.Errorf("project %s merge requests: %w", projectID, err))
            continue
        }
        commits, err := s.gitlab.Commits(ctx, projectID, since)
        if err != nil {
            report(fmt.Errorf("project %s commits: %w", projectID, err))
            continue
        }

        merged, opened := 0, 0
        for _, mr := range mrs {
            switch mr.State {
            case "merged":
                merged++
            case "opened":
                opened++
            }
        }
        summary.TotalMRs += len(mrs)
        summary.MergedMRs += merged
        summary.Commits.Total += len(commits)
        summary.Projects[projectID] = domain.ProjectRollup{
            Name:         info.Name,
            Display:      def.Display,
            Category:     def.Category,
            TotalMRs:     len(mrs),
            MergedMRs:    merged,
            OpenMRs:      opened,
            TotalCommits: len(commits),
            LastActivity: info.LastActivityAt,
        }
        kept = append(kept, projectActivity{id: projectID, mrs: mrs, commits: commits})
    }
    summary.OpenMRs = summary.TotalMRs - summary.MergedMRs
    return summary, kept
}

// rollup builds the window-scoped team totals and per-developer accumulators.
// Tracker issues count points with a zero fallback here. A developer survives
// the final cut only with at least one merge request or tracker ticket, so
// commit-only identities (bots, squash artifacts) drop out.
func (s *Service) rollup(ctx context.Context, sprints []domain.Sprint, projects []projectActivity, q OverviewQuery) (domain.WindowMetrics, []domain.Developer) {
    devs := map[string]*domain.Developer{}
    var order []string
    ensure := func(username, name string) *domain.Developer {
        if d, ok := devs[username]; ok { return d }
        d := &domain.Developer{Name: name, Username: username}
        devs[username] = d
        order = append(order, username)
        return d
    }

    var win domain.WindowMetrics
    for _, sp := range sprints {
        if q.Start != nil && q.End != nil && sp.StartDate != nil && sp.EndDate != nil {
            if sp.StartDate.After(*q.End) || sp.EndDate.Before(*q.Start) { continue }
        }
        issues, err := s.jira.SprintIssues(ctx, sp.ID)
        if err != nil {
            s.log.Warn().Err(err).Int64("sprint", sp.ID).Msg("sprint issues fetch failed")
            continue
        }
        t := metrics.WindowTotals(issues)
        win.TotalIssues += t.TotalIssues
        win.CompletedIssues += t.CompletedIssues
        win.TotalStoryPoints += t.TotalStoryPoints
        win.CompletedStoryPoints += t.CompletedStoryPoints

        for _, issue := range issues {
            username, name := identityFromAssignee(issue.Assignee)
            if username == "" { continue }
            d := ensure(username, name)
            d.JiraTickets++
            if issue.StoryPoints != nil { d.JiraPoints += *issue.StoryPoints }
        }
    }
    win.RemainingStoryPoints = win.TotalStoryPoints - win.CompletedStoryPoints

    for _, pa := range projects {
        for _, mr := range pa.mrs {
            if mr.AuthorUsername == "" { continue }
            name := mr.AuthorName
            if name == "" { name = mr.AuthorUsername }
            d := ensure(mr.AuthorUsername, name)
            d.TotalPRs++
            if mr.State == "merged" { d.MergedPRs++ }
        }
        for _, c := range pa.commits {
            username, name := identityFromCommit(c)
            if username == "" { continue }
            ensure(username, name).TotalCommits++
        }
    }

    out := make([]domain.Developer, 0, len(order))
    for _, username := range order {
        d := devs[username]
        if d.TotalPRs == 0 && d.JiraTickets == 0 { continue }
        if d.TotalCommits > 0 {
            d.PRDensity = math.Round(float64(d.TotalPRs)/float64(d.TotalCommits)*100) / 100
        }
        if d.TotalPRs > 0 {
            d.PRMergeRate = float64(d.MergedPRs) / float64(d.TotalPRs)
        }
        d.TotalContributions = d.TotalPRs + d.TotalCommits + d.JiraTickets
        out = append(out, *d)
    }
    return win, out
}

// Individual reports one developer's recent activity: tracker rollup over the
// trailing window plus chat presence. Same isolation rules as Overview.
func (s *Service) Individual(ctx context.Context, userID string, days int) *domain.IndividualReport {
    if days <= 0 { days = 30 }
    rep := &domain.IndividualReport{UserID: userID, Errors: []domain.SourceError{}}

    var mu sync.Mutex
    addErr := func(source string, err error) {
        s.log.Error().Err(err).Str("source", source).Str("user", userID).Msg("individual fetch failed")
        mu.Lock()
        rep.Errors = append(rep.Errors, domain.SourceError{Source: source, Message: err.Error()})
        mu.Unlock()
    }

    var g errgroup.Group
    g.Go(func() error {
        jql := fmt.Sprintf("assignee = %q AND updated >= -%dd", userID, days)
        issues, err := s.jira.SearchIssues(ctx, jql)
        if err != nil { addErr("jira", err); return nil }
        w := metrics.WindowTotals(issues)
        rep.Jira = &domain.IndividualJira{
            TotalTickets:      w.TotalIssues,
            CompletedTickets:  w.CompletedIssues,
            TotalStoryPoints:  w.TotalStoryPoints,
            AverageCycleTime:  metrics.AverageCycleTime(issues),
            TicketsByPriority: metrics.GroupByPriority(issues),
            DailyProgress:     metrics.DailyProgress(issues, days),
        }
        return nil
    })
    if s.chat != nil && s.chat.Configured() {
        g.Go(func() error {
            p, err := s.chat.UserPresence(ctx, userID)
            if err != nil { addErr("slack", err); return nil }
            rep.Slack = p
            return nil
        })
    }
    g.Wait()
    return rep
}

// HealthStatus is the liveness payload. It reflects configuration only; no
// external call is made on the health path.
type HealthStatus struct {
    Status        string            `json:"status"`
    Timestamp     string            `json:"timestamp"`
    Services      map[string]string `json:"services"`
    Configuration map[string]int    `json:"configuration"`
}

func (s *Service) Status() HealthStatus {
    configured := func(ok bool) string {
        if ok { return "configured" }
        return "not configured"
    }
    svcs := map[string]string{
        "jira":      configured(s.jira != nil && s.jira.Configured()),
        "gitlab":    configured(s.gitlab != nil && s.gitlab.Configured()),
        "sonarqube": configured(s.quality != nil),
        "snyk":      configured(s.vulns != nil && s.vulns.Configured()),
        "slack":     configured(s.chat != nil && s.chat.Configured()),
    }
    if s.mobile != nil && s.mobile.Configured() {
        svcs["firebase"] = "configured"
    } else {
        svcs["firebase"] = "not available"
    }
    if len(s.cfg.Projects) > 0 && len(s.cfg.Boards) > 0 {
        svcs["config"] = "loaded"
    } else {
        svcs["config"] = "missing"
    }
    return HealthStatus{
        Status:    "ok",
        Timestamp: time.Now().UTC().Format(time.RFC3339),
        Services:  svcs,
        Configuration: map[string]int{
            "projects": len(s.cfg.Projects),
            "boards":   len(s.cfg.Boards),
        },
    }
}

func normalizeFilter(f string) string {
    switch f {
    case "mobile", "web":
        return f
    default:
        return "all"
    }
}

func selectSprint(available []domain.Sprint, sprintID int64) *domain.Sprint {
    if sprintID != 0 {
        for i := range available {
            if available[i].ID == sprintID { return &available[i] }
        }
    }
    for _, state := range []string{"active", "future"} {
        for i := range available {
            if available[i].State == state { return &available[i] }
        }
    }
    return nil
}

func sprintDays(sp *domain.Sprint, now time.Time) (daysRemaining, totalDays int) {
    if sp.StartDate == nil || sp.EndDate == nil { return 0, 0 }
    daysRemaining = ceilDays(sp.EndDate.Sub(now))
    if daysRemaining < 0 { daysRemaining = 0 }
    totalDays = ceilDays(sp.EndDate.Sub(*sp.StartDate))
    return daysRemaining, totalDays
}

func ceilDays(d time.Duration) int { return int(math.Ceil(d.Hours() / 24)) }

func startOrZero(sp domain.Sprint) time.Time {
    if sp.StartDate == nil { return time.Time{} }
    return *sp.StartDate
}

func fmtDate(t *time.Time) string {
    if t == nil { return "" }
    return t.Format("2006-01-02")
}
