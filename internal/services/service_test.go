/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/CrashBytes/team-pulse/internal/config"
    "github.com/CrashBytes/team-pulse/internal/domain"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

type fakeJira struct {
    sprints map[string]map[string][]domain.Sprint // boardID -> states -> sprints
    issues  map[int64][]domain.Issue
    search  []domain.Issue
    boardErr  error
    issuesErr error
    searchErr error
}

func (f *fakeJira) Configured() bool { return true }

func (f *fakeJira) BoardSprints(_ context.Context, boardID, states string, _ int) ([]domain.Sprint, error) {
    if f.boardErr != nil { return nil, f.boardErr }
    return f.sprints[boardID][states], nil
}

func (f *fakeJira) SprintIssues(_ context.Context, sprintID int64) ([]domain.Issue, error) {
    if f.issuesErr != nil { return nil, f.issuesErr }
    return f.issues[sprintID], nil
}

func (f *fakeJira) SearchIssues(_ context.Context, _ string) ([]domain.Issue, error) {
    if f.searchErr != nil { return nil, f.searchErr }
    return f.search, nil
}

type fakeGitLab struct {
    infos   map[string]*domain.ProjectInfo
    mrs     map[string][]domain.MergeRequest
    commits map[string][]domain.Commit
    failing map[string]bool
}

func (f *fakeGitLab) Configured() bool { return true }

func (f *fakeGitLab) Project(_ context.Context, id string) (*domain.ProjectInfo, error) {
    if f.failing[id] { return nil, errors.New("gitlab down") }
    if info, ok := f.infos[id]; ok { return info, nil }
    return &domain.ProjectInfo{Name: "project-" + id}, nil
}

func (f *fakeGitLab) MergeRequests(_ context.Context, id string, _ time.Time) ([]domain.MergeRequest, error) {
    return f.mrs[id], nil
}

func (f *fakeGitLab) Commits(_ context.Context, id string, _ time.Time) ([]domain.Commit, error) {
    return f.commits[id], nil
}

type fakeMobile struct{ health *domain.MobileHealth }

func (f *fakeMobile) Configured() bool { return f.health != nil }

func (f *fakeMobile) HealthScore(_ context.Context) (*domain.MobileHealth, error) {
    if f.health == nil { return nil, errors.New("firebase down") }
    return f.health, nil
}

type fakeChat struct {
    activity *domain.TeamActivity
    presence *domain.Presence
}

func (f *fakeChat) Configured() bool { return f.activity != nil || f.presence != nil }

func (f *fakeChat) ChannelActivity(_ context.Context, _ string, _ int) (*domain.TeamActivity, error) {
    if f.activity == nil { return nil, errors.New("slack down") }
    return f.activity, nil
}

func (f *fakeChat) UserPresence(_ context.Context, _ string) (*domain.Presence, error) {
    if f.presence == nil { return nil, errors.New("slack down") }
    return f.presence, nil
}

func testConfig() config.Config {
    return config.Config{
        Projects: map[string]config.ProjectDef{
            "101": {Display: "Mobile App", Category: "mobile"},
            "202": {Display: "Web Portal", Category: "web"},
        },
        Boards: map[string]config.BoardDef{
            "1": {Name: "Mobile Board", Category: "mobile"},
            "2": {Name: "Web Board", Category: "web"},
        },
    }
}

func fp(v float64) *float64 { return &v }

func tp(t time.Time) *time.Time { return &t }

func fixtureJira(now time.Time) *fakeJira {
    active := domain.Sprint{
        ID: 10, Name: "Sprint 42", State: "active",
        StartDate: tp(now.Add(-120 * time.Hour)), EndDate: tp(now.Add(120 * time.Hour)),
    }
    closed := domain.Sprint{
        ID: 9, Name: "Sprint 41", State: "closed",
        StartDate: tp(now.Add(-500 * time.Hour)), EndDate: tp(now.Add(-260 * time.Hour)),
    }
    return &fakeJira{
        sprints: map[string]map[string][]domain.Sprint{
            "1": {"active,future": {active}, "closed": {closed}},
            "2": {},
        },
        issues: map[int64][]domain.Issue{
            10: {
                {Key: "M-1", StatusCategory: "done", StoryPoints: fp(5),
                    Assignee: &domain.Assignee{DisplayName: "Alice Smith", Email: "alice@example.com"}},
                {Key: "M-2", StatusCategory: "indeterminate", StoryPoints: fp(3),
                    Assignee: &domain.Assignee{DisplayName: "Alice Smith", Email: "alice@example.com"}},
                {Key: "M-3", StatusCategory: "new"},
            },
            9: {
                {Key: "M-0", StatusCategory: "done", StoryPoints: fp(8),
                    Assignee: &domain.Assignee{DisplayName: "Carol Wu", Email: "carol@example.com"}},
            },
        },
    }
}

func fixtureGitLab(now time.Time) *fakeGitLab {
    merged := now.Add(-24 * time.Hour)
    return &fakeGitLab{
        infos: map[string]*domain.ProjectInfo{
            "101": {Name: "mobile-app", LastActivityAt: "2025-08-30T10:00:00Z"},
            "202": {Name: "web-portal", LastActivityAt: "2025-08-29T10:00:00Z"},
        },
        mrs: map[string][]domain.MergeRequest{
            "101": {
                {IID: 1, State: "merged", AuthorUsername: "alice", AuthorName: "Alice Smith", MergedAt: &merged},
                {IID: 2, State: "opened", AuthorUsername: "alice", AuthorName: "Alice Smith"},
            },
            "202": {
                {IID: 3, State: "merged", AuthorUsername: "dave", AuthorName: "Dave Kim", MergedAt: &merged},
            },
        },
        commits: map[string][]domain.Commit{
            "101": {
                {ID: "c1", AuthorName: "Alice Smith", AuthorEmail: "alice@example.com"},
                {ID: "c2", AuthorName: "Alice Smith", AuthorEmail: "alice@example.com"},
                {ID: "c3", AuthorName: "Robo Bot", AuthorEmail: "bot@example.com"},
            },
            "202": {},
        },
    }
}

func newTestService(jira JiraClient, gitlab GitLabClient, mobile MobileBackend, chat ChatClient) *Service {
    return New(testConfig(), zerolog.Nop(), jira, gitlab, mobile, StaticQuality{}, nil, chat)
}

func TestOverview_ConfigMissing(t *testing.T) {
    svc := New(config.Config{}, zerolog.Nop(), &fakeJira{}, &fakeGitLab{}, nil, StaticQuality{}, nil, nil)
    _, err := svc.Overview(context.Background(), OverviewQuery{})
    assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestOverview_ActiveSprintSelected(t *testing.T) {
    now := time.Now().UTC()
    svc := newTestService(fixtureJira(now), fixtureGitLab(now), nil, nil)

    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "all"})
    require.NoError(t, err)
    require.NotNil(t, snap.SelectedSprint)
    assert.Equal(t, int64(10), snap.SelectedSprint.ID)
    assert.Equal(t, "Mobile Board: Sprint 42", snap.SelectedSprint.DisplayName)

    // dropdown hides closed sprints
    require.Len(t, snap.AvailableSprints, 1)
    assert.Equal(t, "active", snap.AvailableSprints[0].State)

    // sprint totals: 5 done + 3 open + 1 fallback for the unestimated issue
    require.NotNil(t, snap.Jira)
    assert.Equal(t, 3, snap.Jira.TotalIssues)
    assert.Equal(t, 1, snap.Jira.CompletedIssues)
    assert.Equal(t, 9.0, snap.Jira.TotalStoryPoints)
    assert.Equal(t, 5.0, snap.Jira.CompletedStoryPoints)

    require.NotNil(t, snap.Jira.CurrentSprint)
    assert.Equal(t, 5, snap.Jira.CurrentSprint.DaysRemaining)
    assert.Equal(t, 56, snap.Jira.CurrentSprint.ProgressPercentage)

    // burndown: 10-day sprint, today is day 5
    require.Len(t, snap.Jira.BurndownChart, 11)
    require.NotNil(t, snap.Jira.BurndownChart[5].ActualRemaining)
    assert.Equal(t, 4.0, *snap.Jira.BurndownChart[5].ActualRemaining)
    assert.Nil(t, snap.Jira.BurndownChart[4].ActualRemaining)

    assert.Contains(t, snap.Message, `Sprint "Sprint 42" on Mobile Board`)
    assert.Contains(t, snap.Message, "5 days remaining")
    assert.Empty(t, snap.Errors)
}

func TestOverview_GitLabRollup(t *testing.T) {
    now := time.Now().UTC()
    svc := newTestService(fixtureJira(now), fixtureGitLab(now), nil, nil)

    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "all"})
    require.NoError(t, err)
    require.NotNil(t, snap.GitLab)
    assert.Equal(t, 3, snap.GitLab.TotalMRs)
    assert.Equal(t, 2, snap.GitLab.MergedMRs)
    assert.Equal(t, 1, snap.GitLab.OpenMRs)
    assert.Equal(t, 3, snap.GitLab.Commits.Total)

    mobile := snap.GitLab.Projects["101"]
    assert.Equal(t, "mobile-app", mobile.Name)
    assert.Equal(t, "Mobile App", mobile.Display)
    assert.Equal(t, 2, mobile.TotalMRs)
    assert.Equal(t, 1, mobile.MergedMRs)
    assert.Equal(t, 1, mobile.OpenMRs)
    assert.Equal(t, 3, mobile.TotalCommits)
}

func TestOverview_DeveloperRollup(t *testing.T) {
    now := time.Now().UTC()
    svc := newTestService(fixtureJira(now), fixtureGitLab(now), nil, nil)

    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "all"})
    require.NoError(t, err)

    byUser := map[string]domain.Developer{}
    for _, d := range snap.Developers { byUser[d.Username] = d }

    // alice merges tracker and git identities through her email local part
    alice, ok := byUser["alice"]
    require.True(t, ok)
    assert.Equal(t, 2, alice.JiraTickets)
    assert.Equal(t, 8.0, alice.JiraPoints)
    assert.Equal(t, 2, alice.TotalPRs)
    assert.Equal(t, 1, alice.MergedPRs)
    assert.Equal(t, 2, alice.TotalCommits)
    assert.Equal(t, 1.0, alice.PRDensity)
    assert.Equal(t, 0.5, alice.PRMergeRate)
    assert.Equal(t, 6, alice.TotalContributions)

    // carol has tracker work only, dave has one merged MR; both retained
    assert.Contains(t, byUser, "carol")
    assert.Contains(t, byUser, "dave")

    // bot has commits but no MRs or tickets; dropped
    assert.NotContains(t, byUser, "bot")

    // team window totals use the zero fallback for missing estimates
    require.NotNil(t, snap.JiraDateRange)
    assert.Equal(t, 4, snap.JiraDateRange.TotalIssues)
    assert.Equal(t, 2, snap.JiraDateRange.CompletedIssues)
    assert.Equal(t, 16.0, snap.JiraDateRange.TotalStoryPoints)
    assert.Equal(t, 13.0, snap.JiraDateRange.CompletedStoryPoints)
}

func TestOverview_ExplicitSprintID(t *testing.T) {
    now := time.Now().UTC()
    jira := fixtureJira(now)
    future := domain.Sprint{
        ID: 11, Name: "Sprint 43", State: "future",
        StartDate: tp(now.Add(130 * time.Hour)), EndDate: tp(now.Add(370 * time.Hour)),
    }
    jira.sprints["1"]["active,future"] = append(jira.sprints["1"]["active,future"], future)

    svc := newTestService(jira, fixtureGitLab(now), nil, nil)

    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "all", SprintID: 11})
    require.NoError(t, err)
    require.NotNil(t, snap.SelectedSprint)
    assert.Equal(t, int64(11), snap.SelectedSprint.ID)

    // unknown id falls back to the active sprint
    snap, err = svc.Overview(context.Background(), OverviewQuery{Filter: "all", SprintID: 999})
    require.NoError(t, err)
    assert.Equal(t, int64(10), snap.SelectedSprint.ID)
}

func TestOverview_VelocityOnlyWhenNoOpenSprints(t *testing.T) {
    now := time.Now().UTC()
    jira := fixtureJira(now)
    closedOnly := jira.sprints["1"]["closed"]
    jira.sprints["1"] = map[string][]domain.Sprint{"closed": closedOnly}

    svc := newTestService(jira, fixtureGitLab(now), nil, nil)

    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "all"})
    require.NoError(t, err)
    assert.Nil(t, snap.SelectedSprint)
    require.NotNil(t, snap.Jira)
    assert.Equal(t, "No active or future sprints available", snap.Jira.Error)
    assert.Equal(t, "No active or future sprints found", snap.Message)
    assert.Empty(t, snap.AvailableSprints)

    // degraded response still carries window totals and developer rollups
    require.NotNil(t, snap.JiraDateRange)
    assert.Equal(t, 1, snap.JiraDateRange.TotalIssues)
    assert.NotEmpty(t, snap.Developers)
    assert.NotNil(t, snap.GitLab)
}

func TestOverview_FilterScopesBoardsAndProjects(t *testing.T) {
    now := time.Now().UTC()
    svc := newTestService(fixtureJira(now), fixtureGitLab(now), nil, nil)

    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "mobile"})
    require.NoError(t, err)
    assert.Len(t, snap.GitLab.Projects, 1)
    assert.Contains(t, snap.GitLab.Projects, "101")
    assert.Equal(t, "mobile", snap.Filter)
    assert.Equal(t, "Mobile Projects", snap.FilterLabel)

    // dave only contributes to the web project, so he is out of scope here
    for _, d := range snap.Developers {
        assert.NotEqual(t, "dave", d.Username)
    }
}

func TestOverview_FirebaseGatedByFilter(t *testing.T) {
    now := time.Now().UTC()
    mobile := &fakeMobile{health: &domain.MobileHealth{Score: 94, IsDemo: true}}
    svc := newTestService(fixtureJira(now), fixtureGitLab(now), mobile, nil)

    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "mobile"})
    require.NoError(t, err)
    require.NotNil(t, snap.Firebase)
    assert.Equal(t, 94, snap.Firebase.Score)
    assert.Contains(t, snap.Message, "(Firebase: Live Data)")

    snap, err = svc.Overview(context.Background(), OverviewQuery{Filter: "web"})
    require.NoError(t, err)
    assert.Nil(t, snap.Firebase)
}

func TestOverview_BoardFailureIsIsolated(t *testing.T) {
    now := time.Now().UTC()
    jira := fixtureJira(now)
    jira.boardErr = errors.New("jira 503")

    svc := newTestService(jira, fixtureGitLab(now), nil, nil)

    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "all"})
    require.NoError(t, err)
    assert.NotNil(t, snap.GitLab)
    assert.NotNil(t, snap.Sonarqube)
    require.NotEmpty(t, snap.Errors)
    assert.Equal(t, "jira", snap.Errors[0].Source)
}

func TestOverview_ProjectFailureIsIsolated(t *testing.T) {
    now := time.Now().UTC()
    gitlab := fixtureGitLab(now)
    gitlab.failing = map[string]bool{"202": true}

    svc := newTestService(fixtureJira(now), gitlab, nil, nil)

    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "all"})
    require.NoError(t, err)
    require.NotNil(t, snap.GitLab)
    assert.Len(t, snap.GitLab.Projects, 1)
    assert.Equal(t, 2, snap.GitLab.TotalMRs)
    require.Len(t, snap.Errors, 1)
    assert.Equal(t, "gitlab", snap.Errors[0].Source)
    assert.Contains(t, snap.Errors[0].Message, "202")
}

func TestOverview_SprintsDedupedAcrossStateQueries(t *testing.T) {
    now := time.Now().UTC()
    jira := fixtureJira(now)
    // the closed query also returns the active sprint; it must appear once
    active := jira.sprints["1"]["active,future"][0]
    jira.sprints["1"]["closed"] = append(jira.sprints["1"]["closed"], active)

    svc := newTestService(jira, fixtureGitLab(now), nil, nil)

    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "all"})
    require.NoError(t, err)
    require.Len(t, snap.AvailableSprints, 1)
    require.NotNil(t, snap.JiraDateRange)
    assert.Equal(t, 4, snap.JiraDateRange.TotalIssues)
}

func TestOverview_StaticQualityTable(t *testing.T) {
    now := time.Now().UTC()
    svc := newTestService(fixtureJira(now), fixtureGitLab(now), nil, nil)

    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "mobile"})
    require.NoError(t, err)
    require.NotNil(t, snap.Sonarqube)
    assert.Equal(t, 82.3, snap.Sonarqube.Coverage)
    assert.Equal(t, "A", snap.Sonarqube.MaintainabilityRating)
}

func TestOverview_DateWindowSkipsNonIntersectingSprints(t *testing.T) {
    now := time.Now().UTC()
    svc := newTestService(fixtureJira(now), fixtureGitLab(now), nil, nil)

    // a narrow recent window excludes the closed sprint that ended earlier
    start := now.Add(-48 * time.Hour)
    end := now
    snap, err := svc.Overview(context.Background(), OverviewQuery{Filter: "all", Start: &start, End: &end})
    require.NoError(t, err)
    require.NotNil(t, snap.JiraDateRange)
    assert.Equal(t, 3, snap.JiraDateRange.TotalIssues)
    assert.Equal(t, "Last 30 Days", snap.DateRange.Label)
}

func TestIndividual(t *testing.T) {
    created := time.Now().UTC().Add(-96 * time.Hour)
    updated := time.Now().UTC().Add(-24 * time.Hour)
    jira := &fakeJira{search: []domain.Issue{
        {Key: "M-1", StatusCategory: "done", StoryPoints: fp(5), Priority: "High", Created: &created, Updated: &updated},
        {Key: "M-2", StatusCategory: "new", Priority: "Low", Created: &created, Updated: &updated},
    }}
    chat := &fakeChat{presence: &domain.Presence{Presence: "active", Online: true}}
    svc := newTestService(jira, &fakeGitLab{}, nil, chat)

    rep := svc.Individual(context.Background(), "alice", 30)
    assert.Equal(t, "alice", rep.UserID)
    require.NotNil(t, rep.Jira)
    assert.Equal(t, 2, rep.Jira.TotalTickets)
    assert.Equal(t, 1, rep.Jira.CompletedTickets)
    assert.Equal(t, 5.0, rep.Jira.TotalStoryPoints)
    assert.Equal(t, 3, rep.Jira.AverageCycleTime)
    assert.Equal(t, map[string]int{"High": 1, "Low": 1}, rep.Jira.TicketsByPriority)
    assert.Len(t, rep.Jira.DailyProgress, 30)
    require.NotNil(t, rep.Slack)
    assert.True(t, rep.Slack.Online)
    assert.Empty(t, rep.Errors)
}

func TestIndividual_JiraFailureRecorded(t *testing.T) {
    jira := &fakeJira{searchErr: errors.New("jql rejected")}
    svc := newTestService(jira, &fakeGitLab{}, nil, nil)

    rep := svc.Individual(context.Background(), "alice", 30)
    assert.Nil(t, rep.Jira)
    require.Len(t, rep.Errors, 1)
    assert.Equal(t, "jira", rep.Errors[0].Source)
}

func TestStatus(t *testing.T) {
    svc := newTestService(&fakeJira{}, &fakeGitLab{}, &fakeMobile{}, nil)
    st := svc.Status()
    assert.Equal(t, "ok", st.Status)
    assert.Equal(t, "configured", st.Services["jira"])
    assert.Equal(t, "configured", st.Services["gitlab"])
    assert.Equal(t, "not available", st.Services["firebase"])
    assert.Equal(t, "not configured", st.Services["snyk"])
    assert.Equal(t, "loaded", st.Services["config"])
    assert.Equal(t, 2, st.Configuration["projects"])
    assert.Equal(t, 2, st.Configuration["boards"])
}

func TestResolveIdentity(t *testing.T) {
    u, n := identityFromAssignee(&domain.Assignee{DisplayName: "Alice Smith", Email: "alice@example.com"})
    assert.Equal(t, "alice", u)
    assert.Equal(t, "Alice Smith", n)

    u, _ = identityFromAssignee(&domain.Assignee{DisplayName: "Alice Smith"})
    assert.Equal(t, "Alice Smith", u)

    u, _ = identityFromAssignee(nil)
    assert.Empty(t, u)

    u, n = identityFromCommit(domain.Commit{AuthorName: "Bob Jones", AuthorEmail: "bjones@example.com"})
    assert.Equal(t, "bjones", u)
    assert.Equal(t, "Bob Jones", n)

    u, _ = identityFromCommit(domain.Commit{AuthorName: "Bob Jones", AuthorEmail: "not-an-email"})
    assert.Equal(t, "Bob Jones", u)
}
