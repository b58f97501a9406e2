/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/CrashBytes/team-pulse/internal/adapters/jira"
    "github.com/CrashBytes/team-pulse/internal/config"
    "github.com/CrashBytes/team-pulse/internal/domain"
    "github.com/CrashBytes/team-pulse/internal/services"
)

type fakeDashboard struct {
    snap    *domain.DashboardSnapshot
    err     error
    lastQ   services.OverviewQuery
    report  *domain.IndividualReport
    lastUID string
}

func (f *fakeDashboard) Overview(_ context.Context, q services.OverviewQuery) (*domain.DashboardSnapshot, error) {
    f.lastQ = q
    return f.snap, f.err
}

func (f *fakeDashboard) Individual(_ context.Context, userID string, days int) *domain.IndividualReport {
    f.lastUID = userID
    return f.report
}

func (f *fakeDashboard) Status() services.HealthStatus {
    return services.HealthStatus{Status: "ok", Services: map[string]string{"jira": "configured"}}
}

type fakeDebugJira struct {
    boards  []jira.BoardInfo
    sprints []domain.Sprint
    err     error
}

func (f *fakeDebugJira) Boards(_ context.Context) ([]jira.BoardInfo, error) {
    return f.boards, f.err
}

func (f *fakeDebugJira) BoardSprints(_ context.Context, _, _ string, _ int) ([]domain.Sprint, error) {
    return f.sprints, f.err
}

func testRouter(svc dashboard, dj debugJira) http.Handler {
    return NewRouter(config.Config{AppEnv: "test"}, zerolog.Nop(), svc, dj)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
    t.Helper()
    req := httptest.NewRequest(http.MethodGet, path, nil)
    w := httptest.NewRecorder()
    h.ServeHTTP(w, req)
    return w
}

func TestOverviewEndpoint(t *testing.T) {
    svc := &fakeDashboard{snap: &domain.DashboardSnapshot{Filter: "all", Message: "ok"}}
    w := get(t, testRouter(svc, &fakeDebugJira{}), "/api/dashboard/overview?filter=mobile&sprintId=42&startDate=2025-06-01&endDate=2025-06-30")
    assert.Equal(t, http.StatusOK, w.Code)

    assert.Equal(t, "mobile", svc.lastQ.Filter)
    assert.Equal(t, int64(42), svc.lastQ.SprintID)
    require.NotNil(t, svc.lastQ.Start)
    assert.Equal(t, "2025-06-01", svc.lastQ.Start.Format("2006-01-02"))

    var body domain.DashboardSnapshot
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
    assert.Equal(t, "ok", body.Message)
}

func TestOverviewEndpoint_ConfigMissing(t *testing.T) {
    svc := &fakeDashboard{err: services.ErrConfigMissing}
    w := get(t, testRouter(svc, &fakeDebugJira{}), "/api/dashboard/overview")
    assert.Equal(t, http.StatusInternalServerError, w.Code)
    assert.Contains(t, w.Body.String(), "Configuration not loaded")
    assert.Contains(t, w.Body.String(), "config.json")
}

func TestOverviewEndpoint_BadSprintID(t *testing.T) {
    svc := &fakeDashboard{snap: &domain.DashboardSnapshot{}}
    w := get(t, testRouter(svc, &fakeDebugJira{}), "/api/dashboard/overview?sprintId=abc")
    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOverviewEndpoint_InvalidDateIgnored(t *testing.T) {
    svc := &fakeDashboard{snap: &domain.DashboardSnapshot{}}
    w := get(t, testRouter(svc, &fakeDebugJira{}), "/api/dashboard/overview?startDate=june")
    assert.Equal(t, http.StatusOK, w.Code)
    assert.Nil(t, svc.lastQ.Start)
}

func TestIndividualEndpoint(t *testing.T) {
    svc := &fakeDashboard{report: &domain.IndividualReport{UserID: "alice", Errors: []domain.SourceError{}}}
    w := get(t, testRouter(svc, &fakeDebugJira{}), "/api/dashboard/individual/alice?days=7")
    assert.Equal(t, http.StatusOK, w.Code)
    assert.Equal(t, "alice", svc.lastUID)

    w = get(t, testRouter(svc, &fakeDebugJira{}), "/api/dashboard/individual/alice?days=-1")
    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
    w := get(t, testRouter(&fakeDashboard{}, &fakeDebugJira{}), "/health")
    assert.Equal(t, http.StatusOK, w.Code)
    assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestDebugEndpoints(t *testing.T) {
    dj := &fakeDebugJira{
        boards:  []jira.BoardInfo{{ID: 1, Name: "Mobile Board", Type: "scrum"}},
        sprints: []domain.Sprint{{ID: 10, Name: "Sprint 42", State: "active"}},
    }
    h := testRouter(&fakeDashboard{}, dj)

    w := get(t, h, "/api/debug/boards")
    assert.Equal(t, http.StatusOK, w.Code)
    assert.Contains(t, w.Body.String(), `"count":1`)

    w = get(t, h, "/api/debug/sprints/1?state=closed")
    assert.Equal(t, http.StatusOK, w.Code)
    assert.Contains(t, w.Body.String(), "Sprint 42")

    dj.err = errors.New("jira 503")
    w = get(t, h, "/api/debug/boards")
    assert.Equal(t, http.StatusInternalServerError, w.Code)
}
