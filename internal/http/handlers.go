/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"

    "github.com/CrashBytes/team-pulse/internal/adapters/jira"
    "github.com/CrashBytes/team-pulse/internal/config"
    "github.com/CrashBytes/team-pulse/internal/domain"
    "github.com/CrashBytes/team-pulse/internal/services"
)

type dashboard interface {
    Overview(ctx context.Context, q services.OverviewQuery) (*domain.DashboardSnapshot, error)
    Individual(ctx context.Context, userID string, days int) *domain.IndividualReport
    Status() services.HealthStatus
}

// debugJira is the raw board access behind the operator debug endpoints.
type debugJira interface {
    Boards(ctx context.Context) ([]jira.BoardInfo, error)
    BoardSprints(ctx context.Context, boardID, states string, maxResults int) ([]domain.Sprint, error)
}

type Handlers struct {
    cfg  config.Config
    log  zerolog.Logger
    svc  dashboard
    jira debugJira
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc dashboard, jira debugJira) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc, jira: jira}
}

func (h *Handlers) Health(c *gin.Context) {
    c.JSON(http.StatusOK, h.svc.Status())
}

func (h *Handlers) Overview(c *gin.Context) {
    q := services.OverviewQuery{
        Filter: c.DefaultQuery("filter", "all"),
        Start:  parseDate(c.Query("startDate")),
        End:    parseDate(c.Query("endDate")),
    }
    if raw := c.Query("sprintId"); raw != "" {
        id, err := strconv.ParseInt(raw, 10, 64)
        if err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": "sprintId must be numeric"})
            return
        }
        q.SprintID = id
    }

    snap, err := h.svc.Overview(c.Request.Context(), q)
    if err != nil {
        if errors.Is(err, services.ErrConfigMissing) {
            c.JSON(http.StatusInternalServerError, gin.H{
                "error":   "Configuration not loaded",
                "message": "Please create config.json from config.example.json and configure your projects and boards",
            })
            return
        }
        c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch dashboard data", "details": err.Error()})
        return
    }
    c.JSON(http.StatusOK, snap)
}

func (h *Handlers) Individual(c *gin.Context) {
    days := 30
    if raw := c.Query("days"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil || n <= 0 {
            c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
            return
        }
        days = n
    }
    c.JSON(http.StatusOK, h.svc.Individual(c.Request.Context(), c.Param("userId"), days))
}

func (h *Handlers) DebugBoards(c *gin.Context) {
    boards, err := h.jira.Boards(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"boards": boards, "count": len(boards)})
}

func (h *Handlers) DebugSprints(c *gin.Context) {
    boardID := c.Param("boardId")
    states := c.DefaultQuery("state", "active,future")
    sprints, err := h.jira.BoardSprints(c.Request.Context(), boardID, states, 20)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"boardId": boardID, "state": states, "sprints": sprints, "count": len(sprints)})
}

// parseDate accepts a plain date or a full timestamp; anything else is
// treated as absent, falling back to the default window.
func parseDate(raw string) *time.Time {
    if raw == "" { return nil }
    for _, layout := range []string{"2006-01-02", time.RFC3339} {
        if t, err := time.Parse(layout, raw); err == nil {
            t = t.UTC()
            return &t
        }
    }
    return nil
}
