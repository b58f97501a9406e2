/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"

    "github.com/CrashBytes/team-pulse/internal/config"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc dashboard, jira debugJira) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        c.Next()
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })

    h := NewHandlers(cfg, log, svc, jira)

    r.GET("/health", h.Health)
    r.GET("/api/dashboard/overview", h.Overview)
    r.GET("/api/dashboard/individual/:userId", h.Individual)
    r.GET("/api/debug/boards", h.DebugBoards)
    r.GET("/api/debug/sprints/:boardId", h.DebugSprints)

    return r
}
