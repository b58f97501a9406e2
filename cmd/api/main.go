/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"

    "github.com/CrashBytes/team-pulse/internal/adapters/firebase"
    "github.com/CrashBytes/team-pulse/internal/adapters/gitlab"
    "github.com/CrashBytes/team-pulse/internal/adapters/jira"
    "github.com/CrashBytes/team-pulse/internal/adapters/slack"
    "github.com/CrashBytes/team-pulse/internal/adapters/snyk"
    "github.com/CrashBytes/team-pulse/internal/adapters/sonarqube"
    "github.com/CrashBytes/team-pulse/internal/cache"
    "github.com/CrashBytes/team-pulse/internal/config"
    httpx "github.com/CrashBytes/team-pulse/internal/http"
    "github.com/CrashBytes/team-pulse/internal/jobs"
    "github.com/CrashBytes/team-pulse/internal/logger"
    "github.com/CrashBytes/team-pulse/internal/services"
)

func main() {
    _ = godotenv.Load()
    cfg := config.Load()
    log := logger.New(cfg)

    store := cache.New()

    // Adapters
    jc := jira.NewClient(cfg, log, store)
    gc := gitlab.NewClient(cfg, log, store)
    fc := firebase.NewClient(cfg, log)
    sq := sonarqube.NewClient(cfg, log, store)
    vc := snyk.NewClient(cfg, log, store)
    cc := slack.NewClient(cfg, log, store)

    // The quality panel defaults to the static table; a configured scanner
    // takes over transparently.
    var quality services.QualitySource = services.StaticQuality{}
    if sq.Configured() {
        quality = sq
        log.Info().Msg("sonarqube: live metrics enabled")
    }

    svc := services.New(cfg, log, jc, gc, fc, quality, vc, cc)

    router := httpx.NewRouter(cfg, log, svc, jc)

    cr := jobs.NewCron(cfg, log, svc)
    cr.Start()
    defer cr.Stop()

    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()
    log.Info().Str("addr", cfg.HTTPAddr).Int("projects", len(cfg.Projects)).Int("boards", len(cfg.Boards)).Msg("dashboard backend up")

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }
}
