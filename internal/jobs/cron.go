/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
    "context"
    "sync/atomic"
    "time"

    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"

    "github.com/CrashBytes/team-pulse/internal/config"
    "github.com/CrashBytes/team-pulse/internal/domain"
    "github.com/CrashBytes/team-pulse/internal/services"
)

type warmer interface {
    Overview(ctx context.Context, q services.OverviewQuery) (*domain.DashboardSnapshot, error)
}

// Cron keeps the cache hot by running the overview aggregation for every
// filter on a schedule, so interactive requests mostly hit warm entries.
type Cron struct {
    cfg     config.Config
    log     zerolog.Logger
    svc     warmer
    c       *cron.Cron
    running atomic.Bool
}

func NewCron(cfg config.Config, log zerolog.Logger, svc warmer) *Cron {
    loc, _ := time.LoadLocation(cfg.TZ)
    c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
    cr := &Cron{cfg: cfg, log: log, svc: svc, c: c}
    if cfg.WarmEnabled {
        _, _ = c.AddFunc(cfg.WarmCron, cr.warm)
    }
    return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

func (cr *Cron) warm() {
    // a slow upstream must not stack warm runs
    if !cr.running.CompareAndSwap(false, true) {
        cr.log.Info().Msg("cron: warm already running, skipping")
        return
    }
    defer cr.running.Store(false)

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
    defer cancel()

    started := time.Now()
    for _, filter := range []string{"all", "mobile", "web"} {
        if _, err := cr.svc.Overview(ctx, services.OverviewQuery{Filter: filter}); err != nil {
            cr.log.Error().Err(err).Str("filter", filter).Msg("cron: warm failed")
        }
    }
    cr.log.Info().Dur("took", time.Since(started)).Msg("cron: cache warmed")
}
