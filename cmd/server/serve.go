package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/iliyamo/venue-checkin/internal/aggregate"
	"github.com/iliyamo/venue-checkin/internal/checkin"
	"github.com/iliyamo/venue-checkin/internal/config"
	"github.com/iliyamo/venue-checkin/internal/database"
	"github.com/iliyamo/venue-checkin/internal/handler"
	"github.com/iliyamo/venue-checkin/internal/linker"
	"github.com/iliyamo/venue-checkin/internal/metrics"
	"github.com/iliyamo/venue-checkin/internal/queue"
	"github.com/iliyamo/venue-checkin/internal/realtime"
	"github.com/iliyamo/venue-checkin/internal/repository"
	"github.com/iliyamo/venue-checkin/internal/resolver"
	"github.com/iliyamo/venue-checkin/internal/reward"
	"github.com/iliyamo/venue-checkin/internal/router"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(a *app) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func (a *app) serve(ctx context.Context, migrate bool) error {
	cfg, log := a.cfg, a.log

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	if migrate {
		if err := database.Migrate(ctx, db, cfg.DB.Driver); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewCheckinMetrics(reg)
	if err != nil {
		return err
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis: unavailable, cache and rate limit disabled")
	} else {
		defer rdb.Close()
	}

	emitter, err := realtime.NewEmitter(cfg.Realtime, rdb, log)
	if err != nil {
		return err
	}
	defer emitter.Close()
	dispatcher := queue.NewDispatcher(cfg.Dispatch.Workers, cfg.Dispatch.Buffer, m, log)
	refresher := realtime.NewRefresher(db, dispatcher, emitter, m, log)

	var awarder reward.Awarder = reward.Nop{}
	if cfg.Reward.URL != "" {
		awarder = reward.NewHTTPAwarder(cfg.Reward.URL, cfg.Reward.Token, cfg.Reward.Timeout)
	} else {
		log.Info("reward: no service configured, gifts disabled")
	}

	probe := repository.NewSchemaProbe(db, cfg.CapabilityTTL)
	if caps, err := probe.Capabilities(ctx); err != nil {
		log.Warn("schema: capability probe failed", "error", err)
	} else {
		log.Info("schema: capabilities", "caps", caps)
	}
	events := repository.NewEventRepo(db)
	lnk := linker.New(db, probe, m, log)
	agg := aggregate.NewService(
		events,
		resolver.New(repository.NewVenueRepo(db), events, probe, resolver.DefaultAliases, log),
		lnk,
		aggregate.DefaultSources(db, probe, cfg.LegacyDateFallback),
		m, log,
	)
	svc := checkin.NewService(db, probe,
		checkin.WithRewards(reward.NewTrigger(awarder, m, log)),
		checkin.WithRefresh(refresher),
		checkin.WithMetrics(m),
		checkin.WithLogger(log),
	)

	e := router.New(router.Deps{
		Config:        cfg,
		Health:        handler.Health(db),
		Consolidation: handler.NewConsolidationHandler(agg, log),
		Checkin:       handler.NewCheckinHandler(svc, log),
		Link:          handler.NewLinkHandler(lnk, refresher, log),
		Gatherer:      reg,
		Redis:         rdb,
		Log:           log,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("http: listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("http: shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Error("http: shutdown failed", "error", err)
	}
	if err := dispatcher.Close(sctx); err != nil {
		log.Error("dispatcher: drain incomplete", "error", err)
	}
	return nil
}
