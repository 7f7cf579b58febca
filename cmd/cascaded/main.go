// Package main wires together the cascaded fetch service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/api"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/config"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/crawl"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/extract"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/cascade"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/executor/direct"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/executor/headless"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/executor/remote"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/executor/render"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/executor/static"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/governor"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/ratelimit"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/logging"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/metrics"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/progress"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/progress/sinks"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	hubSinks := []progress.Sink{sinks.NewLogSink(logger.Named("events"))}
	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Warn("prometheus progress sink init failed", zap.Error(err))
	} else {
		hubSinks = append(hubSinks, promSink)
	}
	hub := progress.NewHub(progress.Config{
		BufferSize:    cfg.Progress.BufferSize,
		FlushInterval: cfg.FlushInterval(),
		Logger:        logger.Named("progress"),
	}, hubSinks...)

	fetchCfg, err := cfg.FetchConfig()
	if err != nil {
		logger.Fatal("invalid fetch configuration", zap.Error(err))
	}

	gov := governor.New(cfg.Governor.GlobalLimit, cfg.Governor.PerDomainLimit)

	directExec := direct.New(direct.Config{
		UserAgent:     cfg.Cascade.UserAgent,
		RespectRobots: cfg.Cascade.RespectRobots,
	}, gov, logging.Tier(logger, "direct"))
	if cfg.Governor.DomainRPS > 0 {
		directExec.SetLimiter(ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.Governor.DomainRPS,
			DefaultBurst: cfg.Governor.DomainBurst,
		}))
	}

	execs := []fetch.Executor{
		directExec,
		static.New(static.Config{
			UserAgent:      cfg.Cascade.UserAgent,
			RespectRobots:  cfg.Cascade.RespectRobots,
			PerDomainLimit: cfg.Governor.PerDomainLimit,
		}, logging.Tier(logger, "static")),
		render.New(render.Config{
			Command:   cfg.Render.Command,
			UserAgent: cfg.Cascade.UserAgent,
		}, logging.Tier(logger, "render")),
		remote.NewProviderA(remote.Config{
			Endpoint:  cfg.RemoteA.Endpoint,
			APIKey:    cfg.RemoteA.APIKey,
			UserAgent: cfg.Cascade.UserAgent,
		}, logging.Tier(logger, "remote_a")),
		remote.NewProviderB(remote.Config{
			Endpoint:  cfg.RemoteB.Endpoint,
			APIKey:    cfg.RemoteB.APIKey,
			UserAgent: cfg.Cascade.UserAgent,
		}, logging.Tier(logger, "remote_b")),
	}
	if cfg.Headless.Enabled {
		browser, err := headless.New(headless.Config{
			UserAgent:   cfg.Cascade.UserAgent,
			MaxParallel: cfg.Headless.MaxParallel,
			SettleDelay: cfg.SettleDelay(),
		}, gov, logging.Tier(logger, "headless"))
		if err != nil {
			logger.Warn("headless executor init failed", zap.Error(err))
		} else {
			defer browser.Close()
			execs = append(execs, browser)
		}
	}

	orchestrator, err := cascade.New(fetchCfg, logger.Named("cascade"), execs, cascade.WithEmitter(hub))
	if err != nil {
		logger.Fatal("cascade init failed", zap.Error(err))
	}

	crawler, err := crawl.New(orchestrator, crawl.Options{
		MaxDepth:       cfg.Crawl.MaxDepth,
		MaxPages:       cfg.Crawl.MaxPages,
		Concurrency:    cfg.Crawl.Concurrency,
		Delay:          cfg.CrawlDelay(),
		MinValidLength: cfg.Cascade.MinValidLength,
	}, logger.Named("crawl"))
	if err != nil {
		logger.Fatal("crawler init failed", zap.Error(err))
	}
	crawler.SetEmitter(hub)

	apiServer := api.NewServer(orchestrator, crawler, extract.New(), cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Error("progress hub close error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
