package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kestrel-lb/kestrel/internal/admin"
	"github.com/kestrel-lb/kestrel/internal/config"
	"github.com/kestrel-lb/kestrel/internal/dispatcher"
	"github.com/kestrel-lb/kestrel/internal/proxy"
	"github.com/kestrel-lb/kestrel/internal/tlsconfig"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	var (
		configPath  = flag.String("config", "./config.yaml", "path to config file")
		showVersion = flag.Bool("version", false, "show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("loadbalancer version=%s commit=%s\n", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger().Fatalw("failed to load config", "err", err)
	}

	log := newLogger(cfg.Debug)
	defer log.Sync() //nolint:errcheck

	log.Infow("starting loadbalancer", "version", version, "config", *configPath, "algorithm", cfg.Algorithm)

	backends := dispatcher.BuildBackends(cfg.Backends)
	d := dispatcher.New(backends, cfg.Algorithm, log)

	healthSup := dispatcher.StartHealthSupervisor(backends, cfg.HealthCheck, log)
	defer healthSup.Stop()

	latencySup := dispatcher.StartLatencySupervisor(backends, cfg.Algorithm, log)
	defer latencySup.Stop()

	adminMux := http.NewServeMux()
	admin.Register(adminMux, d)
	adminSrv := &http.Server{
		Addr:         cfg.AdminAddr,
		Handler:      adminMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	handler := proxy.NewHandler(d, log)
	mainSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var tlsSrv *http.Server
	if cfg.SSL != nil {
		tlsCfg, err := tlsconfig.Load(cfg.SSL)
		if err != nil {
			log.Fatalw("failed to load tls material", "err", err)
		}
		tlsSrv = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTPSPort),
			Handler:      handler,
			TLSConfig:    tlsCfg,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
	}

	go func() {
		log.Infow("admin server listening", "addr", adminSrv.Addr)
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("admin server failed", "err", err)
		}
	}()

	go func() {
		log.Infow("proxy server listening", "addr", mainSrv.Addr)
		if err := mainSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("proxy server failed", "err", err)
		}
	}()

	if tlsSrv != nil {
		go func() {
			log.Infow("tls proxy server listening", "addr", tlsSrv.Addr)
			if err := tlsSrv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				log.Fatalw("tls proxy server failed", "err", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Infow("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_ = adminSrv.Shutdown(ctx)
	if tlsSrv != nil {
		_ = tlsSrv.Shutdown(ctx)
	}
	if err := mainSrv.Shutdown(ctx); err != nil {
		log.Errorw("graceful shutdown failed", "err", err)
	}
	log.Infow("goodbye")
}

// bootLogger is used only for the config-load failure path, before we know
// whether debug logging was requested.
func bootLogger() *zap.SugaredLogger {
	l, _ := zap.NewProduction()
	return l.Sugar()
}

// newLogger honors config debug and the LB_LOG_LEVEL environment variable
// (the Go equivalent of the spec's RUST_LOG), config taking precedence.
func newLogger(debug bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	} else if lv, err := zapcore.ParseLevel(os.Getenv("LB_LOG_LEVEL")); err == nil {
		level = lv
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	l, err := zcfg.Build()
	if err != nil {
		l, _ = zap.NewProduction()
	}
	return l.Sugar()
}
