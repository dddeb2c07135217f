package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"profecia/internal/api"
	"profecia/internal/config"
	"profecia/internal/db"
	"profecia/internal/engine"
	"profecia/internal/identity"
	"profecia/internal/ledger"
	"profecia/internal/logging"
	"profecia/internal/resolve"
	"profecia/internal/snapshot"
	"profecia/internal/ws"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.Dev)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	store, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	if err := store.Migrate("migrations"); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}
	log.Info("migrations applied")

	fakeLedger := ledger.NewFake(log)

	hub := ws.NewHub(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mgr := engine.NewManager(store, fakeLedger, hub.Publish, log)
	if err := mgr.Boot(ctx); err != nil {
		log.Fatal("engine boot failed", zap.Error(err))
	}

	res := resolve.New(store, fakeLedger, log, mgr.RefreshCache, hub.Publish)
	ident := identity.New(store, fakeLedger, log, cfg.SessionTTL, cfg.AirdropCooldown)

	snap := snapshot.New(store, log, cfg.SnapshotInterval, hub.Publish)
	go snap.Run(ctx)

	srv := api.NewServer(store, ident, mgr, res, snap, hub, log)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Router()}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("addr", cfg.HTTPAddr))
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", zap.Error(err))
	}
}
