package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"passgate.org/internal/auth"
	"passgate.org/internal/config"
	"passgate.org/internal/httpapi"
	"passgate.org/internal/obs"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("PASSGATE_COMMIT"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, cleanup, err := openStore(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer cleanup()

	codec, err := auth.NewTokenCodec([]byte(cfg.TokenSecret), cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	svc, err := auth.NewService(store, codec)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	if cfg.SeedInvitations {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := auth.SeedInvitations(ctx, store, time.Now()); err != nil {
			cancel()
			log.Fatalf("seed invitations: %v", err)
		}
		cancel()
	}

	api := httpapi.New(svc, store, version)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting passgate-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

func openStore(cfg config.Config) (auth.Store, func(), error) {
	switch {
	case cfg.PGDSN != "":
		store, err := auth.OpenPG(cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case cfg.RedisAddr != "":
		store := auth.OpenRedis(cfg.RedisAddr)
		return store, func() { _ = store.Close() }, nil
	default:
		return auth.NewMemoryStore(), func() {}, nil
	}
}
