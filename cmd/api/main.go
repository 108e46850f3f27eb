package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusshare.org/internal/auth"
	"campusshare.org/internal/blob"
	"campusshare.org/internal/config"
	"campusshare.org/internal/download"
	"campusshare.org/internal/httpapi"
	"campusshare.org/internal/obs"
	"campusshare.org/internal/resource"
	"campusshare.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Stores: Postgres when a DSN is configured, in-memory otherwise
	// (local development).
	var (
		db        *sql.DB
		users     auth.Store
		resources resource.Service
	)
	if cfg.PGDSN != "" {
		pgResources, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db = pgResources.DB()
		users = auth.NewPGStore(db)
		resources = pgResources
	} else {
		log.Println("no CAMPUSSHARE_PG_DSN set, using in-memory stores")
		users = auth.NewInMemory()
		resources = resource.NewInMemory()
	}

	blobs, err := openBlobStore(cfg)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	tokens, err := auth.NewTokens(cfg.AuthSecret, auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	signer, err := download.NewSigner(cfg.AuthSecret)
	if err != nil {
		log.Fatalf("signer: %v", err)
	}

	api := httpapi.New(httpapi.Deps{
		Users:          users,
		Tokens:         tokens,
		Resources:      resources,
		Blobs:          blobs,
		Signer:         signer,
		Referers:       download.NewRefererPolicy(cfg.AllowedOrigins),
		ReadyProbe:     httpapi.ReadyProbe{DB: db},
		Version:        version,
		AllowedOrigins: cfg.AllowedOrigins,
		RateBurst:      cfg.RateBurst,
		RatePerSec:     cfg.RatePerSec,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      5 * time.Minute, // downloads stream through this server
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting campusshare-api %s on %s", version, srv.Addr)

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
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func openBlobStore(cfg config.Config) (blob.Store, error) {
	switch cfg.Storage {
	case config.StorageS3:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return blob.NewS3(ctx, blob.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			LinkTTL:   download.TTL,
		})
	default:
		return blob.NewFS(cfg.UploadDir)
	}
}
