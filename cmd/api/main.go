package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fieldsight/aerolabel/internal/application"
	appann "github.com/fieldsight/aerolabel/internal/application/annotations"
	appexp "github.com/fieldsight/aerolabel/internal/application/exports"
	"github.com/fieldsight/aerolabel/internal/config"
	annot "github.com/fieldsight/aerolabel/internal/domain/annotations"
	"github.com/fieldsight/aerolabel/internal/domain/industries"
	"github.com/fieldsight/aerolabel/internal/infra/db/filestore"
	mysqlp "github.com/fieldsight/aerolabel/internal/infra/db/mysql"
	postgresp "github.com/fieldsight/aerolabel/internal/infra/db/postgres"
	"github.com/fieldsight/aerolabel/internal/infra/detect/httpengine"
	"github.com/fieldsight/aerolabel/internal/infra/httpserver"
	minioStore "github.com/fieldsight/aerolabel/internal/infra/storage"
	"github.com/fieldsight/aerolabel/internal/middleware"
	"github.com/fieldsight/aerolabel/pkg/logger"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	log, err := logger.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal("config load error", zap.Error(err))
	}

	ctx := context.Background()

	// industry class map: static resource, loaded once
	classes := industries.Default()
	if cfg.Annotation.ClassMapPath != "" {
		classes, err = industries.LoadFile(cfg.Annotation.ClassMapPath)
		if err != nil {
			log.Fatal("class map load error", zap.Error(err))
		}
	}

	repo, closeRepo, err := buildRepository(ctx, cfg)
	if err != nil {
		log.Fatal("annotation store init error", zap.Error(err))
	}
	defer closeRepo()

	engine := httpengine.New(cfg.Engine.URL, time.Duration(cfg.Engine.TimeoutSeconds)*time.Second)

	var artifacts appexp.ArtifactStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatal("minio init error", zap.Error(err))
		}
		artifacts = store
	}

	annSvc := &appann.Service{
		Repo:    repo,
		Engine:  engine,
		Classes: classes,
		Clock:   application.SystemClock{},
		Log:     log,
		Workers: cfg.Annotation.Workers,
	}
	expSvc := &appexp.Service{
		Repo:      repo,
		Artifacts: artifacts,
		Log:       log,
	}

	health := middleware.HealthHandler(map[string]middleware.HealthChecker{
		"inference_engine": middleware.CheckFunc(engine.Health),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpserver.NewRouter(annSvc, expSvc, log, health),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
}

// buildRepository selects the annotation store backend from config.
func buildRepository(ctx context.Context, cfg *config.Config) (annot.Repository, func(), error) {
	noop := func() {}
	switch cfg.Storage.Backend {
	case "", "file":
		dir := cfg.Storage.Dir
		if dir == "" {
			dir = "annotations"
		}
		store, err := filestore.New(dir)
		return store, noop, err
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, noop, err
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, noop, err
		}
		return mysqlp.NewAnnotationRepository(db), func() { db.Close() }, nil
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, noop, err
		}
		if err := postgresp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, noop, err
		}
		return postgresp.NewAnnotationRepository(db), func() { db.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}
