package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/easyshare/internal/auth"
	"github.com/abduss/easyshare/internal/blob"
	"github.com/abduss/easyshare/internal/config"
	"github.com/abduss/easyshare/internal/file"
	"github.com/abduss/easyshare/internal/logger"
	"github.com/abduss/easyshare/internal/metrics"
	"github.com/abduss/easyshare/internal/server"
	"github.com/abduss/easyshare/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}
	if cfg.DevMode {
		logg.Warn("dev mode enabled, placeholder session secret is accepted")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var dbPool *pgxpool.Pool
	if cfg.UsesPostgres() {
		dbPool, err = storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logg.Fatal("connect postgres", zap.Error(err))
		}
		defer dbPool.Close()

		if err := storage.Migrate(cfg.Postgres.DSN()); err != nil {
			logg.Fatal("migrate postgres", zap.Error(err))
		}
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		logg.Fatal("open blob store", zap.String("backend", cfg.Storage.BlobBackend), zap.Error(err))
	}

	var (
		authService *auth.Service
		fileService *file.Service
	)
	if dbPool != nil {
		authService = auth.NewService(auth.NewRepository(dbPool), cfg.Auth)
		fileService = file.NewService(file.NewRepository(dbPool), blobs, cfg.Storage.MaxUploadBytes)
	} else {
		authService = auth.NewService(auth.NewMemoryStore(), cfg.Auth)
		fileService = file.NewService(file.NewMemoryIndex(), blobs, cfg.Storage.MaxUploadBytes)
	}

	metrics.InitMetrics()

	router, err := server.NewRouter(server.Dependencies{
		Config:      cfg,
		DB:          dbPool,
		Blobs:       blobs,
		AuthService: authService,
		FileService: fileService,
	})
	if err != nil {
		logg.Fatal("build router", zap.Error(err))
	}

	httpServer := server.NewHTTPServer(cfg.Server, router)

	go func() {
		logg.Info("Easy File Share listening",
			zap.String("addr", cfg.Server.Address()),
			zap.String("base_url", cfg.Server.BaseURL),
			zap.String("index_backend", cfg.Storage.IndexBackend),
			zap.String("blob_backend", cfg.Storage.BlobBackend),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown", zap.Error(err))
	}
}

func openBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	if cfg.Storage.BlobBackend == config.BackendMinIO {
		client, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if err := storage.EnsureBucket(ctx, client, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
			return nil, err
		}
		return blob.NewMinIOStore(client, cfg.MinIO.Bucket), nil
	}
	return blob.NewDiskStore(cfg.Storage.UploadDir)
}
