package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/webrecap/webrecap/internal/ai"
	"github.com/webrecap/webrecap/internal/artifact"
	"github.com/webrecap/webrecap/internal/cache"
	"github.com/webrecap/webrecap/internal/config"
	"github.com/webrecap/webrecap/internal/db"
	"github.com/webrecap/webrecap/internal/embedcache"
	"github.com/webrecap/webrecap/internal/extract"
	"github.com/webrecap/webrecap/internal/fetch"
	"github.com/webrecap/webrecap/internal/filestore"
	"github.com/webrecap/webrecap/internal/handler"
	"github.com/webrecap/webrecap/internal/job"
	"github.com/webrecap/webrecap/internal/middleware"
	"github.com/webrecap/webrecap/internal/notify"
	"github.com/webrecap/webrecap/internal/repo"
	"github.com/webrecap/webrecap/internal/schedule"
	"github.com/webrecap/webrecap/internal/score"
	"github.com/webrecap/webrecap/internal/service"
	"github.com/webrecap/webrecap/internal/summarize"
	"github.com/webrecap/webrecap/internal/worker"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "webrecap",
		Short: "webrecap server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run webrecap server and workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn, cfg.AI.EmbeddingDim); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	store := buildCache(ctx, cfg.Redis)

	bus, err := notify.NewPostgres(conn, db.DSN(cfg.Database))
	if err != nil {
		logutil.GetLogger(ctx).Warn("postgres bus unavailable, using in-process bus", zap.Error(err))
		bus = notify.NewMemory()
	}
	defer bus.Close()

	documentRepo := repo.NewDocumentRepo(conn)
	artifactRepo := repo.NewArtifactRepo(conn)
	transactionRepo := repo.NewTransactionRepo(conn)
	summaryRepo := repo.NewSummaryRepo(conn)
	prototypeRepo := repo.NewPrototypeRepo(conn)
	embedCacheRepo := repo.NewEmbeddingCacheRepo(conn)

	fileStore, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	artifacts := artifact.NewManager(artifactRepo, documentRepo, fileStore)

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	generator := ai.NewGenerator(aiProvider, cfg.AI.Model, cfg.AI.Temperature)
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, embedCacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.Scoring.EmbedCacheSize, 10*time.Minute)

	index := score.NewPgIndex(prototypeRepo)
	scorer := score.NewScorer(cfg.Scoring, embedder, index)
	collector := score.NewCollector(embedder, index, cfg.Scoring.MaxEmbeddingLength, cfg.Scoring.DuplicateThreshold)

	fetcher := fetch.New(cfg.Fetch, fetch.NewChromeRenderer(cfg.Fetch))
	extractor := extract.New(cfg.Fetch, fetcher, scorer, collector, store)
	summarizer := summarize.New(generator, cfg.AI.Model, store, cfg.Summarizer)

	pollInterval := time.Duration(cfg.Workers.PollIntervalSeconds) * time.Second
	ingestWorker := worker.NewIngestWorker(documentRepo, artifacts, extractor, bus)
	summaryWorker := worker.NewSummaryWorker(documentRepo, transactionRepo, summaryRepo, artifactRepo, artifacts, summarizer, bus)
	go ingestWorker.Loop(pollInterval).Run(ctx)
	go summaryWorker.Loop(pollInterval).Run(ctx)

	scheduler := schedule.NewCronScheduler()
	addJob(scheduler, job.NewDocumentPurgeJob(documentRepo, cfg.Jobs.DocumentKeepDays), cfg.Jobs.DocumentPurgeSpec)
	addJob(scheduler, job.NewPrototypePruneJob(prototypeRepo, int64(cfg.Jobs.PrototypeMaxRows)), cfg.Jobs.PrototypePruneSpec)
	addJob(scheduler, job.NewEmbeddingCacheCleanupJob(embedCacheRepo, cfg.Jobs.EmbedCacheMaxAgeDays), cfg.Jobs.EmbedCacheCleanupSpec)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	reuseWindow := time.Duration(cfg.Workers.ReuseWindowHours) * time.Hour
	documentService := service.NewDocumentService(documentRepo, summaryRepo, bus, store, reuseWindow)

	deps := handler.RouterDeps{
		Summaries: handler.NewSummaryHandler(documentService),
		Progress:  handler.NewProgressHandler(documentService, bus),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigin),
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{"^/api/v1/progress/.*"})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(ctx).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func buildCache(ctx context.Context, cfg config.RedisConfig) cache.Store {
	if cfg.Addr == "" {
		logutil.GetLogger(ctx).Info("redis not configured, using in-memory cache")
		return cache.NewMemory()
	}
	store, err := cache.NewRedis(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		logutil.GetLogger(ctx).Warn("redis unavailable, using in-memory cache", zap.Error(err))
		return cache.NewMemory()
	}
	return store
}

func addJob(scheduler schedule.Scheduler, j schedule.Job, spec string) {
	if spec == "" {
		return
	}
	if err := scheduler.Register(spec, j); err != nil {
		logutil.GetLogger(context.Background()).Error("failed to schedule job",
			zap.String("job", j.Name()), zap.Error(err))
	}
}
