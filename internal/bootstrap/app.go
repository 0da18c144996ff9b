package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"offerdesk/internal/ai"
	"offerdesk/internal/app"
	"offerdesk/internal/cache"
	"offerdesk/internal/chunking"
	"offerdesk/internal/config"
	"offerdesk/internal/model"
	"offerdesk/internal/offer"
	"offerdesk/internal/pkg/pdfextract"
	"offerdesk/internal/platform/blob"
	"offerdesk/internal/platform/database"
	"offerdesk/internal/platform/logger"
	rabbitmqClient "offerdesk/internal/platform/rabbitmq"
	redisClient "offerdesk/internal/platform/redis"
	"offerdesk/internal/ranking"
	"offerdesk/internal/repository"
	"offerdesk/internal/worker"
)

// Services are the application services shared by the HTTP layer and the
// job worker.
type Services struct {
	Auth       *app.AuthService
	Documents  *app.DocumentService
	Shares     *app.ShareService
	Retrieval  *app.RetrievalService
	QA         *app.QAService
	Comparison *app.ComparisonService
}

type App struct {
	Config    *config.Config
	Log       *logger.Logger
	DB        *gorm.DB
	Redis     *redis.Client
	MQConn    *amqp.Connection
	Blobs     blob.Store
	Services  Services
	JobWorker *worker.JobWorker

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := database.New(ctx, database.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.DatabaseDSN(),
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		LogLevel:     cfg.Database.LogLevel,
	})
	if err != nil {
		return err
	}
	a.DB = db
	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
	}

	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.App.Name)
		if err != nil {
			return err
		}
	}

	a.Blobs, err = newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	catalog := offer.DefaultCatalog()
	if cfg.Comparison.CatalogPath != "" {
		catalog, err = offer.LoadCatalog(cfg.Comparison.CatalogPath)
		if err != nil {
			return err
		}
	}

	llm := ai.NewOpenAICompatibleClient(time.Duration(cfg.LLM.TimeoutSeconds) * time.Second)
	chatCfg := ai.ChatConfig{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model}
	embedder := ai.NewEmbedder(llm, ai.EmbeddingConfig{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey, Model: cfg.LLM.EmbeddingModel})

	collections := repository.NewCollectionRepository(db)
	documents := repository.NewDocumentRepository(db)
	chunks := repository.NewChunkRepository(db)
	offers := repository.NewOfferRepository(db)

	var comparisonCache app.ComparisonCache
	if a.Redis != nil {
		comparisonCache = cache.NewComparisonCache(a.Redis, time.Duration(cfg.Redis.ComparisonTTLSeconds)*time.Second)
	}

	deps := app.DocumentDeps{
		DB:          db,
		Collections: collections,
		Documents:   documents,
		Chunks:      chunks,
		OfferRepo:   offers,
		Blobs:       a.Blobs,
		Extractor:   pdfextract.New(),
		Cache:       comparisonCache,
		Catalog:     catalog,
		Log:         a.Log,
	}
	if cfg.Chunking.Embed {
		deps.Embedder = embedder
	}
	if cfg.LLM.APIKey != "" {
		deps.Offers = ai.NewOfferExtractor(llm, chatCfg)
	} else {
		a.Log.Warn("llm api key is empty, offer extraction disabled")
	}
	if a.MQConn != nil {
		deps.Jobs = rabbitmqClient.NewJobPublisher(a.MQConn, cfg.RabbitMQ.JobQueue)
	}

	docService, err := app.NewDocumentService(deps, app.DocumentOptions{
		Chunking:       chunking.Options{ChunkSize: cfg.Chunking.ChunkSize, Overlap: cfg.Chunking.Overlap},
		ReembedTimeout: time.Duration(cfg.Chunking.RequestTimeoutSeconds) * time.Second,
		MaxFiles:       cfg.Upload.MaxFiles,
		MaxFileBytes:   cfg.Upload.MaxFileBytes,
	})
	if err != nil {
		return err
	}

	var ranker ranking.Ranker = ranking.NewLexicalRanker()
	if strings.EqualFold(cfg.Retrieval.Ranker, "embedding") {
		ranker = ranking.NewEmbeddingRanker(embedder, 0)
	}
	retrieval := app.NewRetrievalService(collections, chunks, ranker, cfg.Retrieval.DefaultTopK, cfg.Retrieval.MaxTopK)

	a.Services = Services{
		Auth: app.NewAuthService(
			db,
			repository.NewUserRepository(db),
			repository.NewOrganizationRepository(db),
			cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		),
		Documents:  docService,
		Shares:     app.NewShareService(repository.NewShareReferenceRepository(db), collections, documents, a.Log),
		Retrieval:  retrieval,
		QA:         app.NewQAService(retrieval, ai.NewChat(llm, chatCfg)),
		Comparison: app.NewComparisonService(collections, documents, offers, comparisonCache, catalog, a.Log),
	}

	if a.MQConn != nil {
		a.JobWorker = worker.NewJobWorker(
			a.MQConn,
			jobHandler(docService),
			cfg.RabbitMQ.JobQueue,
			cfg.RabbitMQ.Prefetch,
			time.Duration(cfg.RabbitMQ.JobTimeoutSeconds)*time.Second,
			a.Log,
		)
		if err := a.JobWorker.Start(ctx); err != nil {
			return fmt.Errorf("start job worker failed: %w", err)
		}
	}
	return nil
}

// jobHandler marks errors that will not go away on retry as permanent.
func jobHandler(docs *app.DocumentService) worker.HandlerFunc {
	return func(ctx context.Context, job model.DocumentJob) error {
		err := docs.HandleJob(ctx, job)
		if errors.Is(err, app.ErrNotFound) || errors.Is(err, app.ErrInvalidInput) || errors.Is(err, app.ErrNoContent) {
			return fmt.Errorf("%w: %w", worker.ErrPermanent, err)
		}
		return err
	}
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (blob.Store, error) {
	if strings.EqualFold(cfg.Driver, blob.DriverGCS) {
		store, err := blob.NewGCS(ctx, blob.GCSOptions{
			Bucket:          cfg.GCSBucket,
			Prefix:          cfg.GCSPrefix,
			CredentialsFile: cfg.GCSCredentialsFile,
			EmulatorHost:    cfg.GCSEmulatorHost,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := blob.NewLocal(cfg.LocalRoot)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.JobWorker != nil {
		a.JobWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if c, ok := a.Blobs.(io.Closer); ok {
		if err := c.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
