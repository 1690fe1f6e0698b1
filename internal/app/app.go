package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/panjf2000/ants/v2"

	"WhereAmI/internal/config"
	"WhereAmI/internal/httpapi"
	"WhereAmI/internal/infrastructure/geocoder"
	"WhereAmI/internal/infrastructure/ratelimit"
	"WhereAmI/internal/infrastructure/speech"
	"WhereAmI/internal/infrastructure/storage"
	"WhereAmI/internal/infrastructure/wiki"
	"WhereAmI/internal/logging"
	"WhereAmI/internal/metrics"
	"WhereAmI/internal/ports"
	"WhereAmI/internal/usecase"
	"WhereAmI/internal/wikitext"
	"WhereAmI/pkg/logger"
)

const awsHTTPTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	handler  http.Handler
	pool     *ants.Pool
	db       *sql.DB
}

// New builds every adapter named in cfg and the HTTP handler in front of them.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	pool, err := ants.NewPool(cfg.Images.Workers, ants.WithPanicHandler(func(p interface{}) {
		baseLogger.Error("panic in worker pool", "panic", fmt.Sprint(p))
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	a.pool = pool

	transformer, err := wikitext.New(wikitext.Policy{
		MaxChars:            cfg.Transform.MaxChars,
		SentencesPerSection: cfg.Transform.SentencesPerSection,
		UnwantedHeadings:    cfg.Transform.UnwantedHeadings,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	pollySess, err := a.awsSession(cfg.Polly, true)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("polly session: %w", err)
	}
	s3Sess, err := a.awsSession(cfg.Narration.AWSConfig, true)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("s3 session: %w", err)
	}

	recorder, err := a.metricsBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var limiter ports.RateLimiter
	if cfg.RateLimit.Enabled {
		// Requests are keyed by client IP, so the SDK logger stays off here.
		limitSess, err := a.awsSession(cfg.RateLimit.Dynamo, false)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("rate limit session: %w", err)
		}
		limiter = ratelimit.NewDynamoLimiter(dynamodb.New(limitSess), cfg.RateLimit)
	}

	knowledge := wiki.NewKnowledgeBase(wiki.KnowledgeBaseConfig{
		Wikidata:  cfg.Wikidata,
		Wikipedia: cfg.Wikipedia,
		Images:    cfg.Images,
	}, nil, pool, logging.Component(baseLogger, "wiki.knowledge"))

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Places:       geocoder.NewClient(cfg.Mapbox, nil),
		Knowledge:    knowledge,
		Articles:     wiki.NewArticleClient(cfg.Wikipedia, nil),
		Transformer:  transformer,
		Images:       knowledge,
		Synthesizer:  speech.NewPolly(polly.New(pollySess), cfg.Speech),
		Narrations:   storage.NewS3NarrationStore(s3.New(s3Sess), nil, cfg.Narration, logging.Component(baseLogger, "storage.s3")),
		Metrics:      recorder,
		Logger:       logging.Component(baseLogger, "pipeline"),
		DefaultVoice: cfg.Speech.DefaultVoice,
	})

	a.handler = httpapi.NewRouter(a.pipeline, limiter, logging.Component(baseLogger, "http")).Handler()
	return a, nil
}

// Handler exposes the HTTP routes.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *Application) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the worker pool and the metrics database.
func (a *Application) Close() {
	if a.pool != nil {
		a.pool.Release()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close metrics database", "error", err)
		}
	}
}

// metricsBackend registers every configured backend and resolves the selected one.
func (a *Application) metricsBackend(ctx context.Context) (ports.MetricsRecorder, error) {
	cfg := a.cfg.Metrics
	registry := metrics.NewRegistry()
	registry.Register(metrics.NewLogBackend(logging.Component(a.logger, "metrics")))

	dynamoSess, err := a.awsSession(cfg.Dynamo, true)
	if err != nil {
		return nil, fmt.Errorf("metrics session: %w", err)
	}
	registry.Register(metrics.Named("dynamodb", storage.NewDynamoMetrics(dynamodb.New(dynamoSess), cfg.Table)))

	if cfg.Backend == "postgres" {
		db, err := storage.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db

		repo := storage.NewPostgresMetrics(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		registry.Register(metrics.Named("postgres", repo))
	}

	backend, err := registry.Resolve(cfg.Backend)
	if err != nil {
		return nil, err
	}
	a.logger.Info("metrics backend selected", "backend", backend.Name())
	return backend, nil
}

func (a *Application) awsSession(cfg config.AWSConfig, withLogger bool) (*session.Session, error) {
	awsCfg := aws.NewConfig().
		WithRegion(cfg.Region).
		WithHTTPClient(&http.Client{Timeout: awsHTTPTimeout})

	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if withLogger && a.cfg.Logging.Level == "debug" {
		awsCfg = awsCfg.WithLogger(logger.AWS("aws")).WithLogLevel(aws.LogDebug)
	}

	return session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
}
