package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/coursehub/internal/app/controllers"
	appMigrations "github.com/yigit/coursehub/internal/app/migrations"
	appRepos "github.com/yigit/coursehub/internal/app/repositories"
	appRoutes "github.com/yigit/coursehub/internal/app/routes"
	appServices "github.com/yigit/coursehub/internal/app/services"
	"github.com/yigit/coursehub/internal/config"
	"github.com/yigit/coursehub/internal/db"
	appMiddleware "github.com/yigit/coursehub/internal/middleware"
	pkgAuth "github.com/yigit/coursehub/internal/pkg/auth"
	"github.com/yigit/coursehub/internal/pkg/events"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
	"github.com/yigit/coursehub/internal/pkg/helpers"
	"github.com/yigit/coursehub/internal/pkg/logger"
	"github.com/yigit/coursehub/internal/pkg/metrics"
	"github.com/yigit/coursehub/internal/pkg/ratelimit"
	"github.com/yigit/coursehub/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Services       *appServices.Services
	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	AuthLimiter    appMiddleware.Limiter
	Metrics        *metrics.Metrics
	Publisher      events.Publisher
	Redis          *redis.Client
	Logger         zerolog.Logger
}

// Close releases the broker and cache connections.
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(filepath.Join("configs", "config.yaml"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  strings.EqualFold(cfg.Logging.Format, "text"),
		Service: "coursehub",
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase connects to PostgreSQL and applies pending migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Str("host", cfg.Database.Host).Str("dbname", cfg.Database.DBName).Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		return nil, err
	}

	applied, err := appMigrations.NewMigrator(database.Pool).MigrateFromDirectory(ctx, cfg.Database.MigrationsDir)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations complete")

	return database, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (filestorage.BlobStore, error) {
	if cfg.Storage.Driver == config.StorageDriverS3 {
		return filestorage.NewS3Storage(ctx, filestorage.S3Config{
			Bucket:       cfg.Storage.S3Bucket,
			Region:       cfg.Storage.S3Region,
			Endpoint:     cfg.Storage.S3Endpoint,
			AccessKey:    cfg.Storage.S3AccessKey,
			SecretKey:    cfg.Storage.S3SecretKey,
			UsePathStyle: cfg.Storage.S3UsePathStyle,
		})
	}
	return filestorage.NewLocalStorage(cfg.Storage.LocalPath)
}

func newPublisher(cfg *config.Config, lgr zerolog.Logger) events.Publisher {
	if cfg.AMQP.URL == "" {
		lgr.Info().Msg("No AMQP broker configured, domain events are discarded")
		return events.NoopPublisher{}
	}
	p, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		// events are best effort; the API keeps serving without a broker
		lgr.Error().Err(err).Msg("Failed to connect to AMQP broker, domain events are discarded")
		return events.NoopPublisher{}
	}
	timeout := helpers.ParseDuration(cfg.AMQP.PublishTimeout, events.DefaultPublishTimeout)
	return events.NewDispatcher(p, timeout)
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr, Metrics: metrics.New()}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	if cfg.RateLimit.Enabled {
		deps.Redis, err = ratelimit.NewRedisClient(ctx, cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB)
		if err != nil {
			return nil, err
		}
		deps.AuthLimiter = ratelimit.New(deps.Redis, ratelimit.Config{
			Prefix:         cfg.RateLimit.Prefix,
			Capacity:       cfg.RateLimit.Capacity,
			RefillTokens:   cfg.RateLimit.RefillTokens,
			RefillInterval: helpers.ParseDuration(cfg.RateLimit.RefillInterval, 6*time.Second),
			TTL:            helpers.ParseDuration(cfg.RateLimit.TTL, 10*time.Minute),
		})
		lgr.Info().Str("redis", cfg.RateLimit.RedisAddr).Int("capacity", cfg.RateLimit.Capacity).Msg("Rate limiting enabled")
	}

	deps.Publisher = newPublisher(cfg, lgr)

	jwtService := pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 24*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	limits := appServices.LimitsFromConfig(cfg)
	deps.Services = appServices.NewServices(appServices.Deps{
		Repos:     appRepos.NewRepositories(database),
		JWT:       jwtService,
		Blobs:     blobs,
		Publisher: deps.Publisher,
		Decisions: deps.Metrics,
		Delta:     deps.Metrics,
		Limits:    limits,
	})

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(jwtService, deps.Services.Authz)
	deps.Controllers = appRoutes.Controllers{
		Auth:       appControllers.NewAuthController(deps.Services.Auth),
		User:       appControllers.NewUserController(deps.Services.User),
		Course:     appControllers.NewCourseController(deps.Services.Course),
		Assignment: appControllers.NewAssignmentController(deps.Services.Assignment),
		Submission: appControllers.NewSubmissionController(deps.Services.Submission, limits.MaxUploadBytes),
		Health:     appControllers.NewHealthController(database),
	}

	if err := seed.CreateDefaultData(ctx, cfg, deps.Services.Auth); err != nil {
		lgr.Error().Err(err).Msg("Failed to create bootstrap admin, proceeding anyway...")
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(appMiddleware.Recovery(), appMiddleware.RequestLogger())
	if cfg.Metrics.Enabled {
		router.Use(appMiddleware.Metrics(deps.Metrics))
		router.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, deps.AuthLimiter)
	return router
}
