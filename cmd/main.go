package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"vaultdrive/config"
	"vaultdrive/jobs"
	"vaultdrive/routes"
	"vaultdrive/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalw("failed to load configuration", "error", err)
	}
	cfg.LogSummary(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatalw("failed to connect to MongoDB", "error", err)
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			logger.Errorw("failed to disconnect MongoDB", "error", err)
		}
	}()

	if err := mongoClient.Ping(ctx, nil); err != nil {
		logger.Fatalw("failed to ping MongoDB", "error", err)
	}
	logger.Infow("connected to MongoDB", "database", cfg.DatabaseName)

	storageMgr, err := buildStorageManager(ctx, cfg, logger)
	if err != nil {
		logger.Fatalw("failed to initialize storage backends", "error", err)
	}

	db := mongoClient.Database(cfg.DatabaseName)
	container := routes.NewServiceContainer(db, storageMgr, logger, cfg.JWTSecret,
		cfg.MaxFileSize, cfg.MaxUserStorage, cfg.TrashRetention)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	api := router.Group("/api")
	routes.SetupRoutes(api, container)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"storage": storageMgr.ActiveProvider(c.Request.Context()),
			"time":    time.Now().UTC(),
		})
	})

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper := jobs.NewTrashSweeper(container.Trash, logger, cfg.TrashSweepInterval)
	go sweeper.Start(sweeperCtx)

	logger.Infow("starting server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatalw("server exited", "error", err)
	}
}

func newLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}

// buildStorageManager constructs every configured backend and hands them to
// the manager. At least one backend always exists, by config validation.
func buildStorageManager(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*storage.Manager, error) {
	var backends []storage.Backend

	if cfg.S3PrimaryBucket != "" {
		primary, err := storage.NewS3Backend(storage.S3Config{
			Name:            storage.ProviderS3Primary,
			Endpoint:        cfg.S3PrimaryEndpoint,
			Region:          cfg.S3PrimaryRegion,
			Bucket:          cfg.S3PrimaryBucket,
			AccessKeyID:     cfg.S3PrimaryAccessKey,
			SecretAccessKey: cfg.S3PrimarySecretKey,
			UsePathStyle:    cfg.S3PrimaryPathStyle,
			MaxPresignTTL:   cfg.S3PrimaryMaxSignedTTL,
		})
		if err != nil {
			return nil, err
		}
		backends = append(backends, primary)
	}

	if cfg.HasSecondaryS3() {
		secondary, err := storage.NewS3Backend(storage.S3Config{
			Name:            storage.ProviderS3Secondary,
			Endpoint:        cfg.S3SecondaryEndpoint,
			Region:          cfg.S3SecondaryRegion,
			Bucket:          cfg.S3SecondaryBucket,
			AccessKeyID:     cfg.S3SecondaryAccessKey,
			SecretAccessKey: cfg.S3SecondarySecretKey,
			UsePathStyle:    cfg.S3SecondaryPathStyle,
			MaxPresignTTL:   cfg.S3SecondaryMaxSignedTTL,
		})
		if err != nil {
			return nil, err
		}
		backends = append(backends, secondary)
	}

	if cfg.HasB2() {
		b2, err := storage.NewB2Backend(ctx, cfg.B2ApplicationKeyID, cfg.B2ApplicationKey, cfg.B2BucketName)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b2)
	}

	return storage.NewManager(storage.ManagerConfig{
		PreferredBackend: cfg.PreferredBackend,
		FallbackBackend:  cfg.FallbackBackend,
		RetryAttempts:    cfg.StorageRetryAttempts,
		RetryBaseDelay:   cfg.StorageRetryBaseDelay,
		ProbeTimeout:     cfg.StorageProbeTimeout,
	}, logger, backends...)
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			wildcard = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if wildcard {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
