package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"face-auth-backend/internal/attempts"
	"face-auth-backend/internal/faces"
	"face-auth-backend/internal/queue"
	"face-auth-backend/internal/recognition"
	"face-auth-backend/internal/services/health"
	"face-auth-backend/internal/shared/config"
	"face-auth-backend/internal/shared/server"
	"face-auth-backend/internal/shared/storage/db"
	"face-auth-backend/internal/shared/storage/object"
	localstore "face-auth-backend/internal/shared/storage/object/local"
	s3store "face-auth-backend/internal/shared/storage/object/s3"
	"face-auth-backend/internal/shared/telemetry"
)

// faceAuthPrefix is the key segment under S3_PREFIX that holds enrollments.
const faceAuthPrefix = "face_auth"

// App holds shared dependencies built once from Config.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Store       object.ObjectStore
	Recognizer  recognition.Recognizer
	Attempts    attempts.Repo
	Events      queue.Client
	Health      *health.Service
	FaceService *faces.Service
	FaceHandler *faces.Handler
}

// Options overrides pieces of the graph, mostly for tests and the CLI.
type Options struct {
	Store      object.ObjectStore
	Recognizer recognition.Recognizer
	Events     queue.Client
	// SkipRouter leaves App.Router nil for commands that do not serve HTTP.
	SkipRouter bool
}

// Build prepares shared dependencies and wires routes.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	store := opts.Store
	if store == nil {
		var err error
		store, err = buildStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	recognizer := opts.Recognizer
	if recognizer == nil {
		var err error
		recognizer, err = buildRecognizer(cfg)
		if err != nil {
			return nil, err
		}
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		_ = recognizer.Close()
		return nil, err
	}

	var repo attempts.Repo
	if sqlDB != nil {
		repo = &attempts.PGRepo{DB: sqlDB}
	} else {
		repo = attempts.NewMemoryRepo()
	}

	events := opts.Events
	if events == nil && strings.TrimSpace(cfg.AttemptEventsSQSURL) != "" {
		client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.AttemptEventsSQSURL)
		if err != nil {
			_ = recognizer.Close()
			if sqlDB != nil {
				sqlDB.Close()
			}
			return nil, err
		}
		events = client
	}
	if events != nil {
		repo = &attempts.PublishingRepo{Repo: repo, Publisher: queue.AttemptPublisher{Client: events}}
	}

	svc := &faces.Service{
		Store:       faces.NewStore(store, cfg.FetchTimeout),
		Recognizer:  recognizer,
		Attempts:    repo,
		Tolerance:   cfg.MatchTolerance,
		Concurrency: cfg.VerifyConcurrency,
	}

	app := &App{
		Config:      cfg,
		DB:          sqlDB,
		Store:       store,
		Recognizer:  recognizer,
		Attempts:    repo,
		Events:      events,
		Health:      health.NewService(),
		FaceService: svc,
		FaceHandler: faces.NewHandler(svc),
	}
	if sqlDB != nil {
		app.Health.Register("database", sqlDB.PingContext)
	}

	if !opts.SkipRouter {
		app.Router = server.NewRouter(server.RouterDeps{
			Config:      cfg,
			FaceHandler: app.FaceHandler,
			Health:      app.Health,
		})
	}

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"recognizer":   cfg.RecognizerType,
		"attempts_db":  sqlDB != nil,
		"events":       events != nil,
	})
	return app, nil
}

// Close releases the recognizer and database pool.
func (a *App) Close() error {
	var errs []error
	if a.Recognizer != nil {
		errs = append(errs, a.Recognizer.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_attempts", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultServerOptions().Merge(db.Options(cfg.DBPool)))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			sqlDB.Close()
			err = fmt.Errorf("run migrations: %w", err)
		}
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_attempts", map[string]any{"reason": "database unavailable", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, s3store.Options{
			Region:     cfg.AWSRegion,
			Bucket:     cfg.S3Bucket,
			Prefix:     s3store.JoinPrefix(cfg.S3Prefix, faceAuthPrefix),
			KMSKeyID:   cfg.SSEKMSKeyID,
			PresignTTL: cfg.PresignTTL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildRecognizer(cfg config.Config) (recognition.Recognizer, error) {
	switch cfg.RecognizerType {
	case "dlib":
		return recognition.NewDlib(cfg.RecognizerModelsDir)
	default:
		return recognition.NewHTTPClient(cfg.RecognizerURL, cfg.RecognizerTimeout)
	}
}
