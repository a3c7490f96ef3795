package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/app/quota"
	"quiz-progress-service/internal/config"
	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/infra/memory"
	"quiz-progress-service/internal/infra/postgres"
	infraredis "quiz-progress-service/internal/infra/redis"
	"quiz-progress-service/internal/logger"
	transport "quiz-progress-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progress server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backend holds the wired infrastructure and closes it on shutdown.
type backend struct {
	courses app.CourseRepository
	store   app.ProgressStore
	locks   app.UserLocker
	closers []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret not configured (set it in the config file or JWT_SECRET)")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	be, err := buildBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	hub := app.NewEventHub()
	service := app.NewProgressService(be.courses, be.store, be.locks, hub, log, app.Options{
		PassingScore:         cfg.Rewards.PassingScore,
		ExamUnlockPercentage: cfg.Rewards.ExamUnlockPercentage,
		MaxRetries:           cfg.Progress.MaxRetries,
		Quota:                quotaLimits(cfg),
	})
	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, hub, auth, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting progress service", "port", finalPort, "backend", cfg.Progress.Backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildBackend(ctx context.Context, cfg config.Config, log *logger.Logger) (*backend, error) {
	be := &backend{}
	fail := func(err error) (*backend, error) {
		be.close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = newRedisClient(cfg)
		be.closers = append(be.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fail(err)
		}
	}

	var (
		pool *pgxpool.Pool
		db   *bun.DB
	)
	if cfg.Postgres.URL != "" {
		var err error
		db, err = openBun(cfg)
		if err != nil {
			return fail(err)
		}
		be.closers = append(be.closers, func() { _ = db.Close() })
		if err := runMigrations(ctx, db, log); err != nil {
			return fail(err)
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fail(err)
		}
		be.closers = append(be.closers, pool.Close)
	}

	var loader memory.CourseLoader
	if pool != nil {
		loader = postgres.NewCourseLoader(pool)
	} else {
		loader = memory.NewStaticCourseLoader(seedCourses(cfg, log))
	}
	if redisClient != nil {
		be.courses = newRedisCourseCache(redisClient, cfg, loader)
	} else {
		be.courses = memory.NewCourseRepository(loader, config.TTLDuration(cfg.Course.TTL, 10*time.Minute))
	}

	lockTTL := config.TTLDuration(cfg.Redis.LockTTL, 5*time.Second)
	switch cfg.Progress.Backend {
	case config.BackendRedis:
		be.store = infraredis.NewProgressStore(redisClient)
	case config.BackendPostgres:
		be.store = postgres.NewProgressStore(db)
	default:
		be.store = memory.NewProgressStore()
	}
	if redisClient != nil && cfg.Progress.Backend != config.BackendMemory {
		be.locks = infraredis.NewUserLocker(redisClient, lockTTL, lockTTL)
	} else {
		be.locks = memory.NewUserLocker()
	}
	return be, nil
}

func newRedisCourseCache(client *redis.Client, cfg config.Config, loader memory.CourseLoader) *infraredis.CourseRepository {
	return infraredis.NewCourseRepository(client, loader, config.TTLDuration(cfg.Course.TTL, 10*time.Minute))
}

// seedCourses loads the configured catalogue for deployments without postgres.
func seedCourses(cfg config.Config, log *logger.Logger) map[string]domain.Course {
	if cfg.Course.SeedFile == "" {
		return nil
	}
	courses, err := memory.LoadCourseFile(cfg.Course.SeedFile)
	if err != nil {
		log.Warn("course catalogue not loaded", "file", cfg.Course.SeedFile, "error", err)
		return nil
	}
	return memory.CoursesBySlug(courses)
}

func quotaLimits(cfg config.Config) quota.Limits {
	limits := quota.DefaultLimits()
	if cfg.Rewards.FreeDailyQuota > 0 {
		limits.Free = cfg.Rewards.FreeDailyQuota
	}
	if cfg.Rewards.PaidDailyQuota > 0 {
		limits.Paid = cfg.Rewards.PaidDailyQuota
	}
	return limits
}
