package cli

import (
	"fmt"

	"quiz-progress-service/internal/config"
	"quiz-progress-service/internal/infra/memory"
	"quiz-progress-service/internal/infra/postgres"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewSeedCmd upserts course documents from a YAML catalogue into postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load courses from a YAML file into postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			if file == "" {
				file = cfg.Course.SeedFile
			}
			if file == "" {
				return fmt.Errorf("no course file given, use --file or course.seed_file")
			}
			courses, err := memory.LoadCourseFile(file)
			if err != nil {
				return err
			}

			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := runMigrations(ctx, db, log); err != nil {
				return err
			}
			if err := postgres.NewCourseStore(db).Upsert(ctx, courses...); err != nil {
				return err
			}

			// drop stale cached copies so the next read sees the new content
			if cfg.Redis.Addr != "" {
				client := newRedisClient(cfg)
				defer client.Close()
				cache := newRedisCourseCache(client, cfg, nil)
				for _, c := range courses {
					if err := cache.Invalidate(ctx, c.Slug); err != nil {
						log.Warn("course cache invalidation failed", "course", c.Slug, "error", err)
					}
				}
			}
			log.Info("courses seeded", "count", len(courses), "file", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML course catalogue (defaults to course.seed_file)")
	return cmd
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
