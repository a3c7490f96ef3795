package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode     string `yaml:"mode"`
		HashSalt string `yaml:"hash_salt"`
	} `yaml:"log"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		LockTTL  string `yaml:"lock_ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Course struct {
		TTL      string `yaml:"ttl"`
		SeedFile string `yaml:"seed_file"`
	} `yaml:"course"`
	Progress struct {
		Backend    string `yaml:"backend"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"progress"`
	Rewards struct {
		PassingScore         int `yaml:"passing_score"`
		ExamUnlockPercentage int `yaml:"exam_unlock_percentage"`
		FreeDailyQuota       int `yaml:"free_daily_quota"`
		PaidDailyQuota       int `yaml:"paid_daily_quota"`
	} `yaml:"rewards"`
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Default returns the configuration used when no file overrides a value.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Mode = "prod"
	cfg.Auth.Issuer = "quiz-progress"
	cfg.Redis.TTL = "10m"
	cfg.Redis.LockTTL = "5s"
	cfg.Course.TTL = "10m"
	cfg.Progress.Backend = BackendMemory
	cfg.Progress.MaxRetries = 3
	cfg.Rewards.PassingScore = 50
	cfg.Rewards.ExamUnlockPercentage = 90
	cfg.Rewards.FreeDailyQuota = 1
	cfg.Rewards.PaidDailyQuota = 5
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file is not
// an error so the service can start from defaults and environment alone.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	return cfg, cfg.Validate()
}

// Validate rejects combinations the service cannot start with.
func (c Config) Validate() error {
	switch c.Progress.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("progress backend %q requires redis.addr", c.Progress.Backend)
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("progress backend %q requires postgres.url", c.Progress.Backend)
		}
	default:
		return fmt.Errorf("unknown progress backend %q", c.Progress.Backend)
	}
	if c.Rewards.PassingScore < 0 || c.Rewards.PassingScore > 100 {
		return fmt.Errorf("rewards.passing_score must be within 0..100")
	}
	if c.Rewards.ExamUnlockPercentage < 0 || c.Rewards.ExamUnlockPercentage > 100 {
		return fmt.Errorf("rewards.exam_unlock_percentage must be within 0..100")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
