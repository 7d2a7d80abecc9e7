package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// MemoryDSN selects the in-process store instead of Postgres.
const MemoryDSN = "memory://"

type Config struct {
	Addr                 string        `env:"ADDR,default=:8080"`
	DatabaseURL          string        `env:"DATABASE_URL,default=memory://"`
	SessionLifetimeHours int           `env:"SESSION_LIFETIME_HOURS,default=24"`
	PageLimit            int           `env:"PAGE_LIMIT,default=10"`
	CacheTTL             time.Duration `env:"CACHE_TTL,default=20s"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	MediaDir             string        `env:"MEDIA_DIR,default=./media"`
	MaxImageBytes        int64         `env:"MAX_IMAGE_BYTES,default=5242880"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT,default=3s"`
	LogLevel             string        `env:"LOG_LEVEL,default=info"`
	LogFormat            string        `env:"LOG_FORMAT,default=text"`
	LoginRatePerSec      float64       `env:"LOGIN_RATE_PER_SEC,default=1"`
	LoginBurst           int           `env:"LOGIN_BURST,default=5"`
}

// LoadConfig reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	if cfg.SessionLifetimeHours <= 0 {
		cfg.SessionLifetimeHours = 24
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 10
	}
	return cfg, nil
}

func (c Config) SessionLifetime() time.Duration {
	return time.Duration(c.SessionLifetimeHours) * time.Hour
}

func (c Config) UseMemoryStore() bool {
	return c.DatabaseURL == "" || strings.HasPrefix(c.DatabaseURL, MemoryDSN)
}

// NewLogger builds the process logger. format is "text" or "json".
func NewLogger(level, format string) *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

func Must(err error) {
	if err != nil {
		logrus.Fatal(err)
	}
}
