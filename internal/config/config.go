package config

import (
	"errors"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingPassword is returned when POSTGRESQL_PASSWORD is not set.
var ErrMissingPassword = errors.New("POSTGRESQL_PASSWORD environment variable is required")

// Config holds all configuration for the crawler and worker
type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Elasticsearch ESConfig
	Crawler       CrawlerConfig
	Worker        WorkerConfig
}

type AppConfig struct {
	APIBaseURL  string
	Environment string
	LogLevel    string
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DB       string
	SSLMode  string
	// Pool sizing: PoolSize idle connections, up to PoolSize+MaxOverflow open
	PoolSize    int
	MaxOverflow int
	PoolRecycle time.Duration
	// Log every statement at debug level
	Echo bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Queue names
	JobQueue string
}

type ESConfig struct {
	Enabled   bool
	Addresses []string
	Index     string
}

type CrawlerConfig struct {
	// Rate limiting
	RequestDelay  time.Duration
	RatePerSecond float64
	MaxRetries    int
	MaxPages      int
	// How often the scheduler runs every source
	Interval  time.Duration
	ProxyURL  string
	UserAgent string
	// Source endpoints
	SaraminListURL    string
	RocketpunchAPIURL string
}

type WorkerConfig struct {
	// Number of concurrent workers
	Concurrency int
	// Records per bulk index call
	BatchSize int
}

// Load reads .env (if present) and the environment, applying defaults.
func Load() *Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	return &Config{
		App: AppConfig{
			APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8000"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		},
		Postgres: PostgresConfig{
			Host:        getEnv("POSTGRESQL_HOST", "localhost"),
			Port:        getEnvInt("POSTGRESQL_PORT", 5432),
			User:        getEnv("POSTGRESQL_USER", "jobflow"),
			Password:    os.Getenv("POSTGRESQL_PASSWORD"),
			DB:          getEnv("POSTGRESQL_DB", "jobflow"),
			SSLMode:     getEnv("POSTGRESQL_SSLMODE", "disable"),
			PoolSize:    getEnvInt("DB_POOL_SIZE", 5),
			MaxOverflow: getEnvInt("DB_MAX_OVERFLOW", 10),
			PoolRecycle: getEnvDuration("DB_POOL_RECYCLE", time.Hour),
			Echo:        getEnvBool("SQL_ECHO", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			JobQueue: getEnv("REDIS_JOB_QUEUE", "jobs:raw"),
		},
		Elasticsearch: ESConfig{
			Enabled:   getEnvBool("ELASTICSEARCH_ENABLED", false),
			Addresses: strings.Split(getEnv("ELASTICSEARCH_URL", "http://localhost:9200"), ","),
			Index:     getEnv("ELASTICSEARCH_INDEX", "job_postings"),
		},
		Crawler: CrawlerConfig{
			RequestDelay:      time.Duration(getEnvInt("CRAWLER_DELAY_MS", 1000)) * time.Millisecond,
			RatePerSecond:     getEnvFloat("CRAWLER_RATE_PER_SECOND", 1),
			MaxRetries:        getEnvInt("CRAWLER_MAX_RETRIES", 3),
			MaxPages:          getEnvInt("CRAWLER_MAX_PAGES", 10),
			Interval:          getEnvDuration("CRAWLER_INTERVAL", time.Hour),
			ProxyURL:          getEnv("PROXY_URL", ""),
			UserAgent:         getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
			SaraminListURL:    getEnv("SARAMIN_LIST_URL", "https://www.saramin.co.kr/zf_user/search/recruit?cat_mcls=2&recruitPageCount=40"),
			RocketpunchAPIURL: getEnv("ROCKETPUNCH_API_URL", "https://www.rocketpunch.com/api/jobs/template"),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 5),
			BatchSize:   getEnvInt("WORKER_BATCH_SIZE", 100),
		},
	}
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

// DatabaseURL builds the postgres connection URL, escaping credentials.
func (p PostgresConfig) DatabaseURL() (string, error) {
	if p.Password == "" {
		return "", ErrMissingPassword
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.DB,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String(), nil
}

// MaxOpenConns is the pool's hard limit
func (p PostgresConfig) MaxOpenConns() int {
	return p.PoolSize + p.MaxOverflow
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("90m") or plain seconds ("3600")
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
