package config

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "API_BASE_URL", "ENVIRONMENT", "LOG_LEVEL",
		"POSTGRESQL_HOST", "POSTGRESQL_PORT", "POSTGRESQL_USER", "POSTGRESQL_PASSWORD", "POSTGRESQL_DB",
		"DB_POOL_SIZE", "DB_MAX_OVERFLOW", "DB_POOL_RECYCLE", "SQL_ECHO",
		"REDIS_JOB_QUEUE", "ELASTICSEARCH_INDEX", "ELASTICSEARCH_ENABLED",
		"WORKER_CONCURRENCY", "WORKER_BATCH_SIZE", "CRAWLER_INTERVAL")

	cfg := Load()

	assert.Equal(t, "http://localhost:8000", cfg.App.APIBaseURL)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "INFO", cfg.App.LogLevel)
	assert.False(t, cfg.IsProduction())

	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "jobflow", cfg.Postgres.User)
	assert.Equal(t, "jobflow", cfg.Postgres.DB)
	assert.Equal(t, 5, cfg.Postgres.PoolSize)
	assert.Equal(t, 10, cfg.Postgres.MaxOverflow)
	assert.Equal(t, 15, cfg.Postgres.MaxOpenConns())
	assert.Equal(t, time.Hour, cfg.Postgres.PoolRecycle)
	assert.False(t, cfg.Postgres.Echo)

	assert.Equal(t, "jobs:raw", cfg.Redis.JobQueue)
	assert.Equal(t, "job_postings", cfg.Elasticsearch.Index)
	assert.False(t, cfg.Elasticsearch.Enabled)
	assert.Equal(t, 5, cfg.Worker.Concurrency)
	assert.Equal(t, 100, cfg.Worker.BatchSize)
	assert.Equal(t, time.Hour, cfg.Crawler.Interval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("POSTGRESQL_PORT", "6543")
	t.Setenv("DB_POOL_RECYCLE", "1800")
	t.Setenv("SQL_ECHO", "true")
	t.Setenv("ELASTICSEARCH_URL", "http://es1:9200,http://es2:9200")
	t.Setenv("CRAWLER_INTERVAL", "30m")
	t.Setenv("WORKER_BATCH_SIZE", "not-a-number")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t, 30*time.Minute, cfg.Postgres.PoolRecycle)
	assert.True(t, cfg.Postgres.Echo)
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, 30*time.Minute, cfg.Crawler.Interval)
	assert.Equal(t, 100, cfg.Worker.BatchSize)
}

func TestDatabaseURL(t *testing.T) {
	t.Run("missing password", func(t *testing.T) {
		_, err := PostgresConfig{Host: "localhost", Port: 5432, User: "jobflow", DB: "jobflow"}.DatabaseURL()
		assert.True(t, errors.Is(err, ErrMissingPassword))
	})

	t.Run("credentials are escaped", func(t *testing.T) {
		p := PostgresConfig{Host: "db.internal", Port: 5432, User: "jobflow", Password: "p@ss:w/rd", DB: "jobflow", SSLMode: "require"}
		dsn, err := p.DatabaseURL()
		require.NoError(t, err)

		u, err := url.Parse(dsn)
		require.NoError(t, err)
		assert.Equal(t, "postgres", u.Scheme)
		assert.Equal(t, "db.internal:5432", u.Host)
		assert.Equal(t, "/jobflow", u.Path)
		pass, _ := u.User.Password()
		assert.Equal(t, "p@ss:w/rd", pass)
		assert.Equal(t, "require", u.Query().Get("sslmode"))
	})
}
