package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "skinsense")
	t.Setenv("DB_PASSWORD", "hunter2")
	t.Setenv("DB_NAME", "skinsense_prod")
	t.Setenv("DB_SSL_MODE", "require")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_URL", "redis://cache.internal:6379")
	t.Setenv("SECRETS_DIR", t.TempDir())

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "5433", cfg.DBPort)
	assert.Equal(t, "skinsense", cfg.DBUser)
	assert.Equal(t, "hunter2", cfg.DBPassword)
	assert.Equal(t, "skinsense_prod", cfg.DBName)
	assert.Equal(t, "require", cfg.DBSSLMode)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "redis://cache.internal:6379", cfg.RedisURL)
}

func TestLoadConfigWithDefaults(t *testing.T) {
	for _, key := range []string{
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"DB_SSL_MODE", "JWT_SECRET", "REDIS_URL", "REDIS_HOST", "REDIS_PORT",
	} {
		os.Unsetenv(key)
	}
	t.Setenv("SECRETS_DIR", t.TempDir())

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "postgres", cfg.DBUser)
	assert.Equal(t, "postgres", cfg.DBPassword)
	assert.Equal(t, "skinsense", cfg.DBName)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, "dev-secret-change-me", cfg.JWTSecret)
	assert.Equal(t, "", cfg.RedisURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}

func TestRedisHostPortWithoutURL(t *testing.T) {
	os.Unsetenv("REDIS_URL")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_PASSWORD", "redispass")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SECRETS_DIR", t.TempDir())

	cfg, err := LoadConfig()
	assert.NoError(t, err)

	assert.Equal(t, "", cfg.RedisURL)
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
	assert.Equal(t, "redispass", cfg.RedisPassword)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestSecretsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/jwt_secret", []byte("from-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SECRETS_DIR", dir)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "from-secret", cfg.JWTSecret)
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBHost: "localhost", DBPort: "5432", DBUser: "postgres",
		DBPassword: "postgres", DBName: "skinsense", DBSSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=skinsense sslmode=disable",
		cfg.DSN())
}
