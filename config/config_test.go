package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, names := range providerKeyEnv {
		for _, name := range names {
			t.Setenv(name, "")
		}
	}
	t.Setenv("LLM_API_KEY", "")
}

// TestLoadDefaults 测试配置文件不存在时使用默认值
func TestLoadDefaults(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 180*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "paragraph", cfg.Compression.ChunkStrategy)
	assert.Equal(t, "pairwise", cfg.Compression.ContradictionMode)
	assert.Equal(t, 3, cfg.Compression.MinSharedTokens)
	assert.Equal(t, 4, cfg.Compression.BatchConcurrency)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, time.Hour, cfg.CacheTTL())
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, int64(32<<20), cfg.MaxUploadSize())
	assert.False(t, cfg.Queue.Enable)
}

// TestLoadFromFile 测试读取配置文件与环境变量替换
func TestLoadFromFile(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("MY_REDIS_PASSWORD", "secret")

	path := writeConfig(t, `
server:
  port: 9090
  mode: debug
compression:
  chunk_strategy: sentence
  contradiction_mode: bucketed
  extract_workers: 4
llm:
  provider: openai
  model: gpt-4o-mini
  timeout: 30s
cache:
  type: redis
  address: localhost:6379
  password: ${MY_REDIS_PASSWORD}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "sentence", cfg.Compression.ChunkStrategy)
	assert.Equal(t, "bucketed", cfg.Compression.ContradictionMode)
	assert.Equal(t, 4, cfg.Compression.ExtractWorkers)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "secret", cfg.Cache.Password)
	// 未设置的项保持默认值
	assert.Equal(t, 1000, cfg.Compression.MaxChunkSize)
}

// TestLoadEnvOverride 测试环境变量覆盖与API密钥查找
func TestLoadEnvOverride(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "google-key", cfg.LLM.APIKey)

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)

	t.Setenv("LLM_API_KEY", "explicit-key")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "explicit-key", cfg.LLM.APIKey)
}

// TestLoadDotEnv 测试加载配置文件目录下的 .env
func TestLoadDotEnv(t *testing.T) {
	clearKeyEnv(t)
	os.Unsetenv("GEMINI_API_KEY")

	path := writeConfig(t, "server:\n  port: 8081\n")
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("GEMINI_API_KEY=from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("GEMINI_API_KEY") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.LLM.APIKey)
}

// TestLoadValidation 测试非法配置
func TestLoadValidation(t *testing.T) {
	clearKeyEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"bad provider", "llm:\n  provider: claude\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"bad contradiction mode", "compression:\n  contradiction_mode: fuzzy\n"},
		{"redis without address", "cache:\n  type: redis\n"},
		{"minio without endpoint", "storage:\n  type: minio\n"},
		{"bad log level", "log:\n  level: verbose\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}

	_, err := Load(writeConfig(t, "server: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
