package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Engine.QueryTimeout)
	assert.Equal(t, "performed", cfg.Engine.Exclusion)
	assert.Equal(t, "both", cfg.Engine.SimilarityDirection)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	// Arrange
	path := writeFile(t, `
server:
  environment: staging
engine:
  query_timeout: 750ms
  fan_out: 4
store:
  driver: sqlite
sqlite:
  path: /tmp/graph.db
`)
	t.Setenv("FAN_OUT", "16")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Server.Environment)
	assert.Equal(t, 750*time.Millisecond, cfg.Engine.QueryTimeout)
	assert.Equal(t, 16, cfg.Engine.FanOut)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/graph.db", cfg.SQLite.Path)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_UnknownYAMLField(t *testing.T) {
	path := writeFile(t, "engine:\n  query_timout: 1s\n")

	_, err := Load(path)

	assert.ErrorContains(t, err, "query_timout")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Store.Driver = "cassandra" }, "Driver"},
		{"neo4j without uri", func(c *Config) { c.Store.Driver = DriverNeo4j }, "NEO4J_URI"},
		{"remote without backend", func(c *Config) { c.Engine.Executor = ExecutorRemote }, "RECOMMEND_BASE_URL"},
		{"snapshot without backend", func(c *Config) { c.Store.Driver = DriverSnapshot }, "RECOMMEND_BASE_URL"},
		{"bad backend url", func(c *Config) { c.Backend.BaseURL = "not a url" }, "BaseURL"},
		{"zero timeout", func(c *Config) { c.Engine.QueryTimeout = 0 }, "QueryTimeout"},
		{"bad exclusion", func(c *Config) { c.Engine.Exclusion = "recommended" }, "Exclusion"},
		{"eventbridge without bus", func(c *Config) {
			c.Events.Publisher = "eventbridge"
			c.Events.BusName = ""
		}, "EVENT_BUS_NAME"},
		{"remote with backend", func(c *Config) {
			c.Engine.Executor = ExecutorRemote
			c.Backend.BaseURL = "http://localhost:8000"
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
