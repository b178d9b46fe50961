package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorm.io/dorm"
	"dorm.io/dorm/dialects/sqlite"
	"dorm.io/dorm/gateway"
	"dorm.io/dorm/logger"
)

func writeDescriptors(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "descriptors.json")
	doc := `{
		"entities": [
			{"name": "movie", "fields": [
				{"name": "title", "type": "string"},
				{"name": "year", "type": "int"}
			]}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func resetViper(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestRootCommandListsSubcommands(t *testing.T) {
	resetViper(t)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--help"})
	require.NoError(t, root.Execute())

	for _, sub := range []string{"serve", "migrate", "version"} {
		assert.Contains(t, buf.String(), sub)
	}
}

func TestVersionCommand(t *testing.T) {
	resetViper(t)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())

	assert.Contains(t, buf.String(), "dormd dev")
}

func TestConfigDefaultsAndEnv(t *testing.T) {
	resetViper(t)
	setDefaults(viper.GetViper())
	setupEnv(viper.GetViper())

	cfg := loadConfig()
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "descriptors.json", cfg.Metadata.Path)
	assert.True(t, cfg.Migrate.Auto)
	assert.Equal(t, "console", cfg.Log.Format)

	t.Setenv("DORM_SERVER_LISTEN", ":9999")
	t.Setenv("DORM_DATABASE_DRIVER", "postgres")
	cfg = loadConfig()
	assert.Equal(t, ":9999", cfg.Server.Listen)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestBuildDialector(t *testing.T) {
	d, err := buildDialector("sqlite", ":memory:")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = buildDialector("postgres", "postgres://localhost/dorm")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = buildDialector("oracle", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestBuildLoggerLevels(t *testing.T) {
	cfg := &config{}
	for _, level := range []string{"silent", "error", "warn", "info", ""} {
		cfg.Log.Level = level
		cfg.Log.Format = "json"
		assert.NotNil(t, buildLogger(cfg), level)
	}
}

func TestServerMountsGateway(t *testing.T) {
	e, err := dorm.Open(sqlite.Open(":memory:"), &dorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, e.RegisterFile(writeDescriptors(t)))
	require.NoError(t, e.Migrator().AutoMigrate(context.Background()))

	cfg := &config{}
	cfg.Server.Listen = ":0"
	srv, err := newServer(cfg, gateway.New(e))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	body := strings.NewReader(`{"title": "Heat", "year": 1995}`)
	r := httptest.NewRequest(http.MethodPost, "/records/movie", body)
	r.Header.Set("X-Actor", "michael")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records/movie", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Data []struct {
			CreatedBy string `json:"created_by"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "michael", payload.Data[0].CreatedBy)
}

func TestMigrateDryRun(t *testing.T) {
	resetViper(t)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{
		"migrate", "--dry-run",
		"--driver", "sqlite", "--dsn", ":memory:",
		"--metadata", writeDescriptors(t),
	})
	require.NoError(t, root.Execute())

	assert.Contains(t, buf.String(), "CREATE TABLE")
	assert.Contains(t, buf.String(), "movies")
}

func TestMigrateApplies(t *testing.T) {
	resetViper(t)

	dsn := filepath.Join(t.TempDir(), "dorm.db")
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{
		"migrate",
		"--driver", "sqlite", "--dsn", dsn,
		"--metadata", writeDescriptors(t),
	})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "schema is up to date")
}
