package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/workhub/breaker"
	"github.com/ceyewan/workhub/config"
	"github.com/ceyewan/workhub/connector"
	"github.com/ceyewan/workhub/testkit"
	"github.com/ceyewan/workhub/xerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		App:      Info{Name: "test-service"},
		HTTP:     HTTPConfig{Addr: "127.0.0.1:0"},
		Database: connector.Config{Driver: connector.DriverSQLite, SQLite: *testkit.NewSQLiteConfig()},
	}
	cfg.Log.Level = "error"
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

const serviceYAML = `
app:
  name: user-service
http:
  addr: ":18081"
log:
  level: info
database:
  driver: sqlite
  sqlite:
    path: "file:app-config?mode=memory&cache=shared"
breaker:
  default:
    window_size: 10
    failure_rate_threshold: 0.5
    minimum_calls: 4
    wait_duration: 30s
    permitted_trial_calls: 3
    required_consecutive_successes: 2
  dependencies:
    user-service:
      wait_duration: 5s
  counted_kinds: [unavailable, timeout]
  ignored_kinds: [not_found, conflict]
peers:
  task-service:
    base_url: "http://localhost:18083"
    timeout: 2s
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, "user-service", serviceYAML)

	cfg, loader, err := LoadConfig(context.Background(), "user-service", config.WithConfigPaths(dir))
	require.NoError(t, err)
	require.NotNil(t, loader)

	assert.Equal(t, "user-service", cfg.App.Name)
	assert.Equal(t, "dev", cfg.App.Version)
	assert.Equal(t, ":18081", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "user-service", cfg.Trace.ServiceName)
	assert.Equal(t, connector.DriverSQLite, cfg.Database.Driver)

	assert.Equal(t, 4, cfg.Breaker.Policies.Default.MinimumCalls)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Policies.Default.WaitDuration)
	assert.Equal(t, 5*time.Second, cfg.Breaker.Policies.Dependencies["user-service"].WaitDuration)
	assert.Equal(t, []string{"unavailable", "timeout"}, cfg.Breaker.Kinds.CountedKinds)
	assert.Equal(t, []string{"not_found", "conflict"}, cfg.Breaker.Kinds.IgnoredKinds)

	pc, err := cfg.Peer("task-service")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:18083", pc.BaseURL)
	assert.Equal(t, 2*time.Second, pc.Timeout)

	_, err = cfg.Peer("project-service")
	assert.True(t, config.IsInvalidInput(err))
}

func TestLoadConfigRejectsInvalidPolicy(t *testing.T) {
	dir := writeConfig(t, "bad-service", `
breaker:
  default:
    window_size: 4
    minimum_calls: 8
`)
	_, _, err := LoadConfig(context.Background(), "bad-service", config.WithConfigPaths(dir))
	assert.ErrorIs(t, err, breaker.ErrInvalidPolicy)

	dir = writeConfig(t, "kind-service", `
breaker:
  counted_kinds: [not_found]
  ignored_kinds: [not_found]
`)
	_, _, err = LoadConfig(context.Background(), "kind-service", config.WithConfigPaths(dir))
	require.Error(t, err)
}

func TestLoadConfigRejectsExplicitZeroOverride(t *testing.T) {
	tests := []struct {
		name string
		body string
		key  string
	}{
		{"threshold", "failure_rate_threshold: 0", "failure_rate_threshold"},
		{"minimum calls", "minimum_calls: 0", "minimum_calls"},
		{"wait", "wait_duration: 0s", "wait_duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfig(t, "zero-service", `
breaker:
  dependencies:
    task-service:
      `+tt.body+`
`)
			_, _, err := LoadConfig(context.Background(), "zero-service", config.WithConfigPaths(dir))
			require.ErrorIs(t, err, breaker.ErrInvalidPolicy)
			assert.Contains(t, err.Error(), tt.key)
		})
	}

	dir := writeConfig(t, "inherit-service", `
breaker:
  dependencies:
    task-service:
      wait_duration: 10s
`)
	cfg, _, err := LoadConfig(context.Background(), "inherit-service", config.WithConfigPaths(dir))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Breaker.Policies.Dependencies["task-service"].WaitDuration)
	assert.Zero(t, cfg.Breaker.Policies.Dependencies["task-service"].MinimumCalls, "unset fields stay zero and inherit the default")
}

func TestSetDefaultsFillsClassifierKinds(t *testing.T) {
	cfg := &Config{App: Info{Name: "svc"}}
	cfg.SetDefaults()
	assert.Contains(t, cfg.Breaker.Kinds.CountedKinds, "unavailable")
	assert.Contains(t, cfg.Breaker.Kinds.IgnoredKinds, "not_found")
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "svc", cfg.Metrics.ServiceName)
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	rt, err := Bootstrap(ctx, testConfig(t), WithModels(&widget{}))
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Shutdown(ctx)) }()

	require.NotNil(t, rt.Guard)
	require.NotNil(t, rt.Breakers)
	assert.True(t, rt.DB.DB(ctx).Migrator().HasTable(&widget{}))

	rt.Breakers.State("user-service")

	t.Run("healthz", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rt.Router().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Message string `json:"message"`
			Data    struct {
				Service  string            `json:"service"`
				Breakers map[string]string `json:"breakers"`
			} `json:"data"`
			Status int `json:"status"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Message)
		assert.Equal(t, "test-service", body.Data.Service)
		assert.Equal(t, breaker.StateClosed.String(), body.Data.Breakers["user-service"])
	})

	t.Run("request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(HeaderRequestID, "req-42")
		rt.Router().ServeHTTP(w, req)
		assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))

		w = httptest.NewRecorder()
		rt.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	})

	t.Run("healthz after database closed", func(t *testing.T) {
		require.NoError(t, rt.Conn.Close())
		w := httptest.NewRecorder()
		rt.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestBootstrapFailsOnMissingDatabasePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.SQLite.Path = ""
	_, err := Bootstrap(context.Background(), cfg)
	assert.ErrorIs(t, err, connector.ErrConfig)

	_, err = Bootstrap(context.Background(), nil)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestRequestIDFrom(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = RequestIDFrom(c.Request.Context()) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc", seen)
	assert.Empty(t, RequestIDFrom(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.HTTP.Addr = ln.Addr().String()
	require.NoError(t, ln.Close())

	rt, err := Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = rt.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.HTTP.Addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
