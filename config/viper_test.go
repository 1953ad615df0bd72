package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
app:
  name: user-service
http:
  addr: ":8081"
breaker:
  default:
    window_size: 10
    wait_duration: 30s
  dependencies:
    user-service:
      wait_duration: 10s
  ignored_kinds: [not_found, conflict]
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newTestLoader(t *testing.T, dir string, opts ...Option) Loader {
	t.Helper()
	l, err := New(append([]Option{
		WithConfigName("user-service"),
		WithConfigPaths(dir),
		WithEnvPrefix("WORKHUB_TEST"),
	}, opts...)...)
	require.NoError(t, err)
	return l
}

type breakerSection struct {
	Default struct {
		WindowSize   int           `mapstructure:"window_size"`
		WaitDuration time.Duration `mapstructure:"wait_duration"`
	} `mapstructure:"default"`
	Dependencies map[string]struct {
		WaitDuration time.Duration `mapstructure:"wait_duration"`
	} `mapstructure:"dependencies"`
	IgnoredKinds []string `mapstructure:"ignored_kinds"`
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "user-service.yaml", baseYAML)

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, "user-service", l.Get("app.name"))

	var b breakerSection
	require.NoError(t, l.UnmarshalKey("breaker", &b))
	assert.Equal(t, 10, b.Default.WindowSize)
	assert.Equal(t, 30*time.Second, b.Default.WaitDuration)
	assert.Equal(t, 10*time.Second, b.Dependencies["user-service"].WaitDuration)
	assert.Equal(t, []string{"not_found", "conflict"}, b.IgnoredKinds)
}

func TestLoaderEnvironmentOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "user-service.yaml", baseYAML)
	writeFile(t, dir, "user-service.prod.yaml", "http:\n  addr: \":9081\"\n")
	t.Setenv("WORKHUB_TEST_ENV", "prod")

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, ":9081", l.Get("http.addr"))
	assert.Equal(t, "user-service", l.Get("app.name"), "base values survive the overlay")
}

func TestLoaderEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "user-service.yaml", baseYAML)
	t.Setenv("WORKHUB_TEST_HTTP_ADDR", ":7000")

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, ":7000", l.Get("http.addr"))
}

func TestLoaderDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "user-service.yaml", baseYAML)
	writeFile(t, dir, ".env", "WORKHUB_TEST_APP_NAME=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("WORKHUB_TEST_APP_NAME") })

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, "from-dotenv", l.Get("app.name"))
}

func TestLoaderValidate(t *testing.T) {
	l := newTestLoader(t, t.TempDir())
	err := l.Load(context.Background())
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.True(t, IsInvalidInput(err))
}

func TestLoaderWatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "user-service.yaml", baseYAML)

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := l.Watch(ctx, "app.name")
	require.NoError(t, err)

	// fsnotify 需要一点时间建立监听
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "user-service.yaml", "app:\n  name: renamed\n")

	select {
	case ev := <-ch:
		assert.Equal(t, "app.name", ev.Key)
		assert.Equal(t, "renamed", ev.Value)
		assert.Equal(t, "user-service", ev.OldValue)
		assert.Equal(t, "file", ev.Source)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config change event")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, open := <-ch:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestMustLoadPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(WithConfigName("missing"), WithConfigPaths(t.TempDir()), WithEnvPrefix("WORKHUB_TEST"))
	})
}
