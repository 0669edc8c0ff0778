package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefaults(t *testing.T) {
	o := New()
	o.ConfigureWithViper(viper.New())

	assert.Equal(t, "http://127.0.0.1:8080", o.BaseURL)
	assert.Equal(t, 30*time.Second, o.Timeout)
	assert.False(t, o.Mock.Enabled)
	assert.Nil(t, o.Mock.Seed)
	for _, key := range ServiceKeys {
		svc := o.Service(key)
		assert.True(t, svc.Enabled, key)
		assert.Equal(t, o.BaseURL, svc.BaseURL, key)
	}
	assert.Nil(t, o.Headers())
	assert.NoError(t, o.Validate())
}

func TestConfigureFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashrpc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
baseURL: http://backend:9000/
timeout: 5s
token: secret
services:
  knowledge:
    baseURL: http://kb:9100
  testData:
    enabled: false
mock:
  fallback: true
  seed: 42
  latency: 150ms
logger:
  level: debug
  dir: /tmp/dashrpc-logs
`), 0o600))

	vp := viper.New()
	vp.SetConfigFile(path)
	require.NoError(t, vp.ReadInConfig())

	o := New()
	o.ConfigureWithViper(vp)

	assert.Equal(t, "http://backend:9000", o.BaseURL)
	assert.Equal(t, 5*time.Second, o.Timeout)
	assert.Equal(t, map[string]string{"authorization": "Bearer secret"}, o.Headers())

	assert.Equal(t, "http://kb:9100", o.Service(Knowledge).BaseURL)
	assert.Equal(t, "http://backend:9000", o.Service(TestCase).BaseURL)
	assert.False(t, o.Service(TestData).Enabled)

	assert.True(t, o.Mock.Fallback)
	require.NotNil(t, o.Mock.Seed)
	assert.Equal(t, uint32(42), *o.Mock.Seed)
	assert.Equal(t, 150*time.Millisecond, o.Mock.Latency)

	assert.Equal(t, zapcore.DebugLevel, o.Logger.Level)
	logOpts := o.LogOptions()
	assert.Equal(t, "/tmp/dashrpc-logs", logOpts.LogDir)
	assert.Equal(t, zapcore.DebugLevel, logOpts.Level)
}

func TestConfigureFromEnv(t *testing.T) {
	t.Setenv("DASHRPC_MOCK_ENABLED", "true")
	t.Setenv("DASHRPC_TIMEOUT", "2s")

	vp := viper.New()
	vp.SetEnvPrefix("dashrpc")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	o := New()
	o.ConfigureWithViper(vp)
	assert.True(t, o.Mock.Enabled)
	assert.Equal(t, 2*time.Second, o.Timeout)
}

func TestValidate(t *testing.T) {
	o := New()
	o.BaseURL = ""
	assert.Error(t, o.Validate())

	o.Mock.Enabled = true
	assert.NoError(t, o.Validate())

	o.Timeout = -time.Second
	assert.Error(t, o.Validate())
}

func TestValidatePeerURL(t *testing.T) {
	o := New()
	o.BaseURL = ""
	o.PeerURL = "ws://127.0.0.1:8080/signal"
	assert.NoError(t, o.Validate())

	o.PeerURL = "http://127.0.0.1:8080/signal"
	assert.Error(t, o.Validate())
}
