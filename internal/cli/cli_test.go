package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/claimwatch/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	def := model.DefaultConfig()
	assert.Equal(t, def.Verify.CallTimeout, cfg.Verify.CallTimeout)
	assert.Equal(t, def.Monitor.CriticalSLA, cfg.Monitor.CriticalSLA)
	assert.Equal(t, def.Scoring.MethodWeights[model.MethodAcademic], cfg.Scoring.MethodWeights[model.MethodAcademic])
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: memory
monitor:
  critical_sla: 90m
  schedule: "@every 1m"
scoring:
  verified_threshold: 0.8
feeds:
  urls:
    - https://example.org/rss
`)
	t.Setenv("CLAIMWATCH_LOG_LEVEL", "warn")
	t.Setenv("CLAIMWATCH_VERIFY_CONCURRENCY", "3")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 90*time.Minute, cfg.Monitor.CriticalSLA)
	assert.Equal(t, "@every 1m", cfg.Monitor.Schedule)
	assert.Equal(t, 0.8, cfg.Scoring.VerifiedThreshold)
	assert.Equal(t, []string{"https://example.org/rss"}, cfg.Feeds.URLs)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Verify.Concurrency)
	assert.Equal(t, 24*time.Hour, cfg.Monitor.HighSLA, "unset keys keep defaults")
}

func TestLoadConfig_ProviderKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	cfg, err := LoadConfig(writeConfig(t, "llm:\n  provider: anthropic\n"))
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test", cfg.LLM.APIKey)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(model.LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(model.LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(model.LogConfig{Level: "loud"}))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, model.ContentURL, detectContentType("https://example.com/a", ""))
	assert.Equal(t, model.ContentText, detectContentType("see https://example.com/a for more", ""))
	assert.Equal(t, model.ContentText, detectContentType("plain words", ""))
	assert.Equal(t, model.ContentHTML, detectContentType("<p>x</p>", "html"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "scientists_discover_a_cure_with_99__effectiveness", sanitizeFilename("Scientists discover a cure with 99% effectiveness."))
	assert.Equal(t, "item", sanitizeFilename("???"))
	assert.Len(t, sanitizeFilename(string(bytes.Repeat([]byte("a"), 200))), 60)
}

func TestResolveStore(t *testing.T) {
	sc, err := resolveStore(model.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.Empty(t, sc.DSN)

	sc, err = resolveStore(model.StoreConfig{Driver: "sqlite", DSN: "/tmp/x.db"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", sc.DSN)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "claimwatch.db")
	path := writeConfig(t, "store:\n  driver: sqlite\n  dsn: "+dsn+"\ncache:\n  enabled: false\nhttp:\n  respect_robots: false\n")

	out, err := run(t, "--config", path, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "claimwatch "+Version)

	out, err = run(t, "--config", path, "check", "Scientists discover a cure with 99% effectiveness.", "--json", "-")
	require.NoError(t, err)
	var report model.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, model.StatusCompleted, report.Status)
	assert.Len(t, report.Claims, 1)

	out, err = run(t, "--config", path, "query", "store", "Does the new 5g vaccine tracking claim hold up", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "high")

	out, err = run(t, "--config", path, "query", "list", "--status", "pending", "--user", "")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")

	out, err = run(t, "--config", path, "query", "rescan", "Fact-check: the 5g vaccine tracking claim does not hold up, debunked")
	require.NoError(t, err)
	assert.Contains(t, out, "potentially_resolved")

	out, err = run(t, "--config", path, "query", "history", "alice")
	require.NoError(t, err)
	var deliveries []model.Delivery
	require.NoError(t, json.Unmarshal([]byte(out), &deliveries))
	assert.NotEmpty(t, deliveries)

	_, err = run(t, "--config", path, "query", "resolve", "missing-id")
	assert.Error(t, err)
}

func TestLoadConfig_APIKeyEnvBinding(t *testing.T) {
	t.Setenv("CLAIMWATCH_LLM_API_KEY", "sk-env")
	t.Setenv("CLAIMWATCH_ALERT_WEBHOOK_URL", "https://hooks.example/alert")
	cfg, err := LoadConfig(writeConfig(t, "llm:\n  provider: openai\n"))
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "https://hooks.example/alert", cfg.Alert.WebhookURL)
}
