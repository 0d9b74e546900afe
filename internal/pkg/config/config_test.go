package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/env"
)

func useEnv(t *testing.T, values map[string]string) {
	t.Helper()
	prev := env.Env
	env.Env = values
	t.Cleanup(func() { env.Env = prev })
}

func TestLoadLiveDefaults(t *testing.T) {
	useEnv(t, map[string]string{
		"PADDLE_API_KEY":        "live_key",
		"PADDLE_WEBHOOK_SECRET": "live_secret",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Sandbox)
	assert.Equal(t, "live", cfg.Mode())
	assert.Equal(t, LiveAPIBaseURL, cfg.BaseURL())
	assert.Equal(t, "/paddle/webhook", cfg.WebhookPath())
	assert.Equal(t, "live_key", cfg.ActiveCredentials().APIKey)
	assert.Equal(t, "customers", cfg.Tables.Customers)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 10*time.Minute, cfg.Cache.CustomerTTL)
	assert.False(t, cfg.Cache.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadSandboxSelectsSandboxCredentials(t *testing.T) {
	useEnv(t, map[string]string{
		"PADDLE_SANDBOX":                "true",
		"PADDLE_API_KEY":                "live_key",
		"PADDLE_SANDBOX_API_KEY":        "sbx_key",
		"PADDLE_SANDBOX_WEBHOOK_SECRET": "sbx_secret",
		"CASHIER_SANDBOX_PATH":          "/paddle-test/",
		"PADDLE_SIGNATURE_TOLERANCE":    "5",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sandbox", cfg.Mode())
	assert.Equal(t, SandboxAPIBaseURL, cfg.BaseURL())
	assert.Equal(t, "/paddle-test/webhook", cfg.WebhookPath())
	assert.Equal(t, "sbx_key", cfg.ActiveCredentials().APIKey)
	assert.Equal(t, 5*time.Second, cfg.SignatureTolerance)
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresActiveCredentials(t *testing.T) {
	useEnv(t, map[string]string{
		"PADDLE_SANDBOX":        "true",
		"PADDLE_API_KEY":        "live_key",
		"PADDLE_WEBHOOK_SECRET": "live_secret",
	})

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sandbox credentials")
}

func TestValidateDatabase(t *testing.T) {
	useEnv(t, map[string]string{})
	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.ValidateDatabase())

	cfg.Database.User = "billing"
	cfg.Database.Name = "billing_db"
	assert.NoError(t, cfg.ValidateDatabase())
	assert.Equal(t, "billing:@tcp(127.0.0.1:3306)/billing_db?charset=utf8mb4&parseTime=True&loc=UTC", cfg.Database.DSN())
}

func TestAPIBaseURLOverride(t *testing.T) {
	cfg := &Config{APIBaseURL: "http://localhost:8080/"}
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL())
}

func TestParseListenerMap(t *testing.T) {
	got, err := ParseListenerMap("transaction.paid=log, transaction.completed=kafka,transaction.paid=kafka")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"transaction.paid":      {"log", "kafka"},
		"transaction.completed": {"kafka"},
	}, got)

	empty, err := ParseListenerMap("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseListenerMap("transaction.paid")
	assert.Error(t, err)
	_, err = ParseListenerMap("=log")
	assert.Error(t, err)
}
