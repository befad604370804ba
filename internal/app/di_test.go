package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailpoint/storefront/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ServerHost:                "127.0.0.1",
		ServerPort:                8080,
		DBDriver:                  "postgres",
		LogLevel:                  "info",
		WebhookSigningSecret:      "whsec_test",
		WebhookSignatureTolerance: 5 * time.Minute,
		GatewayBaseURL:            "https://gateway.example.com",
		GatewayAPIKey:             "sk_test",
		GatewayTimeout:            time.Second,
		NotificationTimeout:       time.Second,
		GuestEmailDomain:          "guests.example.com",
		SiteBaseURL:               "https://example.com",
		MetricsNamespace:          "storefront",
	}
}

func TestContainer_Logger(t *testing.T) {
	container := NewContainer(testConfig())

	logger := container.Logger()
	require.NotNil(t, logger)
	assert.Same(t, logger, container.Logger(), "logger must be a singleton")
}

func TestContainer_SignatureVerifier(t *testing.T) {
	container := NewContainer(testConfig())

	verifier, err := container.SignatureVerifier()
	require.NoError(t, err)
	assert.NotNil(t, verifier)
}

func TestContainer_SignatureVerifier_MissingSecret(t *testing.T) {
	cfg := testConfig()
	cfg.WebhookSigningSecret = ""
	container := NewContainer(cfg)

	_, err := container.SignatureVerifier()
	assert.Error(t, err)

	// The error is sticky across accesses.
	_, err = container.SignatureVerifier()
	assert.Error(t, err)
}

func TestContainer_GatewayClientAndMailer(t *testing.T) {
	container := NewContainer(testConfig())

	client, err := container.GatewayClient()
	require.NoError(t, err)
	assert.NotNil(t, client)

	mailer, err := container.Mailer()
	require.NoError(t, err)
	assert.NotNil(t, mailer)
}

func TestContainer_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	container := NewContainer(cfg)

	provider, err := container.MetricsProvider()
	require.NoError(t, err)
	assert.Nil(t, provider)

	server, err := container.MetricsServer()
	require.NoError(t, err)
	assert.Nil(t, server)
}

func TestContainer_MetricsEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = true
	cfg.MetricsPort = 0
	container := NewContainer(cfg)

	provider, err := container.MetricsProvider()
	require.NoError(t, err)
	assert.NotNil(t, provider)

	server, err := container.MetricsServer()
	require.NoError(t, err)
	assert.NotNil(t, server)
}
