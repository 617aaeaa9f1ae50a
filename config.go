package keyrunes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// GlobalConfig holds at most one configured Client. Set, get and clear are
// serialized by a single mutex: concurrent SetClient calls leave exactly one
// winner visible, and readers never observe a partially stored client. The
// mutex covers only the slot access, never the HTTP calls made afterwards.
type GlobalConfig struct {
	mu     sync.Mutex
	client *Client
}

// SetClient stores c as the global client, replacing any previous one.
func (g *GlobalConfig) SetClient(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.client = c
}

// Client returns the stored client, or nil when none is configured.
func (g *GlobalConfig) Client() *Client {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client
}

// Clear drops the stored client. Safe to call repeatedly.
func (g *GlobalConfig) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.client = nil
}

// defaultConfig is the process-wide slot consulted by guards that were not
// bound to an explicit client.
var defaultConfig GlobalConfig

// DefaultConfig returns the process-wide GlobalConfig instance.
func DefaultConfig() *GlobalConfig { return &defaultConfig }

// Configure builds a Client from opts, installs it as the global client, and
// returns it. Later calls replace the previous client.
func Configure(opts Options) *Client {
	client := New(opts)
	defaultConfig.SetClient(client)
	return client
}

// GlobalClient returns the global client, or nil when none is configured.
func GlobalClient() *Client {
	return defaultConfig.Client()
}

// ClearGlobalClient drops the global client. Idempotent.
func ClearGlobalClient() {
	defaultConfig.Clear()
}

// EnvConfig is the environment surface of the SDK.
type EnvConfig struct {
	BaseURL         string        `env:"KEYRUNES_BASE_URL"`
	APIKey          string        `env:"KEYRUNES_API_KEY"`
	OrganizationKey string        `env:"KEYRUNES_ORG_KEY"`
	Timeout         time.Duration `env:"KEYRUNES_TIMEOUT, default=30s"`
}

// LoadEnvConfig reads EnvConfig from the process environment.
func LoadEnvConfig(ctx context.Context) (*EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return &cfg, nil
}

// ConfigureFromEnv builds a Client from environment variables and installs
// it as the global client. KEYRUNES_BASE_URL is required.
func ConfigureFromEnv(ctx context.Context) (*Client, error) {
	cfg, err := LoadEnvConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: KEYRUNES_BASE_URL is not set", ErrConfiguration)
	}

	return Configure(Options{
		BaseURL:         cfg.BaseURL,
		APIKey:          cfg.APIKey,
		OrganizationKey: cfg.OrganizationKey,
		Timeout:         cfg.Timeout,
	}), nil
}
