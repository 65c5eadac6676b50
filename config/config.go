// Package config manages fieldbridge configuration.
//
// Configuration is loaded with Viper from fieldbridge.toml, with
// FIELDBRIDGE_-prefixed environment variables taking precedence.
package config

// Config represents the core fieldbridge configuration
type Config struct {
	Database  DatabaseConfig            `mapstructure:"database"`
	Server    ServerConfig              `mapstructure:"server"`
	Batch     BatchConfig               `mapstructure:"batch"`
	Transform TransformConfig           `mapstructure:"transform"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// DatabaseConfig configures the SQLite fixture store backing the
// catalog and record providers.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the batch-state websocket server
type ServerConfig struct {
	Port           *int     `mapstructure:"port"` // nil = default 8720, 0 is invalid (omit for default)
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DefaultServerPort is the development port for the state server
const DefaultServerPort = 8720

// BatchConfig configures the batch preview orchestrator
type BatchConfig struct {
	PageSize           int     `mapstructure:"page_size"`             // Records per page (default: 10)
	PrefetchFactor     int     `mapstructure:"prefetch_factor"`       // Prefetch window = factor * page size (default: 2)
	FetchRatePerSecond float64 `mapstructure:"fetch_rate_per_second"` // Record fetches per second, 0 = unlimited
	FetchBurst         int     `mapstructure:"fetch_burst"`           // Rate limiter burst (default: page size)
}

// TransformConfig configures transformation execution
type TransformConfig struct {
	AllowCustom          bool `mapstructure:"allow_custom"`           // Enable CUSTOM formula evaluation (default: true)
	CustomTimeoutSeconds int  `mapstructure:"custom_timeout_seconds"` // Per-formula evaluation timeout (default: 5)
}

// ProviderConfig identifies one external test-management system's project scope
type ProviderConfig struct {
	Project string `mapstructure:"project"` // Project key within the provider (e.g., "PROJ-1")
}

// PrefetchWindow returns the number of record ids pre-warmed around the
// current page. Values <= 0 fall back to the defaults.
func (b BatchConfig) PrefetchWindow() int {
	page := b.PageSize
	if page <= 0 {
		page = DefaultPageSize
	}
	factor := b.PrefetchFactor
	if factor <= 0 {
		factor = DefaultPrefetchFactor
	}
	return page * factor
}

// Batch defaults
const (
	DefaultPageSize       = 10
	DefaultPrefetchFactor = 2
)
