package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "fieldbridge.db")

	// Batch orchestrator defaults
	v.SetDefault("batch.page_size", DefaultPageSize)
	v.SetDefault("batch.prefetch_factor", DefaultPrefetchFactor)
	v.SetDefault("batch.fetch_rate_per_second", 0.0) // 0 = unlimited
	v.SetDefault("batch.fetch_burst", DefaultPageSize)

	// Transform defaults
	v.SetDefault("transform.allow_custom", true)
	v.SetDefault("transform.custom_timeout_seconds", 5)

	// Server configuration defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})
}
