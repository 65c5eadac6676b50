package config

import "github.com/teleskop/fieldbridge/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Server port: 0 is invalid (omit for default), negative is invalid
	if c.Server.Port != nil && *c.Server.Port == 0 {
		return errors.New("server.port cannot be 0 (omit for default port 8720)")
	}
	if c.Server.Port != nil && *c.Server.Port < 0 {
		return errors.Newf("server.port must be positive, got %d", *c.Server.Port)
	}

	// Batch page size: 0 = default, negative = invalid
	if c.Batch.PageSize < 0 {
		return errors.Newf("batch.page_size must be >= 0, got %d", c.Batch.PageSize)
	}
	if c.Batch.PrefetchFactor < 0 {
		return errors.Newf("batch.prefetch_factor must be >= 0, got %d", c.Batch.PrefetchFactor)
	}

	// Fetch rate: 0 = unlimited, negative = invalid
	if c.Batch.FetchRatePerSecond < 0 {
		return errors.Newf("batch.fetch_rate_per_second must be >= 0, got %f", c.Batch.FetchRatePerSecond)
	}
	if c.Batch.FetchBurst < 0 {
		return errors.Newf("batch.fetch_burst must be >= 0, got %d", c.Batch.FetchBurst)
	}

	// CUSTOM evaluation timeout must be positive when CUSTOM is enabled
	if c.Transform.AllowCustom && c.Transform.CustomTimeoutSeconds <= 0 {
		return errors.Newf("transform.custom_timeout_seconds must be > 0 when transform.allow_custom is set, got %d",
			c.Transform.CustomTimeoutSeconds)
	}

	// Provider entries need a project key; the provider id is the map key
	for id, p := range c.Providers {
		if p.Project == "" {
			return errors.Newf("providers.%s.project cannot be empty", id)
		}
	}

	return nil
}
