package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "fieldbridge.db", cfg.Database.Path)
	assert.Equal(t, DefaultPageSize, cfg.Batch.PageSize)
	assert.Equal(t, DefaultPrefetchFactor, cfg.Batch.PrefetchFactor)
	assert.True(t, cfg.Transform.AllowCustom)
	assert.Equal(t, 5, cfg.Transform.CustomTimeoutSeconds)
	require.NoError(t, cfg.Validate())
}

func TestPrefetchWindow(t *testing.T) {
	assert.Equal(t, 20, BatchConfig{PageSize: 10, PrefetchFactor: 2}.PrefetchWindow())
	assert.Equal(t, 15, BatchConfig{PageSize: 5, PrefetchFactor: 3}.PrefetchWindow())
	// Zero values fall back to defaults
	assert.Equal(t, DefaultPageSize*DefaultPrefetchFactor, BatchConfig{}.PrefetchWindow())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fieldbridge.toml")
	content := `
[database]
path = "fixtures.db"

[batch]
page_size = 25
prefetch_factor = 3

[providers.testrail]
project = "TR-MAIN"

[providers.zephyr]
project = "ZEP-7"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "fixtures.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Batch.PageSize)
	assert.Equal(t, 75, cfg.Batch.PrefetchWindow())
	require.Contains(t, cfg.Providers, "testrail")
	assert.Equal(t, "TR-MAIN", cfg.Providers["testrail"].Project)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	zero := 0
	cfg := &Config{Server: ServerConfig{Port: &zero}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Batch: BatchConfig{PageSize: -1}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Transform: TransformConfig{AllowCustom: true, CustomTimeoutSeconds: 0}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{
		Transform: TransformConfig{AllowCustom: false},
		Providers: map[string]ProviderConfig{"testrail": {Project: ""}},
	}
	assert.Error(t, cfg.Validate())
}
