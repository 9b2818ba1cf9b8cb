package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bastiangx/wordexpand/pkg/expander"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestInitConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), again)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, `
[expander]
keys = "# @"
provider_timeout = "250ms"

[suggest]
limit = 12
keep_key = true

[emoji]
extra = ["rocket", "fire"]

[ui]
width = 100
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "# @", cfg.Expander.Keys)
	assert.Equal(t, 250*time.Millisecond, cfg.Expander.ProviderTimeout)
	assert.Equal(t, 5*time.Second, cfg.Expander.MirrorRemovalDelay)
	assert.Equal(t, 12, cfg.Suggest.Limit)
	assert.True(t, cfg.Suggest.KeepKey)
	assert.Equal(t, "@", cfg.Suggest.Keys)
	assert.Equal(t, []string{"rocket", "fire"}, cfg.Emoji.Extra)
	assert.Equal(t, 100, cfg.UI.Width)
	assert.Equal(t, 8, cfg.UI.Height)
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, `
[expander]
keys = "!"
provider_timeout = "soon"

[suggest]
limit = "many"
min_prefix = 2

[dict]
max_words = 100
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, "!", cfg.Expander.Keys)
	assert.Zero(t, cfg.Expander.ProviderTimeout)
	assert.Equal(t, def.Suggest.Limit, cfg.Suggest.Limit)
	assert.Equal(t, 2, cfg.Suggest.MinPrefix)
	assert.Equal(t, 100, cfg.Dict.MaxWords)
}

func TestLoadConfigNotToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, "[[[ not toml")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRepairsInvalidSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, `
[suggest]
limit = 0
keys = "$"

[ui]
width = 120
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Suggest, cfg.Suggest)
	assert.Equal(t, 120, cfg.UI.Width)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"no keys", func(c *Config) { c.Expander.Keys = "   " }, false},
		{"negative timeout", func(c *Config) { c.Expander.ProviderTimeout = -time.Second }, false},
		{"zero limit", func(c *Config) { c.Suggest.Limit = 0 }, false},
		{"max below min", func(c *Config) { c.Suggest.MinPrefix = 5; c.Suggest.MaxPrefix = 3 }, false},
		{"unbounded prefix", func(c *Config) { c.Suggest.MaxPrefix = 0 }, true},
		{"zero chunk", func(c *Config) { c.Dict.ChunkSize = 0 }, false},
		{"emoji disabled without key", func(c *Config) { c.Emoji.Enabled = false; c.Emoji.Key = "" }, true},
		{"emoji enabled without key", func(c *Config) { c.Emoji.Key = "" }, false},
		{"narrow ui", func(c *Config) { c.UI.Width = 4 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestOptionMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dict.MinFreqThreshold = 7
	cfg.Suggest.Fuzzy = false
	cfg.Suggest.KeepKey = true
	cfg.Server.MaxLimit = 5

	co := cfg.CompleterOptions()
	assert.Equal(t, 7, co.MinFrequency)
	assert.False(t, co.Fuzzy)
	assert.Equal(t, 2000, co.HotWords)

	po := cfg.ProviderOptions()
	assert.Equal(t, "@", po.Keys)
	assert.True(t, po.KeepKey)
	assert.True(t, po.Filter)

	so := cfg.ServerOptions()
	assert.Equal(t, 5, so.MaxLimit)
	assert.Equal(t, 8, so.DefaultLimit)
}

func TestApply(t *testing.T) {
	defer expander.SetRemovalDelay(expander.RemovalDelay())
	cfg := DefaultConfig()
	cfg.Expander.MirrorRemovalDelay = time.Second
	cfg.Apply()
	assert.Equal(t, time.Second, expander.RemovalDelay())
}

func TestLoadConfigWithPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, path, "[ui]\nwidth = 50\n")

	cfg, used := LoadConfigWithPriority(path)
	assert.Equal(t, path, used)
	assert.Equal(t, 50, cfg.UI.Width)
}

func TestRebuildConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, "[ui]\nwidth = 50\n")

	require.NoError(t, RebuildConfigFile(path))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	cfg, err := InitConfig(path)
	require.NoError(t, err)

	w, err := Watch(path, cfg)
	require.NoError(t, err)
	defer w.Close()

	got := make(chan *Config, 4)
	w.OnChange(func(c *Config) {
		select {
		case got <- c:
		default:
		}
	})

	writeFile(t, path, "[expander]\nkeys = \"# @\"\n")

	select {
	case c := <-got:
		assert.Equal(t, "# @", c.Expander.Keys)
		assert.Equal(t, "# @", w.Current().Expander.Keys)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	cfg, err := InitConfig(path)
	require.NoError(t, err)

	w, err := Watch(path, cfg)
	require.NoError(t, err)
	defer w.Close()

	called := make(chan struct{}, 1)
	w.OnChange(func(*Config) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	writeFile(t, filepath.Join(dir, "other.toml"), "x = 1\n")

	select {
	case <-called:
		t.Fatal("reloaded for an unrelated file")
	case <-time.After(4 * DebounceDelay):
	}
	assert.Same(t, cfg, w.Current())
}

func TestWatcherReportsBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	cfg, err := InitConfig(path)
	require.NoError(t, err)

	w, err := Watch(path, cfg)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, path, "[[[ broken")

	select {
	case err := <-w.Errors():
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("no error reported")
	}
	assert.Same(t, cfg, w.Current())
}
