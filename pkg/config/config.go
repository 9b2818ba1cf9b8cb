/*
Package config manages the TOML config shared by wordserve and typer.

The file is created with defaults on first run. A file that fails to decode
is recovered section by section, so one bad value does not reset the rest.
*/
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bastiangx/wordexpand/internal/utils"
	"github.com/bastiangx/wordexpand/pkg/expander"
	"github.com/bastiangx/wordexpand/pkg/server"
	"github.com/bastiangx/wordexpand/pkg/suggest"
	"github.com/charmbracelet/log"
)

// FileName is the config file looked up in the user config directory.
const FileName = "config.toml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the entire config structure
type Config struct {
	Expander ExpanderConfig `toml:"expander"`
	Suggest  SuggestConfig  `toml:"suggest"`
	Dict     DictConfig     `toml:"dict"`
	Emoji    EmojiConfig    `toml:"emoji"`
	Server   ServerConfig   `toml:"server"`
	UI       UIConfig       `toml:"ui"`
}

// ExpanderConfig has the controller options.
type ExpanderConfig struct {
	Keys               string        `toml:"keys"`
	ProviderTimeout    time.Duration `toml:"provider_timeout"`
	MirrorRemovalDelay time.Duration `toml:"mirror_removal_delay"`
}

// SuggestConfig configures the word provider.
type SuggestConfig struct {
	Limit        int    `toml:"limit"`
	MinPrefix    int    `toml:"min_prefix"`
	MaxPrefix    int    `toml:"max_prefix"`
	EnableFilter bool   `toml:"enable_filter"`
	Fuzzy        bool   `toml:"fuzzy"`
	Keys         string `toml:"keys"`
	KeepKey      bool   `toml:"keep_key"`
	HotWords     int    `toml:"hot_words"`
}

// DictConfig holds dictionary options.
type DictConfig struct {
	MaxWords           int `toml:"max_words"`
	ChunkSize          int `toml:"chunk_size"`
	MinFreqThreshold   int `toml:"min_frequency_threshold"`
	MinFreqShortPrefix int `toml:"min_frequency_short_prefix"`
}

// EmojiConfig configures shortcode completion.
type EmojiConfig struct {
	Enabled bool     `toml:"enabled"`
	Key     string   `toml:"key"`
	Extra   []string `toml:"extra"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxLimit  int `toml:"max_limit"`
	MinPrefix int `toml:"min_prefix"`
	MaxPrefix int `toml:"max_prefix"`
}

// UIConfig sizes the typer TUI.
type UIConfig struct {
	Width      int `toml:"width"`
	Height     int `toml:"height"`
	MaxVisible int `toml:"max_visible"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Expander: ExpanderConfig{
			Keys:               "@ :",
			MirrorRemovalDelay: 5 * time.Second,
		},
		Suggest: SuggestConfig{
			Limit:        8,
			MinPrefix:    1,
			MaxPrefix:    60,
			EnableFilter: true,
			Fuzzy:        true,
			Keys:         "@",
			HotWords:     2000,
		},
		Dict: DictConfig{
			MaxWords:           50000,
			ChunkSize:          10000,
			MinFreqThreshold:   20,
			MinFreqShortPrefix: 24,
		},
		Emoji: EmojiConfig{
			Enabled: true,
			Key:     ":",
			Extra:   []string{},
		},
		Server: ServerConfig{
			MaxLimit:  64,
			MinPrefix: 1,
			MaxPrefix: 60,
		},
		UI: UIConfig{
			Width:      72,
			Height:     8,
			MaxVisible: 8,
		},
	}
}

// Validate reports values that cannot be used. Zero durations and a zero
// max prefix are allowed and mean "no bound".
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}
	check(len(expander.ParseKeys(c.Expander.Keys)) > 0, "expander.keys is empty")
	check(c.Expander.ProviderTimeout >= 0, "expander.provider_timeout is negative")
	check(c.Expander.MirrorRemovalDelay >= 0, "expander.mirror_removal_delay is negative")
	check(c.Suggest.Limit > 0, "suggest.limit must be positive, got %d", c.Suggest.Limit)
	check(c.Suggest.MinPrefix >= 0, "suggest.min_prefix is negative")
	check(c.Suggest.MaxPrefix == 0 || c.Suggest.MaxPrefix >= c.Suggest.MinPrefix,
		"suggest.max_prefix %d below min_prefix %d", c.Suggest.MaxPrefix, c.Suggest.MinPrefix)
	check(c.Suggest.HotWords >= 0, "suggest.hot_words is negative")
	check(c.Dict.MaxWords >= 0, "dict.max_words is negative")
	check(c.Dict.ChunkSize > 0, "dict.chunk_size must be positive, got %d", c.Dict.ChunkSize)
	check(!c.Emoji.Enabled || len(expander.ParseKeys(c.Emoji.Key)) > 0, "emoji.key is empty")
	check(c.Server.MaxLimit > 0, "server.max_limit must be positive, got %d", c.Server.MaxLimit)
	check(c.Server.MaxPrefix == 0 || c.Server.MaxPrefix >= c.Server.MinPrefix,
		"server.max_prefix %d below min_prefix %d", c.Server.MaxPrefix, c.Server.MinPrefix)
	check(c.UI.Width >= 10, "ui.width must be at least 10, got %d", c.UI.Width)
	check(c.UI.Height > 0 && c.UI.MaxVisible > 0, "ui.height and ui.max_visible must be positive")
	return errors.Join(errs...)
}

// CompleterOptions maps the dictionary thresholds onto suggest.Options.
func (c *Config) CompleterOptions() suggest.Options {
	return suggest.Options{
		MinFrequency:            c.Dict.MinFreqThreshold,
		MinFrequencyShortPrefix: c.Dict.MinFreqShortPrefix,
		HotWords:                c.Suggest.HotWords,
		Fuzzy:                   c.Suggest.Fuzzy,
	}
}

func (c *Config) ProviderOptions() suggest.ProviderOptions {
	return suggest.ProviderOptions{
		Keys:      c.Suggest.Keys,
		Limit:     c.Suggest.Limit,
		MinPrefix: c.Suggest.MinPrefix,
		MaxPrefix: c.Suggest.MaxPrefix,
		Filter:    c.Suggest.EnableFilter,
		KeepKey:   c.Suggest.KeepKey,
	}
}

func (c *Config) ServerOptions() server.Options {
	return server.Options{
		DefaultLimit: c.Suggest.Limit,
		MaxLimit:     c.Server.MaxLimit,
		MinPrefix:    c.Server.MinPrefix,
		MaxPrefix:    c.Server.MaxPrefix,
	}
}

// Apply pushes process-wide settings into the packages that own them.
func (c *Config) Apply() {
	expander.SetRemovalDelay(c.Expander.MirrorRemovalDelay)
}

// DefaultPath returns FileName inside the resolved config directory.
func DefaultPath() (string, error) {
	pr, err := utils.NewPathResolver()
	if err != nil {
		return "", err
	}
	return pr.GetConfigPath(FileName), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/wordexpand/config.toml
// 3. Builtin defaults
//
// The returned path is empty when builtin defaults are used.
func LoadConfigWithPriority(customConfigPath string) (*Config, string) {
	if customConfigPath != "" {
		if utils.FileExists(customConfigPath) {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, utils.GetAbsolutePath(customConfigPath)
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s. Trying default path...", customConfigPath)
		}
	}

	defaultPath, err := DefaultPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), ""
	}
	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), ""
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}
	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file. Values that fail validation are
// replaced by their defaults with a warning.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		config, err = tryPartialParse(configPath)
		if err != nil {
			return nil, err
		}
	}
	if err := config.Validate(); err != nil {
		log.Warnf("Config %s: %v. Using defaults for the affected sections.", configPath, err)
		config.repair()
	}
	return config, nil
}

// repair resets each invalid section to its default.
func (c *Config) repair() {
	def := DefaultConfig()
	probe := func(mutate func(*Config)) bool {
		tmp := *def
		mutate(&tmp)
		return tmp.Validate() == nil
	}
	if !probe(func(t *Config) { t.Expander = c.Expander }) {
		c.Expander = def.Expander
	}
	if !probe(func(t *Config) { t.Suggest = c.Suggest }) {
		c.Suggest = def.Suggest
	}
	if !probe(func(t *Config) { t.Dict = c.Dict }) {
		c.Dict = def.Dict
	}
	if !probe(func(t *Config) { t.Emoji = c.Emoji }) {
		c.Emoji = def.Emoji
	}
	if !probe(func(t *Config) { t.Server = c.Server }) {
		c.Server = def.Server
	}
	if !probe(func(t *Config) { t.UI = c.UI }) {
		c.UI = def.UI
	}
}

// tryPartialParse keeps every well-typed value of a file that failed to
// decode as a whole. Only a file that is not TOML at all is an error.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	if section, ok := utils.ExtractSection(tempConfig, "expander"); ok {
		extractExpanderConfig(section, &config.Expander)
	}
	if section, ok := utils.ExtractSection(tempConfig, "suggest"); ok {
		extractSuggestConfig(section, &config.Suggest)
	}
	if section, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(section, &config.Dict)
	}
	if section, ok := utils.ExtractSection(tempConfig, "emoji"); ok {
		extractEmojiConfig(section, &config.Emoji)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "ui"); ok {
		extractUIConfig(section, &config.UI)
	}
	return config, nil
}

func extractExpanderConfig(data map[string]any, exp *ExpanderConfig) {
	if val, ok := utils.ExtractString(data, "keys"); ok {
		exp.Keys = val
	}
	if val, ok := utils.ExtractDuration(data, "provider_timeout"); ok {
		exp.ProviderTimeout = val
	}
	if val, ok := utils.ExtractDuration(data, "mirror_removal_delay"); ok {
		exp.MirrorRemovalDelay = val
	}
}

func extractSuggestConfig(data map[string]any, sg *SuggestConfig) {
	if val, ok := utils.ExtractInt64(data, "limit"); ok {
		sg.Limit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		sg.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		sg.MaxPrefix = val
	}
	if val, ok := utils.ExtractBool(data, "enable_filter"); ok {
		sg.EnableFilter = val
	}
	if val, ok := utils.ExtractBool(data, "fuzzy"); ok {
		sg.Fuzzy = val
	}
	if val, ok := utils.ExtractString(data, "keys"); ok {
		sg.Keys = val
	}
	if val, ok := utils.ExtractBool(data, "keep_key"); ok {
		sg.KeepKey = val
	}
	if val, ok := utils.ExtractInt64(data, "hot_words"); ok {
		sg.HotWords = val
	}
}

// extractDictConfig extracts dictionary configuration from a map
func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractInt64(data, "max_words"); ok {
		dict.MaxWords = val
	}
	if val, ok := utils.ExtractInt64(data, "chunk_size"); ok {
		dict.ChunkSize = val
	}
	if val, ok := utils.ExtractInt64(data, "min_frequency_threshold"); ok {
		dict.MinFreqThreshold = val
	}
	if val, ok := utils.ExtractInt64(data, "min_frequency_short_prefix"); ok {
		dict.MinFreqShortPrefix = val
	}
}

func extractEmojiConfig(data map[string]any, em *EmojiConfig) {
	if val, ok := utils.ExtractBool(data, "enabled"); ok {
		em.Enabled = val
	}
	if val, ok := utils.ExtractString(data, "key"); ok {
		em.Key = val
	}
	if val, ok := utils.ExtractStrings(data, "extra"); ok {
		em.Extra = val
	}
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, srv *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		srv.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		srv.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		srv.MaxPrefix = val
	}
}

func extractUIConfig(data map[string]any, ui *UIConfig) {
	if val, ok := utils.ExtractInt64(data, "width"); ok {
		ui.Width = val
	}
	if val, ok := utils.ExtractInt64(data, "height"); ok {
		ui.Height = val
	}
	if val, ok := utils.ExtractInt64(data, "max_visible"); ok {
		ui.MaxVisible = val
	}
}

// RebuildConfigFile overwrites path with the defaults.
func RebuildConfigFile(path string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return SaveConfig(DefaultConfig(), path)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
