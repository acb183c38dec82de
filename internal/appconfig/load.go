package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults; a present file
// must carry the supported config_version.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.base_url", cfg.HTTP.BaseURL)
	v.SetDefault("auth.teacher_password", cfg.Auth.TeacherPassword)
	v.SetDefault("auth.teacher_password_hash", cfg.Auth.TeacherPasswordHash)
	v.SetDefault("session.file", cfg.Session.File)
	v.SetDefault("session.save_debounce_ms", cfg.Session.SaveDebounceMs)
	v.SetDefault("board.language", cfg.Board.Language)
	v.SetDefault("board.tab_size", cfg.Board.TabSize)
	v.SetDefault("board.max_undo_levels", cfg.Board.MaxUndoLevels)
	v.SetDefault("board.undo_debounce_ms", cfg.Board.UndoDebounceMs)
	v.SetDefault("client.identity_file", cfg.Client.IdentityFile)
	v.SetDefault("client.code_debounce_ms", cfg.Client.CodeDebounceMs)
	v.SetDefault("client.cursor_throttle_ms", cfg.Client.CursorThrottleMs)
	v.SetDefault("client.highlight_throttle_ms", cfg.Client.HighlightThrottleMs)
	v.SetDefault("client.laser_throttle_ms", cfg.Client.LaserThrottleMs)
	v.SetDefault("client.ping_interval_seconds", cfg.Client.PingIntervalSeconds)
	v.SetDefault("client.reconnect_max_seconds", cfg.Client.ReconnectMaxSeconds)
	v.SetDefault("client.reconnect_base_seconds", cfg.Client.ReconnectBaseSeconds)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	baseURL := strings.TrimSpace(cfg.HTTP.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("http.base_url must include scheme and host (e.g. http://example.com:3000)")
		}
	}
	if cfg.Session.SaveDebounceMs < 0 {
		return fmt.Errorf("session.save_debounce_ms must not be negative")
	}
	if cfg.Board.TabSize < 1 {
		return fmt.Errorf("board.tab_size must be at least 1")
	}
	if cfg.Board.MaxUndoLevels < 1 {
		return fmt.Errorf("board.max_undo_levels must be at least 1")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Session.File = expandEnv(cfg.Session.File)
	cfg.Client.IdentityFile = expandEnv(cfg.Client.IdentityFile)
	if pw, ok := os.LookupEnv("TEACHER_PASSWORD"); ok && cfg.Auth.TeacherPassword == "" && cfg.Auth.TeacherPasswordHash == "" {
		cfg.Auth.TeacherPassword = pw
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
