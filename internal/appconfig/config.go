// Package appconfig loads and writes the tileboard configuration file.
package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string        `mapstructure:"state_dir" yaml:"state_dir"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	Auth          AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Session       SessionConfig `mapstructure:"session" yaml:"session"`
	Board         BoardConfig   `mapstructure:"board" yaml:"board"`
	Client        ClientConfig  `mapstructure:"client" yaml:"client"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// HTTPConfig configures the hub's HTTP and websocket listener.
type HTTPConfig struct {
	Addr    string `mapstructure:"addr" yaml:"addr"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// AuthConfig configures presenter authentication. TeacherPassword holds the
// shared secret in the clear; TeacherPasswordHash holds a bcrypt hash and
// takes precedence when both are set. Both empty means open presenter
// access.
type AuthConfig struct {
	TeacherPassword     string `mapstructure:"teacher_password" yaml:"teacher_password"`
	TeacherPasswordHash string `mapstructure:"teacher_password_hash" yaml:"teacher_password_hash"`
}

// SessionConfig configures canonical-state persistence.
type SessionConfig struct {
	File           string `mapstructure:"file" yaml:"file"`
	SaveDebounceMs int    `mapstructure:"save_debounce_ms" yaml:"save_debounce_ms"`
}

// BoardConfig configures the shared board.
type BoardConfig struct {
	Language       string `mapstructure:"language" yaml:"language"`
	TabSize        int    `mapstructure:"tab_size" yaml:"tab_size"`
	MaxUndoLevels  int    `mapstructure:"max_undo_levels" yaml:"max_undo_levels"`
	UndoDebounceMs int    `mapstructure:"undo_debounce_ms" yaml:"undo_debounce_ms"`
}

// ClientConfig configures the sync client's timers and identity store.
type ClientConfig struct {
	IdentityFile         string `mapstructure:"identity_file" yaml:"identity_file"`
	CodeDebounceMs       int    `mapstructure:"code_debounce_ms" yaml:"code_debounce_ms"`
	CursorThrottleMs     int    `mapstructure:"cursor_throttle_ms" yaml:"cursor_throttle_ms"`
	HighlightThrottleMs  int    `mapstructure:"highlight_throttle_ms" yaml:"highlight_throttle_ms"`
	LaserThrottleMs      int    `mapstructure:"laser_throttle_ms" yaml:"laser_throttle_ms"`
	PingIntervalSeconds  int    `mapstructure:"ping_interval_seconds" yaml:"ping_interval_seconds"`
	ReconnectMaxSeconds  int    `mapstructure:"reconnect_max_seconds" yaml:"reconnect_max_seconds"`
	ReconnectBaseSeconds int    `mapstructure:"reconnect_base_seconds" yaml:"reconnect_base_seconds"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	stateDir := filepath.Join(home, ".tileboard", "state")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      stateDir,
		HTTP: HTTPConfig{
			Addr:    ":3000",
			BaseURL: "",
		},
		Auth: AuthConfig{
			TeacherPassword:     "",
			TeacherPasswordHash: "",
		},
		Session: SessionConfig{
			File:           filepath.Join(stateDir, "session-state.json"),
			SaveDebounceMs: 2000,
		},
		Board: BoardConfig{
			Language:       "glossa",
			TabSize:        3,
			MaxUndoLevels:  50,
			UndoDebounceMs: 300,
		},
		Client: ClientConfig{
			IdentityFile:         filepath.Join(stateDir, "identity.db"),
			CodeDebounceMs:       150,
			CursorThrottleMs:     100,
			HighlightThrottleMs:  100,
			LaserThrottleMs:      50,
			PingIntervalSeconds:  30,
			ReconnectMaxSeconds:  30,
			ReconnectBaseSeconds: 1,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tileboard", "config.yaml"), nil
}
