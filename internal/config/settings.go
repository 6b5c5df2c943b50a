package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appDirName       = "textshortcutter"
	settingsFileName = "settings.yaml"
	envPrefix        = "TEXTSHORTCUTTER"

	minRestoreDelay = 20 * time.Millisecond
	maxRestoreDelay = 2 * time.Second
)

// Settings are process-level knobs that are not part of the encrypted
// record: where files live, how to log, paste timings.
type Settings struct {
	DataDir         string        `mapstructure:"data_dir"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	RestoreDelay    time.Duration `mapstructure:"restore_delay"`
	RestoreTimeout  time.Duration `mapstructure:"restore_timeout"`
	PersistDebounce time.Duration `mapstructure:"persist_debounce"`
	Injector        string        `mapstructure:"injector"`
	Notifications   bool          `mapstructure:"notifications"`
	AuditRetention  time.Duration `mapstructure:"audit_retention"`
}

// SettingsDefaults are the values used when neither file, env nor flag set one.
func SettingsDefaults() map[string]any {
	return map[string]any{
		"data_dir":         "",
		"log_level":        "info",
		"log_format":       "text",
		"restore_delay":    "150ms",
		"restore_timeout":  "1s",
		"persist_debounce": "2s",
		"injector":         "auto",
		"notifications":    true,
		"audit_retention":  "720h",
	}
}

// flagKeys maps settings keys to the persistent flag names that override them.
var flagKeys = map[string]string{
	"data_dir":   "data-dir",
	"log_level":  "log-level",
	"log_format": "log-format",
}

// UserConfigDir returns the per-user application directory.
func UserConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// DefaultSettingsPath returns <user config dir>/textshortcutter/settings.yaml.
func DefaultSettingsPath() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, settingsFileName), nil
}

// LoadSettings merges defaults, settings.yaml, TEXTSHORTCUTTER_* variables and
// flags of cmd, in increasing precedence. explicitPath, when set, replaces
// the default settings file location and must exist.
func LoadSettings(cmd *cobra.Command, explicitPath string) (Settings, error) {
	var s Settings
	v := viper.New()

	for key, value := range SettingsDefaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else if p, err := DefaultSettingsPath(); err == nil {
		v.SetConfigFile(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return s, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := bindFlags(v, cmd.Flags()); err != nil {
			return s, err
		}
	}

	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("failed to decode settings: %w", err)
	}

	if err := s.normalize(); err != nil {
		return s, err
	}
	return s, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func (s *Settings) normalize() error {
	if s.DataDir == "" {
		dir, err := UserConfigDir()
		if err != nil {
			return err
		}
		s.DataDir = dir
	}

	switch {
	case s.RestoreDelay < minRestoreDelay:
		s.RestoreDelay = minRestoreDelay
	case s.RestoreDelay > maxRestoreDelay:
		s.RestoreDelay = maxRestoreDelay
	}
	if s.RestoreTimeout <= 0 {
		s.RestoreTimeout = time.Second
	}
	if s.PersistDebounce <= 0 {
		s.PersistDebounce = 2 * time.Second
	}
	if s.Injector == "" {
		s.Injector = "auto"
	}
	return nil
}

// settingsFile is the on-disk shape written by WriteSettings. Durations are
// rendered as strings so the file stays hand-editable.
type settingsFile struct {
	DataDir         string `yaml:"data_dir"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	RestoreDelay    string `yaml:"restore_delay"`
	RestoreTimeout  string `yaml:"restore_timeout"`
	PersistDebounce string `yaml:"persist_debounce"`
	Injector        string `yaml:"injector"`
	Notifications   bool   `yaml:"notifications"`
	AuditRetention  string `yaml:"audit_retention"`
}

// WriteSettings writes s to path as YAML through WriteFileAtomic.
func WriteSettings(path string, s Settings) error {
	data, err := MarshalSettings(s)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0600, nil)
}

// MarshalSettings renders s in the settings.yaml format.
func MarshalSettings(s Settings) ([]byte, error) {
	data, err := yaml.Marshal(settingsFile{
		DataDir:         s.DataDir,
		LogLevel:        s.LogLevel,
		LogFormat:       s.LogFormat,
		RestoreDelay:    s.RestoreDelay.String(),
		RestoreTimeout:  s.RestoreTimeout.String(),
		PersistDebounce: s.PersistDebounce.String(),
		Injector:        s.Injector,
		Notifications:   s.Notifications,
		AuditRetention:  s.AuditRetention.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return data, nil
}
