package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment variables that override user settings,
// e.g. KILN_REPLAY_DIR.
const EnvPrefix = "KILN_"

// User holds per-user settings shared by every bake.
type User struct {
	// DefaultContext replaces schema defaults for variables a template
	// declares. Unknown names are ignored.
	DefaultContext map[string]any `koanf:"default_context"`
	ReplayDir      string         `koanf:"replay_dir"`
	CacheDir       string         `koanf:"cache_dir"`
	// Abbreviations expand template references such as gh:org/repo. The
	// text after the colon replaces {0}.
	Abbreviations map[string]string `koanf:"abbreviations"`
}

// DefaultUserConfigPath returns $XDG_CONFIG_HOME/kiln/config.yaml.
func DefaultUserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "kiln", "config.yaml")
}

func userDefaults() map[string]any {
	return map[string]any{
		"replay_dir": filepath.Join(xdg.DataHome, "kiln", "replay"),
		"cache_dir":  filepath.Join(xdg.CacheHome, "kiln", "templates"),
		"abbreviations": map[string]any{
			"gh": "https://github.com/{0}.git",
			"gl": "https://gitlab.com/{0}.git",
			"bb": "https://bitbucket.org/{0}",
		},
	}
}

// LoadUser layers built-in defaults, the YAML file at path and KILN_
// environment variables. An empty path means DefaultUserConfigPath; a
// missing file at the default path is not an error, but a missing file at
// an explicit path is.
func LoadUser(path string) (*User, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(userDefaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultUserConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("user config %s: %w", path, err)
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var u User
	if err := k.Unmarshal("", &u); err != nil {
		return nil, fmt.Errorf("failed to decode user config: %w", err)
	}
	return &u, nil
}
