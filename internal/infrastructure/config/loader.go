package config

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/euca-validator/assets"
	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/pkg/filesystem"
	"github.com/doeshing/euca-validator/internal/ports"
)

const (
	// DefaultAdminConfigPath is used when neither a flag nor the
	// environment names an admin config.
	DefaultAdminConfigPath = "/etc/eucadmin/validator-admin.yaml"
	// ConfigEnvVar overrides the admin config location.
	ConfigEnvVar = "EUCA_VALIDATOR_CONFIG"
)

// FileLoader loads the YAML admin config (overridable via EUCA_VALIDATOR_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file yields the embedded
// defaults; a file that exists but does not parse is a ConfigParseError.
func (l *FileLoader) Load(context.Context) (domain.AdminConfig, error) {
	cfg, err := defaultConfig()
	if err != nil {
		return domain.AdminConfig{}, err
	}

	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return hydrateDefaults(cfg), nil
		}
		return domain.AdminConfig{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.AdminConfig{}, &domain.ConfigParseError{Path: path, Err: err}
	}
	return hydrateDefaults(cfg), nil
}

// Path returns the file the loader reads.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(ConfigEnvVar); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return DefaultAdminConfigPath
}

// Defaults returns the embedded default settings, hydrated as Load would.
func Defaults() (domain.AdminConfig, error) {
	cfg, err := defaultConfig()
	if err != nil {
		return domain.AdminConfig{}, err
	}
	return hydrateDefaults(cfg), nil
}

func defaultConfig() (domain.AdminConfig, error) {
	var cfg domain.AdminConfig
	if err := yaml.Unmarshal(assets.DefaultAdminYAML, &cfg); err != nil {
		return domain.AdminConfig{}, &domain.ConfigParseError{Path: "embedded defaults", Err: err}
	}
	return cfg, nil
}

func hydrateDefaults(cfg domain.AdminConfig) domain.AdminConfig {
	if cfg.Eucalyptus == "" {
		cfg.Eucalyptus = "/"
	}
	if cfg.Remote.Command == "" {
		cfg.Remote.Command = domain.DefaultRemoteCommand
	}
	if cfg.Remote.User == "" {
		cfg.Remote.User = domain.DefaultRemoteUser
	}
	if cfg.Remote.Port == 0 {
		cfg.Remote.Port = domain.DefaultSSHPort
	}
	if cfg.Remote.Parallelism <= 0 {
		cfg.Remote.Parallelism = domain.DefaultFanoutParallelism
	}
	if cfg.Discovery.Backend == "" {
		cfg.Discovery.Backend = domain.DiscoveryDescribe
	}
	if cfg.Discovery.URL == "" {
		cfg.Discovery.URL = domain.DefaultDiscoveryURL
	}
	for i, f := range cfg.Remote.IdentityFiles {
		cfg.Remote.IdentityFiles[i] = filesystem.ExpandPath(f)
	}
	cfg.Remote.KnownHosts = filesystem.ExpandPath(cfg.Remote.KnownHosts)
	cfg.History.Path = filesystem.ExpandPath(cfg.History.Path)
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
