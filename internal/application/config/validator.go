package config

import (
	"fmt"
	"net/url"

	"github.com/doeshing/euca-validator/internal/domain"
)

// Validate ensures the admin config is usable before any check runs.
func Validate(cfg domain.AdminConfig) error {
	if len(cfg.ConfigPaths()) == 0 {
		return fmt.Errorf("validator_config_path must name at least one file")
	}
	if len(cfg.ScriptPaths()) == 0 {
		return fmt.Errorf("validator_script_path must name at least one directory")
	}
	if cfg.ScriptTimeoutSeconds < 0 {
		return fmt.Errorf("script_timeout_seconds must be >= 0")
	}
	if err := validateRemote(cfg.Remote); err != nil {
		return err
	}
	if err := validateDiscovery(cfg.Discovery); err != nil {
		return err
	}
	if err := validateHistory(cfg.History); err != nil {
		return err
	}
	return nil
}

func validateRemote(remote domain.RemoteSettings) error {
	if remote.Command == "" {
		return fmt.Errorf("remote.command must be set")
	}
	if remote.Port < 0 || remote.Port > 65535 {
		return fmt.Errorf("remote.port must be between 1 and 65535 (0 uses the default), got %d", remote.Port)
	}
	if remote.TimeoutSeconds < 0 {
		return fmt.Errorf("remote.timeout_seconds must be >= 0")
	}
	if remote.Parallelism < 0 {
		return fmt.Errorf("remote.parallelism must be >= 0")
	}
	return nil
}

func validateDiscovery(disc domain.DiscoverySettings) error {
	switch disc.Backend {
	case "", domain.DiscoveryDescribe:
		if disc.URL == "" {
			return nil
		}
		u, err := url.Parse(disc.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("discovery.url must be an absolute URL, got %q", disc.URL)
		}
	case domain.DiscoveryConsul:
	default:
		return fmt.Errorf("discovery.backend must be %s|%s, got %s", domain.DiscoveryDescribe, domain.DiscoveryConsul, disc.Backend)
	}
	return nil
}

func validateHistory(history domain.HistorySettings) error {
	if history.Enabled && history.Path == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}
	return nil
}
