package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/doeshing/euca-validator/internal/domain"
)

func TestFileLoaderMissingFileUsesDefaults(t *testing.T) {
	loader := NewFileLoader(filepath.Join(t.TempDir(), "validator-admin.yaml"))

	cfg, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Remote.Port != domain.DefaultSSHPort || cfg.Remote.User != domain.DefaultRemoteUser {
		t.Fatalf("remote defaults not applied: %+v", cfg.Remote)
	}
	if cfg.Discovery.Backend != domain.DiscoveryDescribe {
		t.Fatalf("Discovery.Backend = %s", cfg.Discovery.Backend)
	}
	if len(cfg.ConfigPaths()) != 2 || len(cfg.ScriptPaths()) != 2 {
		t.Fatalf("search paths = %v / %v", cfg.ConfigPaths(), cfg.ScriptPaths())
	}
	if strings.HasPrefix(cfg.History.Path, "~") || strings.HasPrefix(cfg.Remote.KnownHosts, "~") {
		t.Fatalf("home not expanded: %s, %s", cfg.History.Path, cfg.Remote.KnownHosts)
	}
}

func TestFileLoaderOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "admin.yaml", `
eucalyptus: /opt/eucalyptus
validator_script_path: /srv/scripts
report_missing_scripts: true
remote:
  user: eucalyptus
  identity_files: [/keys/id_ed25519]
discovery:
  backend: consul
  consul_address: 127.0.0.1:8500
`)

	cfg, err := NewFileLoader(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Eucalyptus != "/opt/eucalyptus" || !cfg.ReportMissingScripts {
		t.Fatalf("top-level overrides lost: %+v", cfg)
	}
	if cfg.Remote.User != "eucalyptus" || cfg.Remote.Port != 22 {
		t.Fatalf("remote = %+v", cfg.Remote)
	}
	if len(cfg.Remote.IdentityFiles) != 1 || cfg.Remote.IdentityFiles[0] != "/keys/id_ed25519" {
		t.Fatalf("IdentityFiles = %v", cfg.Remote.IdentityFiles)
	}
	if cfg.Discovery.Backend != domain.DiscoveryConsul || cfg.Discovery.URL != domain.DefaultDiscoveryURL {
		t.Fatalf("discovery = %+v", cfg.Discovery)
	}
	if got := cfg.ValidatorConfigPath; got != "/etc/eucalyptus/validator.yaml:/etc/eucadmin/validator.yaml" {
		t.Fatalf("ValidatorConfigPath = %s", got)
	}
}

func TestFileLoaderRejectsBadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "admin.yaml", "remote: [oops\n")

	_, err := NewFileLoader(path).Load(context.Background())
	var parseErr *domain.ConfigParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Load() error = %v, want ConfigParseError", err)
	}
}

func TestFileLoaderPathPrecedence(t *testing.T) {
	t.Setenv(ConfigEnvVar, "/from/env.yaml")

	if got := NewFileLoader("/from/flag.yaml").Path(); got != "/from/flag.yaml" {
		t.Fatalf("flag path = %s", got)
	}
	if got := NewFileLoader("").Path(); got != "/from/env.yaml" {
		t.Fatalf("env path = %s", got)
	}

	t.Setenv(ConfigEnvVar, "")
	if got := NewFileLoader("").Path(); got != DefaultAdminConfigPath {
		t.Fatalf("default path = %s", got)
	}
}
