package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MergedConfig is the deep-merged validator document. The first two levels
// are stage and role; the leaves of interest are ordered script name lists.
type MergedConfig map[string]interface{}

// Lookup walks nested mappings by key.
func (c MergedConfig) Lookup(path ...string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(c)
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Scripts returns the script names declared for stage and role, in order.
// A missing entry yields an empty list. A lone scalar counts as one script.
func (c MergedConfig) Scripts(stage string, role Role) []string {
	value, ok := c.Lookup(stage, string(role))
	if !ok || value == nil {
		return nil
	}
	switch v := value.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// AdminConfig is the validator's own settings file.
type AdminConfig struct {
	Eucalyptus           string            `yaml:"eucalyptus"`
	ValidatorConfigPath  string            `yaml:"validator_config_path"`
	ValidatorScriptPath  string            `yaml:"validator_script_path"`
	ReportMissingScripts bool              `yaml:"report_missing_scripts"`
	ScriptTimeoutSeconds int               `yaml:"script_timeout_seconds"`
	Remote               RemoteSettings    `yaml:"remote"`
	Discovery            DiscoverySettings `yaml:"discovery"`
	History              HistorySettings   `yaml:"history"`
}

// RemoteSettings controls how peers are reached.
type RemoteSettings struct {
	Command               string   `yaml:"command"`
	User                  string   `yaml:"user"`
	Port                  int      `yaml:"port"`
	IdentityFiles         []string `yaml:"identity_files"`
	KnownHosts            string   `yaml:"known_hosts"`
	InsecureIgnoreHostKey bool     `yaml:"insecure_ignore_host_key"`
	TimeoutSeconds        int      `yaml:"timeout_seconds"`
	Parallelism           int      `yaml:"parallelism"`
}

// DiscoverySettings selects how the cloud controller enumerates peers.
type DiscoverySettings struct {
	Backend       string `yaml:"backend"`
	URL           string `yaml:"url"`
	ConsulAddress string `yaml:"consul_address"`
}

// HistorySettings controls run recording.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Discovery backends
const (
	DiscoveryDescribe = "describe"
	DiscoveryConsul   = "consul"
)

// ConfigPaths returns the validator document sources in merge order.
func (c AdminConfig) ConfigPaths() []string {
	return splitSearchPath(c.ValidatorConfigPath)
}

// ScriptPaths returns the script search directories in priority order.
func (c AdminConfig) ScriptPaths() []string {
	return splitSearchPath(c.ValidatorScriptPath)
}

// EucaConfPath locates eucalyptus.conf under the install root.
func (c AdminConfig) EucaConfPath() string {
	root := c.Eucalyptus
	if root == "" {
		root = "/"
	}
	return filepath.Join(root, EucaConfRelPath)
}

// ScriptTimeout returns the per-script limit.
func (c AdminConfig) ScriptTimeout() time.Duration {
	if c.ScriptTimeoutSeconds <= 0 {
		return DefaultScriptTimeout
	}
	return time.Duration(c.ScriptTimeoutSeconds) * time.Second
}

// Timeout returns the per-peer limit.
func (r RemoteSettings) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return DefaultRemoteTimeout
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func splitSearchPath(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ":") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
