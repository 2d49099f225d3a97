package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// FilePermissions is the permission for history files (rw-r--r--)
	FilePermissions = 0o644
)

// Timeout and concurrency defaults
const (
	// DefaultRemoteTimeout bounds a single remote validator invocation
	DefaultRemoteTimeout = 600 * time.Second
	// DefaultScriptTimeout bounds a single local diagnostic script
	DefaultScriptTimeout = 5 * time.Minute
	// DefaultDiscoveryTimeout is the timeout for discovery requests
	DefaultDiscoveryTimeout = 30 * time.Second
	// DefaultFanoutParallelism is the number of peers dispatched at once
	DefaultFanoutParallelism = 8
)

// Invocation defaults
const (
	DefaultStage         = "monitor"
	DefaultRemoteCommand = "euca-validator"
	DefaultRemoteUser    = "root"
	DefaultSSHPort       = 22
	DefaultDiscoveryURL  = "http://localhost:8773"
)

// Result tree keys and text
const (
	// RemoteFailureKey names the synthetic leaf reported for an unreachable peer
	RemoteFailureKey = "euca-validator"
	// DiscoveryFailureKey names the leaf reported when peers cannot be enumerated
	DiscoveryFailureKey = "discovery"
	// MissingDetails replaces an empty error message on a failing leaf
	MissingDetails = "No details provided"
)

// Environment
const (
	// RolesEnvVar tells a diagnostic script which role it is checking
	RolesEnvVar = "EUCA_ROLES"
	// EucaConfRelPath locates eucalyptus.conf under the install root
	EucaConfRelPath = "etc/eucalyptus/eucalyptus.conf"
	// NodesKey lists compute node hosts in eucalyptus.conf
	NodesKey = "NODES"
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
