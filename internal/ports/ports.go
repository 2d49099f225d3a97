// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the validation core and
// the adapters that touch the outside world: the filesystem, local
// processes, SSH, service discovery and the run history database.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., ScriptRunner, RemoteExecutor)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"

	"github.com/doeshing/euca-validator/internal/domain"
)

// ConfigProvider loads the validator admin settings.
// Implementations typically read from /etc/eucadmin/validator-admin.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.AdminConfig, error)
}

// ConfigMerger deep-merges the validator documents found at paths.
// Missing paths are skipped; an unparsable one fails the whole merge.
type ConfigMerger interface {
	Merge(ctx context.Context, paths []string) (domain.MergedConfig, error)
}

// ScriptRunner executes one diagnostic script and captures its stdout.
// env entries are KEY=VALUE pairs added to the child environment only.
type ScriptRunner interface {
	Run(ctx context.Context, path string, env []string) (domain.ExecutionResult, error)
}

// RemoteExecutor runs a command on a peer host and returns its exit status
// and stdout. The context deadline bounds the whole exchange.
type RemoteExecutor interface {
	Run(ctx context.Context, host, command string) (domain.RemoteResult, error)
}

// Discovery enumerates the services registered with the cloud controller.
type Discovery interface {
	Services(ctx context.Context) ([]domain.ServiceRecord, error)
}

// NodeLister returns the compute node hosts managed by a cluster controller.
type NodeLister interface {
	Nodes(ctx context.Context) ([]string, error)
}

// HistoryRepository persists finished validation runs.
type HistoryRepository interface {
	Save(domain.RunRecord) error
	Records(limit int, failedOnly bool) ([]domain.RunRecord, error)
	Clear() error
	Path() string
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
