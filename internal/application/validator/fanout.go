package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/pkg/logger"
	"github.com/doeshing/euca-validator/internal/ports"
)

// Target is one peer to validate remotely.
type Target struct {
	// Key names the peer's subtree in the parent group.
	Key  string
	Host string
	// Role is a role code or a discovery service type; service types are
	// mapped to role codes when the command is built.
	Role     string
	Traverse bool
}

// Fanout re-runs the validator on peers and wraps what they report.
type Fanout struct {
	Executor    ports.RemoteExecutor
	Logger      ports.Logger
	Command     string
	Timeout     time.Duration
	Parallelism int
}

// NewFanout builds a fanout from remote settings.
func NewFanout(executor ports.RemoteExecutor, settings domain.RemoteSettings, log ports.Logger) *Fanout {
	return &Fanout{
		Executor:    executor,
		Logger:      log,
		Command:     settings.Command,
		Timeout:     settings.Timeout(),
		Parallelism: settings.Parallelism,
	}
}

// Dispatch validates one peer. It never fails: any problem reaching the
// peer or reading its answer becomes a failing leaf under
// domain.RemoteFailureKey.
func (f *Fanout) Dispatch(ctx context.Context, stage string, target Target) *domain.RemoteInvocation {
	cmd := BuildRemoteCommand(f.command(), target.Role, stage, target.Traverse)
	log := f.logger()

	if err := ctx.Err(); err != nil {
		return failedInvocation(cmd, 0, fmt.Errorf("%w: %s: not started: %v", domain.ErrRemoteDispatch, target.Host, err))
	}
	if f.Executor == nil {
		return failedInvocation(cmd, 0, fmt.Errorf("%w: no remote executor configured", domain.ErrRemoteDispatch))
	}

	dctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	log.Debug("dispatching remote validator", map[string]interface{}{"host": target.Host, "command": cmd})
	res, err := f.Executor.Run(dctx, target.Host, cmd)
	if err != nil {
		log.Warn("remote validator unreachable", map[string]interface{}{"host": target.Host, "error": err.Error()})
		return failedInvocation(cmd, res.Status, fmt.Errorf("%w: %v", domain.ErrRemoteDispatch, err))
	}
	if res.Status != 0 {
		msg := fmt.Sprintf("%s: exited with status %d", target.Host, res.Status)
		if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
			msg += ": " + stderr
		}
		log.Warn("remote validator failed", map[string]interface{}{"host": target.Host, "status": res.Status})
		return failedInvocation(cmd, res.Status, fmt.Errorf("%w: %s", domain.ErrRemoteDispatch, msg))
	}

	output, err := domain.ParseNode([]byte(res.Output))
	if err != nil {
		log.Warn("remote validator output unparsable", map[string]interface{}{"host": target.Host, "error": err.Error()})
		return failedInvocation(cmd, res.Status, fmt.Errorf("%w: %s: %v", domain.ErrRemoteDispatch, target.Host, err))
	}
	return &domain.RemoteInvocation{Command: cmd, Status: res.Status, Output: output}
}

// DispatchAll validates every target with bounded concurrency. The result
// slice is index-aligned with targets, whatever order dispatches finish in.
func (f *Fanout) DispatchAll(ctx context.Context, stage string, targets []Target) []*domain.RemoteInvocation {
	results := make([]*domain.RemoteInvocation, len(targets))
	var g errgroup.Group
	g.SetLimit(f.parallelism())
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			results[i] = f.Dispatch(ctx, stage, target)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func failedInvocation(cmd string, status int, err error) *domain.RemoteInvocation {
	output := domain.NewGroup()
	output.Set(domain.RemoteFailureKey, domain.Fail(err.Error()))
	return &domain.RemoteInvocation{Command: cmd, Status: status, Output: output}
}

func (f *Fanout) command() string {
	if f.Command == "" {
		return domain.DefaultRemoteCommand
	}
	return f.Command
}

func (f *Fanout) timeout() time.Duration {
	if f.Timeout <= 0 {
		return domain.DefaultRemoteTimeout
	}
	return f.Timeout
}

func (f *Fanout) parallelism() int {
	if f.Parallelism <= 0 {
		return domain.DefaultFanoutParallelism
	}
	return f.Parallelism
}

func (f *Fanout) logger() ports.Logger {
	if f.Logger == nil {
		return logger.NewNop()
	}
	return f.Logger
}

// BuildRemoteCommand renders the command that re-runs the validator on a
// peer, e.g. "euca-validator -t -C SC monitor -j".
func BuildRemoteCommand(binary, role, stage string, traverse bool) string {
	parts := []string{binary}
	if traverse {
		parts = append(parts, "-t")
	}
	parts = append(parts, "-C", shellQuote(domain.RemoteRoleName(role)), shellQuote(stage), "-j")
	return strings.Join(parts, " ")
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_./,:=+@%-]+$`)

func shellQuote(s string) string {
	if s != "" && shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
