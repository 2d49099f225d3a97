package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/pkg/logger"
	"github.com/doeshing/euca-validator/internal/ports"
)

// Service runs local diagnostic scripts for a role and stage, fans out to
// peers when asked to, and assembles one result tree.
type Service struct {
	Config    domain.AdminConfig
	Merger    ports.ConfigMerger
	Runner    ports.ScriptRunner
	Discovery ports.Discovery
	Nodes     ports.NodeLister
	Fanout    *Fanout
	History   ports.HistoryRepository
	Logger    ports.Logger

	// Now is the clock used for reports; nil means time.Now.
	Now func() time.Time
}

// Run builds the result tree for req. Only configuration parse errors are
// returned; every other problem is logged or reported inside the tree.
func (s *Service) Run(ctx context.Context, req domain.ValidationRequest) (*domain.Group, error) {
	if s.Merger == nil {
		return nil, errors.New("config merger unavailable")
	}
	merged, err := s.Merger.Merge(ctx, s.Config.ConfigPaths())
	if err != nil {
		return nil, err
	}

	result := domain.NewGroup()
	s.runScripts(ctx, req, merged, result)

	if req.Traverse {
		targets, err := s.targets(ctx, req)
		if err != nil {
			s.logger().Error("peer enumeration failed", err, map[string]interface{}{"role": string(req.Role)})
			result.Set(domain.DiscoveryFailureKey, domain.Fail(err.Error()))
		}
		targets = s.withoutCollisions(result, targets)
		if len(targets) > 0 {
			invocations := s.fanout().DispatchAll(ctx, req.Stage, targets)
			for i, inv := range invocations {
				result.Set(targets[i].Key, inv)
			}
		}
	}
	return result, nil
}

// Check runs req, folds the tree into a verdict and records the run.
func (s *Service) Check(ctx context.Context, req domain.ValidationRequest) (domain.ValidationReport, error) {
	started := s.now()
	report := domain.ValidationReport{Request: req, Started: started}

	result, err := s.Run(ctx, req)
	if err != nil {
		return report, err
	}
	verdict, err := domain.Aggregate(result)
	if err != nil {
		return report, err
	}
	report.Result = result
	report.Verdict = verdict
	report.Duration = s.now().Sub(started)

	if req.Record && s.History != nil {
		s.record(report)
	}
	return report, nil
}

func (s *Service) runScripts(ctx context.Context, req domain.ValidationRequest, cfg domain.MergedConfig, result *domain.Group) {
	catalog := NewCatalog(s.Config.ScriptPaths())
	env := []string{domain.RolesEnvVar + "=" + string(req.Role)}
	log := s.logger()

	for _, name := range catalog.Scripts(cfg, req.Stage, req.Role) {
		if result.Has(name) {
			continue
		}
		path, ok := catalog.Resolve(name)
		if !ok {
			log.Error("script not found", domain.ErrScriptNotFound, map[string]interface{}{"script": name})
			if s.Config.ReportMissingScripts {
				result.Set(name, domain.Fail(domain.ErrScriptNotFound.Error()))
			}
			continue
		}

		node, err := s.runScript(ctx, path, env)
		if err != nil {
			log.Error("script output unusable", err, map[string]interface{}{"script": name, "path": path})
			if s.Config.ReportMissingScripts {
				result.Set(name, domain.Fail(err.Error()))
			}
			continue
		}
		result.Set(name, node)
	}
}

func (s *Service) runScript(ctx context.Context, path string, env []string) (domain.Node, error) {
	if s.Runner == nil {
		return nil, errors.New("script runner unavailable")
	}
	res, err := s.Runner.Run(ctx, path, env)
	if err != nil {
		if len(res.Stdout) == 0 {
			return nil, fmt.Errorf("%w: %v", domain.ErrScriptOutput, err)
		}
		s.logger().Warn("script exited abnormally", map[string]interface{}{"path": path, "exit_code": res.ExitCode})
	}
	node, err := domain.ParseNode(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrScriptOutput, err)
	}
	return node, nil
}

// targets enumerates the peers req fans out to. The cloud controller asks
// discovery; a cluster controller reads its configured node list and only
// goes one level deep.
func (s *Service) targets(ctx context.Context, req domain.ValidationRequest) ([]Target, error) {
	switch req.Role {
	case domain.RoleCLC:
		if s.Discovery == nil {
			return nil, errors.New("service discovery unavailable")
		}
		records, err := s.Discovery.Services(ctx)
		if err != nil {
			return nil, err
		}
		var targets []Target
		seen := make(map[string]bool)
		for _, rec := range records {
			if _, ok := domain.RoleForService(rec.Type); !ok {
				continue
			}
			host := rec.Host()
			if host == "" {
				s.logger().Warn("service without host", map[string]interface{}{"type": rec.Type, "uri": rec.URI})
				continue
			}
			key := host + "-" + rec.Type
			if seen[key] {
				continue
			}
			seen[key] = true
			targets = append(targets, Target{Key: key, Host: host, Role: rec.Type, Traverse: req.Traverse})
		}
		return targets, nil

	case domain.RoleCC:
		if s.Nodes == nil {
			return nil, errors.New("node list unavailable")
		}
		nodes, err := s.Nodes.Nodes(ctx)
		if err != nil {
			return nil, err
		}
		var targets []Target
		seen := make(map[string]bool)
		for _, host := range nodes {
			if seen[host] {
				continue
			}
			seen[host] = true
			targets = append(targets, Target{Key: host, Host: host, Role: string(domain.RoleNC)})
		}
		return targets, nil
	}
	return nil, nil
}

// withoutCollisions drops peers whose key is already taken by a local
// result; the local result is kept.
func (s *Service) withoutCollisions(result *domain.Group, targets []Target) []Target {
	kept := targets[:0:0]
	for _, target := range targets {
		if result.Has(target.Key) {
			s.logger().Warn("peer skipped, key already used by a local result", map[string]interface{}{"key": target.Key, "host": target.Host})
			continue
		}
		kept = append(kept, target)
	}
	return kept
}

func (s *Service) record(report domain.ValidationReport) {
	raw, err := json.Marshal(report.Result)
	if err != nil {
		s.logger().Error("encode run result", err, nil)
		raw = nil
	}
	rec := domain.RunRecord{
		Timestamp:    report.Started,
		Stage:        report.Request.Stage,
		Role:         string(report.Request.Role),
		Traverse:     report.Request.Traverse,
		Failed:       report.Verdict.Failed,
		FailureCount: len(report.Verdict.Lines),
		DurationMS:   report.Duration.Milliseconds(),
		Result:       raw,
	}
	if err := s.History.Save(rec); err != nil {
		s.logger().Error("save run history", err, map[string]interface{}{"path": s.History.Path()})
	}
}

func (s *Service) fanout() *Fanout {
	if s.Fanout == nil {
		return &Fanout{Logger: s.Logger}
	}
	return s.Fanout
}

func (s *Service) logger() ports.Logger {
	if s.Logger == nil {
		return logger.NewNop()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
