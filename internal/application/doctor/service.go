package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"

	configapp "github.com/doeshing/euca-validator/internal/application/config"
	"github.com/doeshing/euca-validator/internal/application/validator"
	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/ports"
)

// Request selects the role and stage whose setup is diagnosed.
type Request struct {
	Stage string
	Role  domain.Role
	// Network also contacts discovery or reads the node list.
	Network bool
}

// Service runs setup diagnostics for the validator itself.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Merger         ports.ConfigMerger
	Discovery      ports.Discovery
	Nodes          ports.NodeLister
	History        ports.HistoryRepository
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context, req Request) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Admin config", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := configapp.Validate(cfg); err != nil {
		checks = append(checks, fail("Admin config", err.Error()))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Admin config", "valid"))

	merged, check := s.validatorConfig(ctx, cfg)
	checks = append(checks, check)
	checks = append(checks, scriptDirCheck(cfg.ScriptPaths()))
	checks = append(checks, scriptsCheck(cfg, merged, req))
	checks = append(checks, sshCheck(cfg.Remote))

	if req.Network {
		if check, ran := s.peerCheck(ctx, req.Role); ran {
			checks = append(checks, check)
		}
	}

	if s.History != nil {
		checks = append(checks, ok("History", s.History.Path()))
	} else {
		checks = append(checks, warn("History", "recording disabled"))
	}

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) validatorConfig(ctx context.Context, cfg domain.AdminConfig) (domain.MergedConfig, domain.HealthCheck) {
	paths := cfg.ConfigPaths()
	present := 0
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			present++
		}
	}
	if s.Merger == nil {
		return nil, warn("Validator config", "merger not initialized")
	}
	merged, err := s.Merger.Merge(ctx, paths)
	if err != nil {
		return nil, fail("Validator config", err.Error())
	}
	if present == 0 {
		return merged, warn("Validator config", fmt.Sprintf("none of %s exist", strings.Join(paths, ", ")))
	}
	return merged, ok("Validator config", fmt.Sprintf("merged %d of %d files", present, len(paths)))
}

func scriptDirCheck(dirs []string) domain.HealthCheck {
	present := 0
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			present++
		}
	}
	if present == 0 {
		return warn("Script directories", fmt.Sprintf("none of %s exist", strings.Join(dirs, ", ")))
	}
	return ok("Script directories", fmt.Sprintf("%d of %d present", present, len(dirs)))
}

func scriptsCheck(cfg domain.AdminConfig, merged domain.MergedConfig, req Request) domain.HealthCheck {
	catalog := validator.NewCatalog(cfg.ScriptPaths())
	names := catalog.Scripts(merged, req.Stage, req.Role)
	if len(names) == 0 {
		return warn("Scripts", fmt.Sprintf("none configured for %s/%s", req.Stage, req.Role))
	}
	var missing []string
	for _, name := range names {
		if _, found := catalog.Resolve(name); !found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return warn("Scripts", fmt.Sprintf("missing: %s", strings.Join(missing, ", ")))
	}
	return ok("Scripts", fmt.Sprintf("%d resolved for %s/%s", len(names), req.Stage, req.Role))
}

func sshCheck(remote domain.RemoteSettings) domain.HealthCheck {
	identities := 0
	for _, path := range remote.IdentityFiles {
		if _, err := os.Stat(path); err == nil {
			identities++
		}
	}
	if identities == 0 {
		return warn("SSH credentials", "no identity files found; traversal will fail")
	}
	if remote.InsecureIgnoreHostKey {
		return warn("SSH credentials", fmt.Sprintf("%d identities, host key checking disabled", identities))
	}
	if _, err := os.Stat(remote.KnownHosts); err != nil {
		return warn("SSH credentials", fmt.Sprintf("known_hosts unreadable: %v", err))
	}
	return ok("SSH credentials", fmt.Sprintf("%d identities, known_hosts %s", identities, remote.KnownHosts))
}

func (s *Service) peerCheck(ctx context.Context, role domain.Role) (domain.HealthCheck, bool) {
	switch role {
	case domain.RoleCLC:
		if s.Discovery == nil {
			return warn("Service discovery", "not initialized"), true
		}
		records, err := s.Discovery.Services(ctx)
		if err != nil {
			return warn("Service discovery", err.Error()), true
		}
		traversable := 0
		for _, rec := range records {
			if _, ok := domain.RoleForService(rec.Type); ok {
				traversable++
			}
		}
		return ok("Service discovery", fmt.Sprintf("%d services, %d traversable", len(records), traversable)), true
	case domain.RoleCC:
		if s.Nodes == nil {
			return warn("Node list", "not initialized"), true
		}
		nodes, err := s.Nodes.Nodes(ctx)
		if err != nil {
			return warn("Node list", err.Error()), true
		}
		details := fmt.Sprintf("%d nodes", len(nodes))
		if src, ok := s.Nodes.(interface{ Path() string }); ok {
			details += " in " + src.Path()
		}
		return ok("Node list", details), true
	}
	return domain.HealthCheck{}, false
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
