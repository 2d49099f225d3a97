package app

import (
	"context"
	"fmt"

	"github.com/doeshing/euca-validator/internal/application/doctor"
	"github.com/doeshing/euca-validator/internal/application/validator"
	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/infrastructure/config"
	"github.com/doeshing/euca-validator/internal/infrastructure/discovery"
	"github.com/doeshing/euca-validator/internal/infrastructure/executor"
	"github.com/doeshing/euca-validator/internal/infrastructure/history"
	"github.com/doeshing/euca-validator/internal/infrastructure/remote"
	"github.com/doeshing/euca-validator/internal/pkg/logger"
	"github.com/doeshing/euca-validator/internal/ports"
)

// Options selects how the container is built.
type Options struct {
	ConfigFile string
	Verbose    bool
}

// Factory builds a container on demand, once flags have been parsed.
type Factory func(ctx context.Context) (*Container, error)

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config       domain.AdminConfig
	ConfigLoader *config.FileLoader
	Validator    *validator.Service
	Doctor       *doctor.Service
	HistoryStore ports.HistoryRepository
	Logger       *logger.ZapLogger

	closers []func() error
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigFile)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.New(opts.Verbose)
	log.Debug("admin config loaded", map[string]interface{}{"path": cfgLoader.Path()})

	disc, err := newDiscovery(cfg.Discovery)
	if err != nil {
		return nil, err
	}

	sshExecutor := remote.NewSSHExecutor(cfg.Remote, log)

	c := &Container{
		Config:       cfg,
		ConfigLoader: cfgLoader,
		Logger:       log,
		closers:      []func() error{log.Sync},
	}

	var runHistory ports.HistoryRepository
	if cfg.History.Path != "" {
		store := history.NewSQLiteStore(cfg.History.Path)
		c.HistoryStore = store
		c.closers = append(c.closers, store.Close)
		if cfg.History.Enabled {
			runHistory = store
		}
	}

	merger := config.NewYAMLMerger(log)
	nodes := config.NewEucaConf(cfg.EucaConfPath())

	c.Validator = &validator.Service{
		Config:    cfg,
		Merger:    merger,
		Runner:    executor.NewLocalExecutor("/", cfg.ScriptTimeout()),
		Discovery: disc,
		Nodes:     nodes,
		Fanout:    validator.NewFanout(sshExecutor, cfg.Remote, log),
		History:   runHistory,
		Logger:    log,
	}
	c.Doctor = &doctor.Service{
		ConfigProvider: cfgLoader,
		Merger:         merger,
		Discovery:      disc,
		Nodes:          nodes,
		History:        runHistory,
	}
	return c, nil
}

// NewFactory returns a Factory bound to opts.
func NewFactory(opts *Options) Factory {
	return func(ctx context.Context) (*Container, error) {
		return BuildContainer(ctx, *opts)
	}
}

// Close releases resources held by adapters.
func (c *Container) Close() error {
	var first error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newDiscovery(settings domain.DiscoverySettings) (ports.Discovery, error) {
	switch settings.Backend {
	case "", domain.DiscoveryDescribe:
		return discovery.NewDescribeClient(settings.URL, nil), nil
	case domain.DiscoveryConsul:
		return discovery.NewConsulCatalog(settings.ConsulAddress)
	default:
		return nil, fmt.Errorf("unknown discovery backend %q (expected %s or %s)", settings.Backend, domain.DiscoveryDescribe, domain.DiscoveryConsul)
	}
}
