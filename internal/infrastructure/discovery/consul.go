package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"

	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/ports"
)

// ConsulCatalog discovers cloud services registered in Consul under the
// service type names (cluster, storage, walrus).
type ConsulCatalog struct {
	cli *consulapi.Client
}

// NewConsulCatalog connects to the agent at addr, or the default agent
// address when addr is empty.
func NewConsulCatalog(addr string) (*ConsulCatalog, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}
	return &ConsulCatalog{cli: cli}, nil
}

// Services implements ports.Discovery.
func (c *ConsulCatalog) Services(ctx context.Context) ([]domain.ServiceRecord, error) {
	if c.cli == nil {
		return nil, fmt.Errorf("consul client not configured")
	}
	var records []domain.ServiceRecord
	for _, serviceType := range domain.TraversableServiceTypes() {
		opts := (&consulapi.QueryOptions{}).WithContext(ctx)
		entries, _, err := c.cli.Health().Service(serviceType, "", false, opts)
		if err != nil {
			return nil, fmt.Errorf("consul lookup %s: %w", serviceType, err)
		}
		for _, entry := range entries {
			records = append(records, recordFromEntry(serviceType, entry))
		}
	}
	return records, nil
}

func recordFromEntry(serviceType string, entry *consulapi.ServiceEntry) domain.ServiceRecord {
	var addr string
	var port int
	if entry.Service != nil {
		addr = entry.Service.Address
		port = entry.Service.Port
	}
	if addr == "" && entry.Node != nil {
		addr = entry.Node.Address
	}
	uri := "http://" + addr
	if port > 0 {
		uri = "http://" + net.JoinHostPort(addr, strconv.Itoa(port))
	}
	return domain.ServiceRecord{
		Type:       serviceType,
		URI:        uri,
		LocalState: entry.Checks.AggregatedStatus(),
	}
}

var _ ports.Discovery = (*ConsulCatalog)(nil)
