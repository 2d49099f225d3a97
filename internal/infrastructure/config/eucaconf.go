package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"

	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/ports"
)

// EucaConf reads the shell-style eucalyptus.conf of a cluster controller.
type EucaConf struct {
	path string
}

// NewEucaConf builds a reader for the given file.
func NewEucaConf(path string) *EucaConf {
	return &EucaConf{path: path}
}

// Values parses every KEY="value" assignment in the file.
func (e *EucaConf) Values() (map[string]string, error) {
	values, err := godotenv.Read(e.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.path, err)
	}
	return values, nil
}

// Nodes implements ports.NodeLister using the whitespace separated NODES
// entry.
func (e *EucaConf) Nodes(context.Context) ([]string, error) {
	values, err := e.Values()
	if err != nil {
		return nil, err
	}
	nodes, ok := values[domain.NodesKey]
	if !ok {
		return nil, fmt.Errorf("%s not set in %s", domain.NodesKey, e.path)
	}
	return strings.Fields(nodes), nil
}

// Path returns the file being read.
func (e *EucaConf) Path() string {
	return e.path
}

var _ ports.NodeLister = (*EucaConf)(nil)
