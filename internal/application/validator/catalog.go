package validator

import (
	"os"
	"path/filepath"

	"github.com/doeshing/euca-validator/internal/domain"
)

// Catalog resolves script names against an ordered search path.
type Catalog struct {
	searchPath []string
}

// NewCatalog builds a catalog over the given directories.
func NewCatalog(searchPath []string) *Catalog {
	return &Catalog{searchPath: searchPath}
}

// Scripts returns the script names configured for stage and role.
func (c *Catalog) Scripts(cfg domain.MergedConfig, stage string, role domain.Role) []string {
	return cfg.Scripts(stage, role)
}

// Resolve returns the first existing file called name on the search path.
func (c *Catalog) Resolve(name string) (string, bool) {
	for _, dir := range c.searchPath {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
