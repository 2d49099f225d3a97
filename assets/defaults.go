package assets

import (
	_ "embed"
)

// DefaultAdminYAML contains the embedded default admin configuration.
//
//go:embed defaults/admin.yaml
var DefaultAdminYAML []byte
