package domain

// Role is the functional component a host plays in the cloud.
type Role string

const (
	RoleCLC Role = "CLC" // cloud controller
	RoleCC  Role = "CC"  // cluster controller
	RoleSC  Role = "SC"  // storage controller
	RoleWS  Role = "WS"  // walrus
	RoleNC  Role = "NC"  // node controller
)

// serviceTypes lists, in traversal order, the discovered service types
// that are validated remotely from the cloud controller.
var serviceTypes = []struct {
	name string
	role Role
}{
	{"cluster", RoleCC},
	{"storage", RoleSC},
	{"walrus", RoleWS},
}

// RoleForService maps a discovery service type to the role validated on
// that host.
func RoleForService(serviceType string) (Role, bool) {
	for _, st := range serviceTypes {
		if st.name == serviceType {
			return st.role, true
		}
	}
	return "", false
}

// TraversableServiceTypes returns the service types the cloud controller
// fans out to.
func TraversableServiceTypes() []string {
	out := make([]string, 0, len(serviceTypes))
	for _, st := range serviceTypes {
		out = append(out, st.name)
	}
	return out
}

// RemoteRoleName returns the role flag value passed to a remote validator.
// Service type names are mapped to role codes; anything else passes through.
func RemoteRoleName(role string) string {
	if mapped, ok := RoleForService(role); ok {
		return string(mapped)
	}
	return role
}
