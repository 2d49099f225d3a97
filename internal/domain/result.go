package domain

// Node is one element of a validation result tree. The concrete type is
// always *Leaf, *Group or *RemoteInvocation.
type Node interface {
	resultNode()
}

// Leaf is the outcome of a single concrete check.
type Leaf struct {
	Failed bool
	Error  string
}

// Detail returns the error text, or a placeholder when the check gave none.
func (l *Leaf) Detail() string {
	if l.Error == "" {
		return MissingDetails
	}
	return l.Error
}

// Pass builds a passing leaf.
func Pass() *Leaf {
	return &Leaf{}
}

// Fail builds a failing leaf carrying msg.
func Fail(msg string) *Leaf {
	return &Leaf{Failed: true, Error: msg}
}

// Group is an ordered collection of named sub-results. Keys are unique and
// iteration follows insertion order. The zero value is an empty group.
type Group struct {
	names    []string
	children map[string]Node
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{children: make(map[string]Node)}
}

// Set adds node under name. An existing key keeps its position and has its
// value replaced.
func (g *Group) Set(name string, node Node) {
	if g.children == nil {
		g.children = make(map[string]Node)
	}
	if _, exists := g.children[name]; !exists {
		g.names = append(g.names, name)
	}
	g.children[name] = node
}

// Get returns the child stored under name.
func (g *Group) Get(name string) (Node, bool) {
	node, ok := g.children[name]
	return node, ok
}

// Has reports whether name is present.
func (g *Group) Has(name string) bool {
	_, ok := g.children[name]
	return ok
}

// Names returns the child keys in insertion order.
func (g *Group) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Len returns the number of children.
func (g *Group) Len() int {
	return len(g.names)
}

// Each calls fn for every child in order.
func (g *Group) Each(fn func(name string, node Node)) {
	for _, name := range g.names {
		fn(name, g.children[name])
	}
}

// Equal reports whether both groups hold equal children in the same order.
func (g *Group) Equal(other *Group) bool {
	return EqualNodes(g, other)
}

// RemoteInvocation wraps what a peer host reported when this validator was
// re-run there. Command and Status are kept for diagnostics only; the
// verdict comes from Output.
type RemoteInvocation struct {
	Command string
	Status  int
	Output  Node
}

func (*Leaf) resultNode()             {}
func (*Group) resultNode()            {}
func (*RemoteInvocation) resultNode() {}

// EqualNodes compares two trees structurally, including child order.
func EqualNodes(a, b Node) bool {
	switch x := a.(type) {
	case *Leaf:
		y, ok := b.(*Leaf)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return *x == *y
	case *RemoteInvocation:
		y, ok := b.(*RemoteInvocation)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return x.Command == y.Command && x.Status == y.Status && EqualNodes(x.Output, y.Output)
	case *Group:
		y, ok := b.(*Group)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		if len(x.names) != len(y.names) {
			return false
		}
		for i, name := range x.names {
			if y.names[i] != name {
				return false
			}
			if !EqualNodes(x.children[name], y.children[name]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		return false
	}
}
