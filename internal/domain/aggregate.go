package domain

import "fmt"

// Verdict is the folded outcome of a result tree.
type Verdict struct {
	Failed bool
	Lines  []string
}

// Aggregate folds a whole run result into a verdict. The root must be a
// group.
func Aggregate(root Node) (Verdict, error) {
	if group, ok := root.(*Group); !ok || group == nil {
		return Verdict{}, fmt.Errorf("%w: root is %s, expected a group", ErrMalformedResult, kindOf(root))
	}
	return AggregateFrom(root, "")
}

// AggregateFrom folds the tree under node, reporting failing leaves relative
// to path. Every node is visited so all failures are collected; a
// group fails if any descendant leaf fails.
//
// Group children extend the path with ":name"; a remote invocation hands its
// own path to its output. A failing leaf at path p yields "p: <error>".
func AggregateFrom(node Node, path string) (Verdict, error) {
	type frame struct {
		node Node
		path string
	}

	var verdict Verdict
	stack := []frame{{node: node, path: path}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n := top.node.(type) {
		case *Leaf:
			if n == nil {
				return verdict, malformedAt(top.path, "nil leaf")
			}
			if n.Failed {
				verdict.Failed = true
				verdict.Lines = append(verdict.Lines, top.path+": "+n.Detail())
			}
		case *RemoteInvocation:
			if n == nil || n.Output == nil {
				return verdict, malformedAt(top.path, "remote invocation without output")
			}
			stack = append(stack, frame{node: n.Output, path: top.path})
		case *Group:
			if n == nil {
				return verdict, malformedAt(top.path, "nil group")
			}
			// Pushed in reverse so children pop in declaration order.
			for i := len(n.names) - 1; i >= 0; i-- {
				name := n.names[i]
				stack = append(stack, frame{node: n.children[name], path: JoinPath(top.path, name)})
			}
		default:
			return verdict, malformedAt(top.path, fmt.Sprintf("unexpected node %T", top.node))
		}
	}
	return verdict, nil
}

// JoinPath appends name to a diagnostic path.
func JoinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + ":" + name
}

func malformedAt(path, msg string) error {
	if path == "" {
		return fmt.Errorf("%w: %s", ErrMalformedResult, msg)
	}
	return fmt.Errorf("%w: %s at %q", ErrMalformedResult, msg, path)
}
