package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wire keys used by scripts and by remote validators.
const (
	keyFailed  = "failed"
	keyError   = "error"
	keyCommand = "cmd"
	keyStatus  = "status"
	keyOutput  = "output"
)

// MarshalJSON encodes a leaf as {"failed": 0|1, "error": "..."}.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"failed":`)
	if l.Failed {
		buf.WriteByte('1')
	} else {
		buf.WriteByte('0')
	}
	if l.Error != "" {
		msg, err := json.Marshal(l.Error)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"error":`)
		buf.Write(msg)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes a group as a JSON object in insertion order.
func (g *Group) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range g.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		child, err := marshalNode(g.children[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(child)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes a remote invocation as {"cmd", "status", "output"}.
func (r *RemoteInvocation) MarshalJSON() ([]byte, error) {
	cmd, err := json.Marshal(r.Command)
	if err != nil {
		return nil, err
	}
	output, err := marshalNode(r.Output)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyOutput, err)
	}
	var buf bytes.Buffer
	buf.WriteString(`{"cmd":`)
	buf.Write(cmd)
	if r.Status != 0 {
		buf.WriteString(`,"status":`)
		buf.WriteString(strconv.Itoa(r.Status))
	}
	buf.WriteString(`,"output":`)
	buf.Write(output)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNode(node Node) ([]byte, error) {
	switch n := node.(type) {
	case *Leaf:
		if n != nil {
			return n.MarshalJSON()
		}
	case *Group:
		if n != nil {
			return n.MarshalJSON()
		}
	case *RemoteInvocation:
		if n != nil {
			return n.MarshalJSON()
		}
	}
	return nil, fmt.Errorf("%w: cannot encode %T", ErrMalformedResult, node)
}

// ParseNode decodes a result tree from its wire form. The document must be a
// JSON object; its shape decides the variant. An object carrying "cmd" and
// "output" is a remote invocation, one carrying a scalar "failed" is a leaf,
// anything else is a group.
func ParseNode(data []byte) (Node, error) {
	members, err := readObject(data)
	if err != nil {
		return nil, err
	}
	return classify(members)
}

// ParseGroup decodes a result tree whose root must be a group.
func ParseGroup(data []byte) (*Group, error) {
	node, err := ParseNode(data)
	if err != nil {
		return nil, err
	}
	group, ok := node.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: root is %s, expected a group", ErrMalformedResult, kindOf(node))
	}
	return group, nil
}

type member struct {
	key   string
	value json.RawMessage
}

func readObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected an object, got %v", ErrMalformedResult, tok)
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected key %v", ErrMalformedResult, tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResult, key, err)
		}
		members = append(members, member{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedResult)
	}
	return members, nil
}

func classify(members []member) (Node, error) {
	index := make(map[string]json.RawMessage, len(members))
	for _, m := range members {
		index[m.key] = m.value
	}

	cmd, hasCmd := index[keyCommand]
	output, hasOutput := index[keyOutput]
	if hasCmd && hasOutput && isString(cmd) {
		return parseRemote(cmd, index[keyStatus], output)
	}
	if failed, ok := index[keyFailed]; ok && isScalar(failed) {
		return parseLeaf(failed, index[keyError])
	}

	group := NewGroup()
	for _, m := range members {
		child, err := ParseNode(m.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.key, err)
		}
		group.Set(m.key, child)
	}
	return group, nil
}

func parseLeaf(failedRaw, errorRaw json.RawMessage) (*Leaf, error) {
	failed, err := parseFailed(failedRaw)
	if err != nil {
		return nil, err
	}
	leaf := &Leaf{Failed: failed}
	if len(errorRaw) > 0 {
		var msg string
		switch {
		case isNull(errorRaw):
		case isString(errorRaw):
			if err := json.Unmarshal(errorRaw, &msg); err != nil {
				return nil, fmt.Errorf("%w: error: %v", ErrMalformedResult, err)
			}
		default:
			msg = string(bytes.TrimSpace(errorRaw))
		}
		leaf.Error = msg
	}
	return leaf, nil
}

// parseFailed accepts 0/1, true/false and their quoted forms.
func parseFailed(raw json.RawMessage) (bool, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return false, fmt.Errorf("%w: failed: %v", ErrMalformedResult, err)
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return false, fmt.Errorf("%w: failed: %v", ErrMalformedResult, err)
		}
		return int64(f) != 0, nil
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(n) != 0, nil
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		}
		return false, fmt.Errorf("%w: failed: invalid value %q", ErrMalformedResult, t)
	default:
		return false, fmt.Errorf("%w: failed: unsupported value %s", ErrMalformedResult, string(raw))
	}
}

func parseRemote(cmdRaw, statusRaw, outputRaw json.RawMessage) (*RemoteInvocation, error) {
	remote := &RemoteInvocation{}
	if err := json.Unmarshal(cmdRaw, &remote.Command); err != nil {
		return nil, fmt.Errorf("%w: cmd: %v", ErrMalformedResult, err)
	}
	if len(statusRaw) > 0 && !isNull(statusRaw) {
		if err := json.Unmarshal(statusRaw, &remote.Status); err != nil {
			return nil, fmt.Errorf("%w: status: %v", ErrMalformedResult, err)
		}
	}
	output, err := ParseNode(outputRaw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyOutput, err)
	}
	remote.Output = output
	return remote, nil
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isString(raw json.RawMessage) bool {
	return firstByte(raw) == '"'
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isScalar(raw json.RawMessage) bool {
	switch firstByte(raw) {
	case '{', '[', 0:
		return false
	}
	return !isNull(raw)
}

func kindOf(node Node) string {
	switch node.(type) {
	case *Leaf:
		return "a leaf"
	case *Group:
		return "a group"
	case *RemoteInvocation:
		return "a remote invocation"
	default:
		return fmt.Sprintf("%T", node)
	}
}
