package phase

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// mappingValue returns the value node for key in mapping m, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func scalar(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

// truthy follows YAML semantics for booleans and falls back to "non-empty
// and not zero" for anything else, so `done: 1` and `done: yes` count.
func truthy(n *yaml.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return false
		}
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return f != 0
		}
		switch strings.ToLower(strings.TrimSpace(n.Value)) {
		case "", "no", "off", "false":
			return false
		}
		return true
	case yaml.MappingNode, yaml.SequenceNode:
		return len(n.Content) > 0
	}
	return true
}

// setScalar sets key in mapping m to a plain scalar, appending the key when
// absent.
func setScalar(m *yaml.Node, key, value, tag string) {
	if v := mappingValue(m, key); v != nil {
		v.Kind = yaml.ScalarNode
		v.Tag = tag
		v.Value = value
		v.Style = 0
		v.Content = nil
		return
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value},
	)
}

// boolNode returns a copy of prev holding a plain boolean, keeping any
// comments attached to it.
func boolNode(v bool, prev *yaml.Node) *yaml.Node {
	n := *prev
	n.Kind = yaml.ScalarNode
	n.Tag = "!!bool"
	n.Value = strconv.FormatBool(v)
	n.Style = 0
	n.Content = nil
	return &n
}

// snapshot copies the scalar state of a value node so a failed save can be
// rolled back.
type snapshot struct {
	node  *yaml.Node
	saved yaml.Node
}

func takeSnapshot(n *yaml.Node) snapshot {
	return snapshot{node: n, saved: *n}
}

func (s snapshot) restore() {
	*s.node = s.saved
}
