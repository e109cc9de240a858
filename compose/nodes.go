package compose

import "gopkg.in/yaml.v3"

const (
	strTag   = "!!str"
	boolTag  = "!!bool"
	nullTag  = "!!null"
	mergeTag = "!!merge"
	mergeKey = "<<"
)

// resolve follows aliases to the node they point at
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	n = resolve(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == nullTag)
}

// mappingIndex returns the index of the value for key in m.Content, or -1
func mappingIndex(m *yaml.Node, key string) int {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i + 1
		}
	}
	return -1
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if i := mappingIndex(m, key); i >= 0 {
		return m.Content[i]
	}
	return nil
}

// isMergeKey reports whether k is a "<<" merge key rather than a string key
func isMergeKey(k *yaml.Node) bool {
	return k.Kind == yaml.ScalarNode && k.Value == mergeKey &&
		(k.Tag == "" || k.Tag == "!" || k.ShortTag() == mergeTag)
}

// maxMergeDepth bounds chains of merged anchors
const maxMergeDepth = 16

// lookup returns the value for key in m. When m does not set key itself the
// mappings merged in with "<<" are searched, earlier sources first.
func lookup(m *yaml.Node, key string) *yaml.Node {
	return lookupDepth(m, key, 0)
}

func lookupDepth(m *yaml.Node, key string, depth int) *yaml.Node {
	m = resolve(m)
	if m == nil || m.Kind != yaml.MappingNode || depth > maxMergeDepth {
		return nil
	}
	if v := mappingValue(m, key); v != nil {
		return v
	}

	for i := 0; i+1 < len(m.Content); i += 2 {
		if !isMergeKey(m.Content[i]) {
			continue
		}
		src := resolve(m.Content[i+1])
		if src == nil {
			continue
		}
		switch src.Kind {
		case yaml.MappingNode:
			if v := lookupDepth(src, key, depth+1); v != nil {
				return v
			}
		case yaml.SequenceNode:
			for _, item := range src.Content {
				if v := lookupDepth(item, key, depth+1); v != nil {
					return v
				}
			}
		}
	}
	return nil
}

// setMappingValue replaces the value for key in place, or appends the pair
func setMappingValue(m *yaml.Node, key string, v *yaml.Node) {
	if i := mappingIndex(m, key); i >= 0 {
		m.Content[i] = v
		return
	}
	m.Content = append(m.Content, stringNode(key), v)
}

// mappingKeys returns the keys of m in declared order, skipping merge keys
func mappingKeys(m *yaml.Node) []string {
	keys := make([]string, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		if k := m.Content[i]; !isMergeKey(k) {
			keys = append(keys, k.Value)
		}
	}
	return keys
}

// ownValue returns the value for key so that it can be mutated without
// touching anything else in the document: an alias is replaced by a copy of
// its target, and a value only inherited through "<<" is copied onto m.
func ownValue(m *yaml.Node, key string) *yaml.Node {
	i := mappingIndex(m, key)
	if i < 0 {
		inherited := resolve(lookup(m, key))
		if inherited == nil {
			return nil
		}
		v := deepCopy(inherited)
		setMappingValue(m, key, v)
		return v
	}
	if v := m.Content[i]; v.Kind == yaml.AliasNode {
		m.Content[i] = deepCopy(resolve(v))
	}
	return m.Content[i]
}

func deepCopy(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Anchor = ""
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = deepCopy(child)
		}
	}
	return &c
}

// blockStyle clears flow style on every non-empty collection under n
func blockStyle(n *yaml.Node) {
	if n == nil {
		return
	}
	if (n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode) && len(n.Content) > 0 {
		n.Style &^= yaml.FlowStyle
	}
	for _, child := range n.Content {
		blockStyle(child)
	}
}

// untagMergeKeys drops the explicit tag the decoder puts on merge keys, which
// the encoder would otherwise write out as "!!merge <<".
func untagMergeKeys(n *yaml.Node) {
	if n == nil {
		return
	}
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			if k := n.Content[i]; isMergeKey(k) && k.Style == 0 {
				k.Tag = ""
			}
		}
	}
	for _, child := range n.Content {
		untagMergeKeys(child)
	}
}

func stringNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: strTag, Value: v}
}

func mappingNode(content ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: content}
}

func sequenceNode(content ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: content}
}
