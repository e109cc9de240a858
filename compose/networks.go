package compose

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// attachServiceNetwork makes the service a member of network. A list of
// network names gets the name appended; a mapping gets an empty entry.
// Existing entries are never reordered or changed.
func attachServiceNetwork(svc *yaml.Node, network string) (bool, error) {
	networks := ownValue(svc, "networks")
	if isNull(networks) {
		setMappingValue(svc, "networks", sequenceNode(stringNode(network)))
		return true, nil
	}

	switch networks.Kind {
	case yaml.SequenceNode:
		for _, item := range networks.Content {
			if resolve(item).Value == network {
				return false, nil
			}
		}
		networks.Content = append(networks.Content, stringNode(network))
		return true, nil

	case yaml.MappingNode:
		if mappingIndex(networks, network) >= 0 {
			return false, nil
		}
		networks.Content = append(networks.Content, stringNode(network), mappingNode())
		return true, nil
	}

	return false, &SchemaError{Reason: "service networks must be a list or a mapping"}
}

// declareExternalNetwork declares network at document level as external,
// unless the document already declares it.
func declareExternalNetwork(top *yaml.Node, network string) (bool, error) {
	networks := ownValue(top, "networks")
	if isNull(networks) {
		networks = mappingNode()
		setMappingValue(top, "networks", networks)
	}
	if networks.Kind != yaml.MappingNode {
		return false, &SchemaError{Reason: "top-level networks must be a mapping"}
	}

	if mappingIndex(networks, network) >= 0 {
		return false, nil
	}

	external := mappingNode(
		stringNode("external"),
		&yaml.Node{Kind: yaml.ScalarNode, Tag: boolTag, Value: "true"},
	)
	networks.Content = append(networks.Content, stringNode(network), external)
	return true, nil
}

// NetworkNames returns the networks a service joins, whichever syntax it uses
func NetworkNames(n *yaml.Node) ([]string, error) {
	n = resolve(n)
	if isNull(n) {
		return nil, nil
	}
	switch n.Kind {
	case yaml.SequenceNode:
		names := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			names = append(names, resolve(item).Value)
		}
		return names, nil
	case yaml.MappingNode:
		return mappingKeys(n), nil
	}
	return nil, fmt.Errorf("networks must be a list or a mapping")
}
