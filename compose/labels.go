package compose

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kan/routeadd/config"
)

// LabelForm tells which of the compose label syntaxes a service uses
type LabelForm int

const (
	LabelsAbsent LabelForm = iota
	LabelsList             // - key=value
	LabelsMap              // key: value
)

// LabelPair is one entry of the mapping label syntax
type LabelPair struct {
	Key   string
	Value string
}

// LabelList holds a service's labels in whichever form they were written
type LabelList struct {
	Form  LabelForm
	Items []string    // LabelsList
	Pairs []LabelPair // LabelsMap
}

// ReadLabels reads a labels node. A missing or null node is LabelsAbsent.
func ReadLabels(n *yaml.Node) (LabelList, error) {
	n = resolve(n)
	if isNull(n) {
		return LabelList{Form: LabelsAbsent}, nil
	}

	switch n.Kind {
	case yaml.SequenceNode:
		l := LabelList{Form: LabelsList, Items: make([]string, 0, len(n.Content))}
		for _, item := range n.Content {
			item = resolve(item)
			if item.Kind != yaml.ScalarNode {
				return LabelList{}, &SchemaError{Reason: fmt.Sprintf("label entry at line %d is not a string", item.Line)}
			}
			l.Items = append(l.Items, item.Value)
		}
		return l, nil

	case yaml.MappingNode:
		l := LabelList{Form: LabelsMap, Pairs: make([]LabelPair, 0, len(n.Content)/2)}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], resolve(n.Content[i+1])
			if value.Kind != yaml.ScalarNode {
				return LabelList{}, &SchemaError{Reason: fmt.Sprintf("label %q is not a string", key.Value)}
			}
			pair := LabelPair{Key: key.Value}
			if !isNull(value) {
				pair.Value = value.Value
			}
			l.Pairs = append(l.Pairs, pair)
		}
		return l, nil
	}

	return LabelList{}, &SchemaError{Reason: "labels must be a list or a mapping"}
}

// Normalize returns the labels as key=value entries in declared order
func (l LabelList) Normalize() []string {
	switch l.Form {
	case LabelsList:
		return append([]string(nil), l.Items...)
	case LabelsMap:
		entries := make([]string, 0, len(l.Pairs))
		for _, p := range l.Pairs {
			entries = append(entries, p.Key+"="+p.Value)
		}
		return entries
	}
	return []string{}
}

// FilterRoutingLabels drops every traefik label
func FilterRoutingLabels(labels []string) []string {
	kept := make([]string, 0, len(labels))
	for _, entry := range labels {
		if !config.IsRoutingLabel(entry) {
			kept = append(kept, entry)
		}
	}
	return kept
}

// MergeLabels replaces the traefik labels in existing with routing.
// Running it again with the same routing labels gives the same result.
func MergeLabels(existing, routing []string) []string {
	return append(FilterRoutingLabels(existing), routing...)
}

// labelsNode builds a labels sequence. Entries that were already written as
// list items keep their original node, and with it their comments and quoting.
func labelsNode(entries []string, original *yaml.Node) *yaml.Node {
	reuse := make(map[string][]*yaml.Node)
	// Items of an aliased sequence belong to its anchor and are not reused.
	if original != nil && original.Kind == yaml.SequenceNode {
		for _, item := range original.Content {
			if item.Kind == yaml.ScalarNode {
				reuse[item.Value] = append(reuse[item.Value], item)
			}
		}
	}

	seq := sequenceNode()
	for _, entry := range entries {
		if nodes := reuse[entry]; len(nodes) > 0 {
			seq.Content = append(seq.Content, nodes[0])
			reuse[entry] = nodes[1:]
			continue
		}
		seq.Content = append(seq.Content, stringNode(entry))
	}
	return seq
}
