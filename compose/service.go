package compose

import (
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	"gopkg.in/yaml.v3"

	"github.com/kan/routeadd/config"
)

// ServicePriority lists the service names that are taken to be the entry
// point of an application, most preferred first.
var ServicePriority = []string{"web", "app", "frontend", "server"}

// SelectService picks the service to route from the declared names.
// The first name in ServicePriority that is declared wins; otherwise the
// first declared service is used. This is a guess and can pick the wrong
// service in documents that use other naming.
func SelectService(names []string) string {
	for _, preferred := range ServicePriority {
		if slices.Contains(names, preferred) {
			return preferred
		}
	}
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// InferPort returns the container port of the first ports entry that can be
// parsed, or config.DefaultPort when none can.
// For an entry with a colon the text after the last colon must be an
// integer; an entry without one must be all digits. Anything else, including
// "80/tcp", is skipped.
func InferPort(entries []string) int {
	return inferPort(entries, false)
}

// InferPortStripProtocol is InferPort for documents whose ports carry a
// protocol suffix: "8080:80/tcp" gives 80 instead of being skipped.
func InferPortStripProtocol(entries []string) int {
	return inferPort(entries, true)
}

func inferPort(entries []string, stripProtocol bool) int {
	for _, entry := range entries {
		port, err := parsePortEntry(entry, stripProtocol)
		if err != nil {
			slog.Debug("skipping port entry", "error", err)
			continue
		}
		return port
	}
	return config.DefaultPort
}

func parsePortEntry(entry string, stripProtocol bool) (int, error) {
	var candidate string
	if idx := strings.LastIndex(entry, ":"); idx < 0 {
		candidate = entry
		if stripProtocol {
			_, candidate = nat.SplitProtoPort(candidate)
		}
		if !isDigits(candidate) {
			return 0, &PortParseError{Entry: entry, Err: errors.New("not a number")}
		}
	} else {
		candidate = strings.TrimSpace(entry[idx+1:])
		if stripProtocol {
			// "80/tcp" -> "80"
			_, candidate = nat.SplitProtoPort(candidate)
		}
	}

	port, err := strconv.Atoi(candidate)
	if err != nil {
		return 0, &PortParseError{Entry: entry, Err: err}
	}
	return port, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// portEntries returns the string form of each entry of a ports sequence.
// Long-syntax entries contribute their target port.
func portEntries(ports *yaml.Node) []string {
	ports = resolve(ports)
	if ports == nil || ports.Kind != yaml.SequenceNode {
		return nil
	}

	entries := make([]string, 0, len(ports.Content))
	for _, item := range ports.Content {
		item = resolve(item)
		switch item.Kind {
		case yaml.ScalarNode:
			entries = append(entries, item.Value)
		case yaml.MappingNode:
			if target := resolve(mappingValue(item, "target")); target != nil && target.Kind == yaml.ScalarNode {
				entries = append(entries, target.Value)
			}
		}
	}
	return entries
}
