package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	// Label prefix for all traefik-related labels
	LabelPrefix = "traefik."

	LabelEnable = LabelPrefix + "enable"

	routerPrefix     = LabelPrefix + "http.routers."
	servicePrefix    = LabelPrefix + "http.services."
	middlewarePrefix = LabelPrefix + "http.middlewares."

	// DefaultEntryPoint is the traefik entrypoint routers are bound to
	DefaultEntryPoint = "web"
	// DefaultPort is used when no port can be inferred from the service
	DefaultPort = 80
)

var (
	hostRulePattern       = regexp.MustCompile("Host\\(`([^`]*)`\\)")
	pathPrefixRulePattern = regexp.MustCompile("PathPrefix\\(`([^`]*)`\\)")
)

// RouteConfig holds the routing configuration for a single application
type RouteConfig struct {
	Router     string // e.g., "my-app-v2"
	Host       string // e.g., "example.com" (optional)
	PathPrefix string // e.g., "/consult"
	Port       int    // Target container port
	EntryPoint string // e.g., "web"
}

// RouterName derives a router name from an application directory
// e.g., "/apps/my_app.v2" -> "my-app-v2"
func RouterName(appPath string) string {
	base := filepath.Base(filepath.Clean(appPath))
	return strings.NewReplacer("_", "-", ".", "-").Replace(base)
}

// Rule returns the router rule, constrained by host when one is set
func (c RouteConfig) Rule() string {
	rule := fmt.Sprintf("PathPrefix(`%s`)", c.PathPrefix)
	if c.Host != "" {
		rule = fmt.Sprintf("Host(`%s`) && %s", c.Host, rule)
	}
	return rule
}

// Middleware returns the name of the strip-prefix middleware for the router
func (c RouteConfig) Middleware() string {
	return c.Router + "-stripprefix"
}

// Labels returns the routing labels for the config as key=value entries.
// The order is fixed so repeated runs produce identical documents.
func (c RouteConfig) Labels() []string {
	entryPoint := c.EntryPoint
	if entryPoint == "" {
		entryPoint = DefaultEntryPoint
	}

	return []string{
		LabelEnable + "=true",
		routerPrefix + c.Router + ".rule=" + c.Rule(),
		routerPrefix + c.Router + ".entrypoints=" + entryPoint,
		servicePrefix + c.Router + ".loadbalancer.server.port=" + strconv.Itoa(c.Port),
		middlewarePrefix + c.Middleware() + ".stripprefix.prefixes=" + c.PathPrefix,
		routerPrefix + c.Router + ".middlewares=" + c.Middleware(),
	}
}

// SplitLabel splits a "key=value" entry. Entries without "=" are all key.
func SplitLabel(entry string) (key, value string) {
	key, value, _ = strings.Cut(entry, "=")
	return key, value
}

// IsRoutingLabel reports whether the entry's key belongs to traefik
func IsRoutingLabel(entry string) bool {
	key, _ := SplitLabel(entry)
	return strings.HasPrefix(key, LabelPrefix)
}

// ParseLabels extracts the routing configuration from key=value labels.
// The first router that carries a rule wins; the returned config has an
// empty Router when no router is configured.
func ParseLabels(labels []string) *RouteConfig {
	values := make(map[string]string, len(labels))
	cfg := &RouteConfig{}

	for _, entry := range labels {
		key, value := SplitLabel(strings.TrimSpace(entry))
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		values[key] = value

		if cfg.Router == "" && strings.HasPrefix(key, routerPrefix) && strings.HasSuffix(key, ".rule") {
			cfg.Router = strings.TrimSuffix(strings.TrimPrefix(key, routerPrefix), ".rule")
		}
	}

	if cfg.Router == "" {
		return cfg
	}

	rule := values[routerPrefix+cfg.Router+".rule"]
	if m := hostRulePattern.FindStringSubmatch(rule); m != nil {
		cfg.Host = m[1]
	}
	if m := pathPrefixRulePattern.FindStringSubmatch(rule); m != nil {
		cfg.PathPrefix = m[1]
	}

	cfg.EntryPoint = values[routerPrefix+cfg.Router+".entrypoints"]

	if portStr, ok := values[servicePrefix+cfg.Router+".loadbalancer.server.port"]; ok {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = port
		}
	}

	return cfg
}
