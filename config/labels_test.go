package config

import (
	"reflect"
	"testing"
)

func TestRouterName(t *testing.T) {
	tests := []struct {
		appPath  string
		expected string
	}{
		{"/apps/consult", "consult"},
		{"/apps/my_app.v2", "my-app-v2"},
		{"my_app.v2", "my-app-v2"},
		{"/apps/consult/", "consult"},
		{"/apps/already-dashed", "already-dashed"},
		{"./a.b_c", "a-b-c"},
	}

	for _, tt := range tests {
		t.Run(tt.appPath, func(t *testing.T) {
			result := RouterName(tt.appPath)
			if result != tt.expected {
				t.Errorf("RouterName(%q) = %q, want %q", tt.appPath, result, tt.expected)
			}
		})
	}
}

func TestRouteConfig_Rule(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		path     string
		expected string
	}{
		{"no host", "", "/foo", "PathPrefix(`/foo`)"},
		{"with host", "example.com", "/foo", "Host(`example.com`) && PathPrefix(`/foo`)"},
		{"root path", "", "/", "PathPrefix(`/`)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := RouteConfig{Router: "app", Host: tt.host, PathPrefix: tt.path}
			if result := cfg.Rule(); result != tt.expected {
				t.Errorf("Rule() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestRouteConfig_Labels(t *testing.T) {
	cfg := RouteConfig{
		Router:     "consult",
		PathPrefix: "/consult",
		Port:       80,
	}

	expected := []string{
		"traefik.enable=true",
		"traefik.http.routers.consult.rule=PathPrefix(`/consult`)",
		"traefik.http.routers.consult.entrypoints=web",
		"traefik.http.services.consult.loadbalancer.server.port=80",
		"traefik.http.middlewares.consult-stripprefix.stripprefix.prefixes=/consult",
		"traefik.http.routers.consult.middlewares=consult-stripprefix",
	}

	result := cfg.Labels()
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("Labels() =\n%q\nwant\n%q", result, expected)
	}
}

func TestRouteConfig_LabelsCustomEntryPoint(t *testing.T) {
	cfg := RouteConfig{Router: "api", PathPrefix: "/api", Port: 3000, EntryPoint: "websecure"}

	labels := cfg.Labels()
	if len(labels) != 6 {
		t.Fatalf("expected 6 labels, got %d", len(labels))
	}
	if labels[2] != "traefik.http.routers.api.entrypoints=websecure" {
		t.Errorf("entrypoint label = %q", labels[2])
	}
}

func TestIsRoutingLabel(t *testing.T) {
	tests := []struct {
		entry    string
		expected bool
	}{
		{"traefik.enable=true", true},
		{"traefik.http.routers.x.rule=PathPrefix(`/x`)", true},
		{"traefik.enable", true},
		{"com.example.owner=ops", false},
		{"mytraefik.enable=true", false},
		{"owner=traefik.team", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			if result := IsRoutingLabel(tt.entry); result != tt.expected {
				t.Errorf("IsRoutingLabel(%q) = %v, want %v", tt.entry, result, tt.expected)
			}
		})
	}
}

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name     string
		labels   []string
		expected RouteConfig
	}{
		{
			name:     "empty labels",
			labels:   []string{},
			expected: RouteConfig{},
		},
		{
			name:     "no routing labels",
			labels:   []string{"com.docker.compose.project=demo", "owner=ops"},
			expected: RouteConfig{},
		},
		{
			name: "path only",
			labels: []string{
				"traefik.enable=true",
				"traefik.http.routers.consult.rule=PathPrefix(`/consult`)",
				"traefik.http.routers.consult.entrypoints=web",
				"traefik.http.services.consult.loadbalancer.server.port=80",
			},
			expected: RouteConfig{
				Router:     "consult",
				PathPrefix: "/consult",
				Port:       80,
				EntryPoint: "web",
			},
		},
		{
			name: "host and path",
			labels: []string{
				"traefik.http.routers.api.rule=Host(`example.com`) && PathPrefix(`/api`)",
				"traefik.http.services.api.loadbalancer.server.port=8080",
			},
			expected: RouteConfig{
				Router:     "api",
				Host:       "example.com",
				PathPrefix: "/api",
				Port:       8080,
			},
		},
		{
			name: "with whitespace",
			labels: []string{
				"  traefik.http.routers.api.rule = PathPrefix(`/api`) ",
				"traefik.http.services.api.loadbalancer.server.port= 3000 ",
			},
			expected: RouteConfig{
				Router:     "api",
				PathPrefix: "/api",
				Port:       3000,
			},
		},
		{
			name: "invalid port",
			labels: []string{
				"traefik.http.routers.api.rule=PathPrefix(`/api`)",
				"traefik.http.services.api.loadbalancer.server.port=not-a-number",
			},
			expected: RouteConfig{
				Router:     "api",
				PathPrefix: "/api",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseLabels(tt.labels)
			if *result != tt.expected {
				t.Errorf("ParseLabels() = %+v, want %+v", *result, tt.expected)
			}
		})
	}
}

func TestParseLabels_RoundTrip(t *testing.T) {
	cfg := RouteConfig{
		Router:     "my-app-v2",
		Host:       "apps.example.com",
		PathPrefix: "/v2",
		Port:       3000,
		EntryPoint: "web",
	}

	parsed := ParseLabels(cfg.Labels())
	if *parsed != cfg {
		t.Errorf("ParseLabels(Labels()) = %+v, want %+v", *parsed, cfg)
	}
}
