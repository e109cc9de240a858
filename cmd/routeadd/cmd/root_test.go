package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kan/routeadd/compose"
	"github.com/kan/routeadd/registry"
)

const consultCompose = `services:
  app:
    image: consult:latest
    ports:
      - "8501:8501"
  db:
    image: postgres:16
`

// resetFlags restores every flag to its default so commands can run
// repeatedly in one process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	c.SilenceUsage = false
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func setupApp(t *testing.T) (appPath, composePath, registryPath string) {
	t.Helper()
	root := t.TempDir()
	appPath = filepath.Join(root, "apps", "consult")
	require.NoError(t, os.MkdirAll(appPath, 0755))

	composePath = filepath.Join(appPath, "docker-compose.yml")
	require.NoError(t, os.WriteFile(composePath, []byte(consultCompose), 0644))

	return appPath, composePath, filepath.Join(root, "config", "apps.json")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRoot_UsageErrors(t *testing.T) {
	appPath, composePath, registryPath := setupApp(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"two arguments", []string{appPath, "/consult"}},
		{"four arguments", []string{appPath, "/consult", "", "extra"}},
		{"empty app path", []string{"", "/consult", ""}},
		{"relative url path", []string{appPath, "consult", ""}},
		{"empty url path", []string{appPath, "", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append(tt.args, "--registry", registryPath)...)
			require.Error(t, err)

			var usage *UsageError
			require.ErrorAs(t, err, &usage)
			assert.Contains(t, out, "Usage:")

			assert.Equal(t, consultCompose, readFile(t, composePath))
			assert.NoFileExists(t, registryPath)
		})
	}
}

func TestRoot_AddsRouting(t *testing.T) {
	appPath, composePath, registryPath := setupApp(t)

	out, err := execute(t, appPath, "/consult", "", "--registry", registryPath)
	require.NoError(t, err)

	content := readFile(t, composePath)
	assert.Contains(t, content, "traefik.enable=true")
	assert.Contains(t, content, "traefik.http.routers.consult.rule=PathPrefix(`/consult`)")
	assert.Contains(t, content, "traefik.http.services.consult.loadbalancer.server.port=8501")
	assert.Contains(t, content, "external: true")

	backups, err := filepath.Glob(composePath + ".backup.*")
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	reg, err := registry.NewStore(registryPath).Load()
	require.NoError(t, err)
	require.Len(t, reg.Apps, 1)
	assert.Equal(t, "consult", reg.Apps[0].Name)
	assert.Equal(t, "http://localhost/consult", reg.Apps[0].URL)

	assert.Contains(t, out, "target service")
	assert.Contains(t, out, "configuration updated")
	assert.Contains(t, out, "registry updated")
}

func TestRoot_RerunKeepsSingleRecord(t *testing.T) {
	appPath, _, registryPath := setupApp(t)

	_, err := execute(t, appPath, "/consult", "", "--registry", registryPath)
	require.NoError(t, err)
	_, err = execute(t, appPath, "/consult", "example.com", "--registry", registryPath)
	require.NoError(t, err)

	reg, err := registry.NewStore(registryPath).Load()
	require.NoError(t, err)
	require.Len(t, reg.Apps, 1)
	assert.Equal(t, "http://example.com/consult", reg.Apps[0].URL)
}

func TestRoot_RegistryFailureIsNotFatal(t *testing.T) {
	appPath, composePath, _ := setupApp(t)

	// A regular file where the registry directory should be
	blocker := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	out, err := execute(t, appPath, "/consult", "", "--registry", filepath.Join(blocker, "apps.json"))
	require.NoError(t, err)

	assert.Contains(t, readFile(t, composePath), "traefik.enable=true")
	assert.Contains(t, out, "registry update failed")
}

func TestRoot_MissingComposeFile(t *testing.T) {
	registryPath := filepath.Join(t.TempDir(), "apps.json")

	_, err := execute(t, filepath.Join(t.TempDir(), "nowhere"), "/x", "", "--registry", registryPath)
	require.Error(t, err)

	var missing *compose.MissingFileError
	assert.ErrorAs(t, err, &missing)
	assert.NoFileExists(t, registryPath)
}

func TestRoot_DryRun(t *testing.T) {
	appPath, composePath, registryPath := setupApp(t)

	out, err := execute(t, appPath, "/consult", "", "--registry", registryPath, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "+ ")
	assert.Contains(t, out, "traefik.enable=true")
	assert.Equal(t, consultCompose, readFile(t, composePath))
	assert.NoFileExists(t, registryPath)

	backups, err := filepath.Glob(composePath + ".backup.*")
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestRoot_NoRegistry(t *testing.T) {
	appPath, composePath, registryPath := setupApp(t)

	_, err := execute(t, appPath, "/consult", "", "--registry", registryPath, "--no-registry")
	require.NoError(t, err)

	assert.Contains(t, readFile(t, composePath), "traefik.enable=true")
	assert.NoFileExists(t, registryPath)
}

func TestRoot_ConfigFileAndEnvironment(t *testing.T) {
	appPath, composePath, registryPath := setupApp(t)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("network: proxy\n"), 0644))
	t.Setenv("ROUTEADD_ENTRYPOINT", "websecure")

	_, err := execute(t, appPath, "/consult", "", "--registry", registryPath, "--config", cfgPath)
	require.NoError(t, err)

	content := readFile(t, composePath)
	assert.Contains(t, content, "proxy:")
	assert.Contains(t, content, "traefik.http.routers.consult.entrypoints=websecure")
}

func TestRoot_MissingConfigFile(t *testing.T) {
	appPath, composePath, registryPath := setupApp(t)

	_, err := execute(t, appPath, "/consult", "", "--registry", registryPath,
		"--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, consultCompose, readFile(t, composePath))
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	appPath, composePath, registryPath := setupApp(t)

	_, err := execute(t, appPath, "/consult", "", "--registry", registryPath, "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
	assert.Equal(t, consultCompose, readFile(t, composePath))
}

func TestRoot_StripPortProtocol(t *testing.T) {
	tests := []struct {
		name     string
		flags    []string
		expected string
	}{
		{"entry skipped by default", nil, "loadbalancer.server.port=80\n"},
		{"suffix dropped when enabled", []string{"--strip-port-protocol"}, "loadbalancer.server.port=8501\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appPath, composePath, registryPath := setupApp(t)
			require.NoError(t, os.WriteFile(composePath,
				[]byte("services:\n  app:\n    ports:\n      - \"8501:8501/tcp\"\n"), 0644))

			args := append([]string{appPath, "/consult", "", "--registry", registryPath}, tt.flags...)
			_, err := execute(t, args...)
			require.NoError(t, err)

			assert.Contains(t, readFile(t, composePath), tt.expected)
		})
	}
}
