package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kan/routeadd/compose"
	"github.com/kan/routeadd/config"
	"github.com/kan/routeadd/registry"
)

var (
	// Version is set by build flags
	Version = "dev"

	cfgFile    string
	dryRun     bool
	noRegistry bool

	// Resolved before every command runs
	settings config.Settings
)

// UsageError reports invalid positional arguments
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "routeadd <app_path> <url_path> <server_host>",
	Short: "Route a Docker Compose application through Traefik",
	Long: `routeadd - Route a Docker Compose application through Traefik

Adds the Traefik labels for <url_path> to the main service of
<app_path>/docker-compose.yml, attaches it to the shared proxy network and
records the application in the registry. server_host may be "" to route on
the path alone.`,
	Example: `  routeadd /apps/consult /consult ""
  routeadd /apps/blog /blog example.com --dry-run`,
	Args:              validateArgs,
	PersistentPreRunE: loadSettings,
	RunE:              runAdd,
	SilenceErrors:     true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaults := config.Defaults()

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/routeadd/config.yaml)")
	rootCmd.PersistentFlags().String("registry", defaults.RegistryPath,
		"registry file of routed applications")
	rootCmd.PersistentFlags().String("compose-file", defaults.ComposeFile,
		"compose file name inside the application directory")
	rootCmd.PersistentFlags().String("network", defaults.Network,
		"external network shared with the proxy")
	rootCmd.PersistentFlags().String("entrypoint", defaults.EntryPoint,
		"Traefik entrypoint of the router")
	rootCmd.PersistentFlags().String("log-level", defaults.LogLevel,
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("strip-port-protocol", defaults.StripPortProtocol,
		"read \"8080:80/tcp\" ports entries as port 80 instead of skipping them")

	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"print the compose changes without writing anything")
	rootCmd.Flags().BoolVar(&noRegistry, "no-registry", false,
		"do not update the registry")
}

// flagKeys maps persistent flags to their settings keys
var flagKeys = map[string]string{
	"registry":     "registry",
	"compose-file": "compose_file",
	"network":      "network",
	"entrypoint":   "entrypoint",
	"log-level":    "log_level",

	"strip-port-protocol": "strip_port_protocol",
}

func loadSettings(cmd *cobra.Command, args []string) error {
	v := viper.New()
	config.SetDefaults(v)

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}

	if err := config.ReadConfigFile(v, cfgFile); err != nil {
		return err
	}

	s, err := config.Load(v)
	if err != nil {
		return err
	}
	settings = s

	return setupLogging(settings.LogLevel, cmd.OutOrStdout())
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 3 {
		return &UsageError{Reason: fmt.Sprintf("expected 3 arguments <app_path> <url_path> <server_host>, got %d", len(args))}
	}
	if args[0] == "" {
		return &UsageError{Reason: "app_path must not be empty"}
	}
	if !strings.HasPrefix(args[1], "/") {
		return &UsageError{Reason: fmt.Sprintf("url_path %q must start with /", args[1])}
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	// Arguments are valid past this point; failures are not usage problems
	cmd.SilenceUsage = true

	appPath, urlPath, host := args[0], args[1], args[2]

	transformer := compose.NewTransformer(settings)
	transformer.DryRun = dryRun

	outcome, err := transformer.Run(appPath, urlPath, host)
	if err != nil {
		return err
	}

	if dryRun {
		out := cmd.OutOrStdout()
		if !outcome.Changed {
			fmt.Fprintln(out, "No changes")
			return nil
		}
		fmt.Fprint(out, outcome.Diff)
		return nil
	}

	slog.Info("configuration updated",
		"path", outcome.ComposePath,
		"rule", outcome.Route.Rule())

	if !noRegistry {
		updateRegistry(appPath, urlPath, host)
	}
	return nil
}

// updateRegistry records the application. The compose file is already
// updated at this point, so failures are reported and otherwise ignored.
func updateRegistry(appPath, urlPath, host string) {
	store := registry.NewStore(settings.RegistryPath)

	rec, err := store.Add(appPath, urlPath, host)
	if err != nil {
		slog.Warn("registry update failed",
			"path", store.Path(),
			"error", err)
		return
	}

	slog.Info("registry updated", "app", rec.Name, "url", rec.URL)
}
