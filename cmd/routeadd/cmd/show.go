package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kan/routeadd/compose"
	"github.com/kan/routeadd/config"
	"github.com/kan/routeadd/registry"
)

var showCmd = &cobra.Command{
	Use:   "show <app_path>",
	Short: "Show the routing of an application",
	Long: `Display the Traefik routing configured on the main service of an
application's compose file, as routeadd would select it. Nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	out := cmd.OutOrStdout()
	appPath := args[0]

	doc, err := compose.Load(filepath.Join(appPath, settings.ComposeFile))
	if err != nil {
		return err
	}

	service := compose.SelectService(doc.ServiceNames())
	labels, err := doc.ServiceLabels(service)
	if err != nil {
		return err
	}
	networks, err := doc.ServiceNetworks(service)
	if err != nil {
		return err
	}

	route := config.ParseLabels(labels)

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Service %s (%s)", service, doc.Path)))
	fmt.Fprintln(out, ruleLine)

	if route.Router == "" {
		fmt.Fprintln(out, "  no Traefik router configured")
	} else {
		printField(out, "router", route.Router)
		printField(out, "rule", route.Rule())
		printField(out, "entrypoint", route.EntryPoint)
		if route.Port > 0 {
			printField(out, "port", strconv.Itoa(route.Port))
		}
	}
	printField(out, "networks", strings.Join(networks, ", "))

	reg, err := registry.NewStore(settings.RegistryPath).Load()
	if err == nil {
		if rec, ok := reg.Find(registry.AppName(appPath)); ok {
			printField(out, "url", rec.URL)
			printField(out, "added", rec.Added)
		}
	}

	fmt.Fprintln(out, ruleLine)
	fmt.Fprintln(out)

	return nil
}

func printField(out io.Writer, name, value string) {
	if value == "" {
		value = dimStyle.Render("-")
	}
	fmt.Fprintf(out, "  %s %s\n", nameStyle.Render(fmt.Sprintf("%-10s", name)), value)
}
