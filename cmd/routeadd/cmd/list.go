package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kan/routeadd/registry"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	ruleLine   = strings.Repeat("━", 50)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered applications",
	Long:  `Display the applications recorded in the registry, in the order they were added.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	out := cmd.OutOrStdout()

	store := registry.NewStore(settings.RegistryPath)
	reg, err := store.Load()
	if err != nil {
		return err
	}

	if len(reg.Apps) == 0 {
		fmt.Fprintln(out, "No applications registered")
		return nil
	}

	width := 0
	for _, app := range reg.Apps {
		width = max(width, len(app.Name))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Registered Applications (%d):", len(reg.Apps))))
	fmt.Fprintln(out, ruleLine)
	for _, app := range reg.Apps {
		fmt.Fprintf(out, "  %s  %s  %s\n",
			nameStyle.Render(fmt.Sprintf("%-*s", width, app.Name)),
			app.URL,
			dimStyle.Render("("+app.Path+")"))
	}
	fmt.Fprintln(out, ruleLine)
	fmt.Fprintln(out)

	return nil
}
