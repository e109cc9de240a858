package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// setupLogging installs a charm logger writing to w as the slog default
func setupLogging(level string, w io.Writer) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "routeadd",
		Level:           lvl,
	})
	logger.SetStyles(logStyles())

	slog.SetDefault(slog.New(logger))
	return nil
}

func logStyles() *log.Styles {
	styles := log.DefaultStyles()

	// Green for what was written
	for _, key := range []string{"path", "url"} {
		styles.Keys[key] = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).Bold(true)
		styles.Values[key] = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))
	}

	// Cyan for detected values
	for _, key := range []string{"service", "port", "router"} {
		styles.Keys[key] = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).Bold(true)
	}

	// Red for errors
	styles.Keys["error"] = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).Bold(true)
	styles.Values["error"] = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9"))

	return styles
}
