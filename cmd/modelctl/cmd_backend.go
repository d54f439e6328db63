package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Inference backend operations",
}

var backendModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models installed on the backend",
	RunE:  runBackendModels,
	Args:  cobra.NoArgs,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE:  runHealth,
	Args:  cobra.NoArgs,
}

func init() {
	backendCmd.AddCommand(backendModelsCmd)
}

func runBackendModels(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	catalog, err := c.BackendModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("list backend models: %w", err)
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, catalog)
	}

	out := cmd.OutOrStdout()
	for _, m := range catalog.Models {
		fmt.Fprintf(out, "  %-30s %10s  %s\n", m.Name, formatSize(m.Size), m.ModifiedAt)
	}
	if catalog.Cached {
		fmt.Fprintln(out, "(cached)")
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	health, err := c.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("server at %s is not healthy: %w", c.BaseURL(), err)
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, health)
	}

	keys := make([]string, 0, len(health))
	for k := range health {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", k, health[k])
	}
	return nil
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
