package main

import (
	"fmt"
	"os"
	"time"

	"modelctl/internal/client"
	"modelctl/internal/core"
	"modelctl/internal/util"

	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputJSON = "json"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "modelctl",
	Short: "modelctl - command-line client for the model control server",
	Long: `modelctl talks to a running model control server.

It lists, registers, starts and stops managed models, runs generations
against running models and invokes the tools the server exposes.

Examples:
  modelctl models list
  modelctl models start llama2
  modelctl generate llama2 "Why is the sky blue?" --max-tokens 256
  modelctl tools exec calculator -p expression="2 + 2 * 2"`,
	Version:       core.ServiceVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output != outputText && output != outputJSON {
			return fmt.Errorf("unsupported output format %q (use text or json)", output)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(backendCmd)
	rootCmd.AddCommand(healthCmd)

	rootCmd.PersistentFlags().String("server", util.GetEnvWithDefault("MODELCTL_SERVER", core.DefaultServerURL), "Server base URL")
	rootCmd.PersistentFlags().String("api-key", os.Getenv("MODELCTL_API_KEY"), "API key sent as a Bearer token")
	rootCmd.PersistentFlags().Duration("timeout", client.DefaultTimeout, "Per-request timeout")
	rootCmd.PersistentFlags().StringP("output", "o", outputText, "Output format: text or json")
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	server, _ := cmd.Flags().GetString("server")
	apiKey, _ := cmd.Flags().GetString("api-key")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return client.New(client.Options{BaseURL: server, APIKey: apiKey, Timeout: timeout})
}

func jsonOutput(cmd *cobra.Command) bool {
	output, _ := cmd.Flags().GetString("output")
	return output == outputJSON
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := util.MarshalIndentJSON(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func formatLastUsed(rec core.ModelRecord) string {
	t := rec.LastUsedTime()
	if t.IsZero() {
		return "Never used"
	}
	return "Last used: " + t.Format(time.ANSIC)
}
