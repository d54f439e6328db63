package main

import (
	"context"
	"errors"
	"fmt"

	"modelctl/internal/client"
	"modelctl/internal/core"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Model operations",
	Long:  `Manage models on the server - list, get, add, start and stop.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List managed models",
	RunE:  runModelsList,
	Args:  cobra.NoArgs,
}

var modelsGetCmd = &cobra.Command{
	Use:   "get [model]",
	Short: "Show a single model",
	RunE:  runModelsGet,
	Args:  cobra.ExactArgs(1),
}

var modelsAddCmd = &cobra.Command{
	Use:   "add [model]",
	Short: "Register a model",
	Long:  `Register a model with the server. Registering a known model is a no-op.`,
	RunE:  runModelAction((*client.Client).AddModel),
	Args:  cobra.ExactArgs(1),
}

var modelsStartCmd = &cobra.Command{
	Use:   "start [model]",
	Short: "Start a model",
	Long:  `Start a model. The backend pulls it first when it is not present locally.`,
	RunE:  runModelAction((*client.Client).StartModel),
	Args:  cobra.ExactArgs(1),
}

var modelsStopCmd = &cobra.Command{
	Use:   "stop [model]",
	Short: "Stop a running model",
	RunE:  runModelAction((*client.Client).StopModel),
	Args:  cobra.ExactArgs(1),
}

var generateCmd = &cobra.Command{
	Use:   "generate [model] [prompt]",
	Short: "Generate a response from a running model",
	RunE:  runGenerate,
	Args:  cobra.ExactArgs(2),
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsGetCmd)
	modelsCmd.AddCommand(modelsAddCmd)
	modelsCmd.AddCommand(modelsStartCmd)
	modelsCmd.AddCommand(modelsStopCmd)

	generateCmd.Flags().Int("max-tokens", core.DefaultMaxTokens, "Maximum tokens to generate")
	generateCmd.Flags().Float64("temperature", core.DefaultTemperature, "Sampling temperature")
}

func runModelsList(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	records, err := c.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, records)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No models registered.")
		return nil
	}
	fmt.Fprintln(out, "Available models:")
	for _, rec := range records {
		printModel(cmd, rec)
	}
	return nil
}

func runModelsGet(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	rec, err := c.GetModel(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, rec)
	}
	printModel(cmd, *rec)
	return nil
}

func printModel(cmd *cobra.Command, rec core.ModelRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n- %s (Status: %s)\n", rec.Name, rec.State)
	fmt.Fprintf(out, "  %s\n", formatLastUsed(rec))
	fmt.Fprintf(out, "  Load count: %d\n", rec.LoadCount)
	fmt.Fprintf(out, "  Avg. response time: %.2fs\n", rec.AvgResponseTime)
	fmt.Fprintf(out, "  Error count: %d\n", rec.ErrorCount)
}

type modelAction func(*client.Client, context.Context, string) (*client.ActionResult, error)

func runModelAction(action modelAction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		res, err := action(c, cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			if err := printJSON(cmd, res); err != nil {
				return err
			}
		} else if res.OK() {
			fmt.Fprintln(cmd.OutOrStdout(), res.Status)
		}
		if !res.OK() {
			return errors.New(res.Error)
		}
		return nil
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	req := core.NewGenerateRequest(args[1])
	req.MaxTokens, _ = cmd.Flags().GetInt("max-tokens")
	req.Temperature, _ = cmd.Flags().GetFloat64("temperature")

	resp, err := c.Generate(cmd.Context(), args[0], req)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, resp)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== Response (took %.2fs) ===\n\n", resp.ProcessingTime)
	fmt.Fprintln(out, resp.Response)
	fmt.Fprintln(out, "\n=== End of Response ===")
	return nil
}
