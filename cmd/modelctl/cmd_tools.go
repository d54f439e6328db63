package main

import (
	"fmt"
	"strings"

	"modelctl/internal/util"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Tool operations",
	Long:  `List the tools the server exposes and execute them.`,
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available tools",
	RunE:  runToolsList,
	Args:  cobra.NoArgs,
}

var toolsExecCmd = &cobra.Command{
	Use:   "exec [tool]",
	Short: "Execute a tool",
	Long: `Execute a tool by name.

Parameters are passed as repeated -p key=value pairs, sent as strings and
coerced by the server to the declared parameter types, or as a JSON object
with --args. Pairs given with -p override keys from --args.`,
	Example: `  modelctl tools exec calculator -p expression="sqrt(16) + 1"
  modelctl tools exec calculator --args '{"expression": "2 ^ 10"}'`,
	RunE: runToolsExec,
	Args: cobra.ExactArgs(1),
}

func init() {
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsExecCmd)

	toolsExecCmd.Flags().StringArrayP("param", "p", nil, "Parameter as key=value (repeatable)")
	toolsExecCmd.Flags().String("args", "", "Parameters as a JSON object")
}

func runToolsList(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	list, err := c.ListTools(cmd.Context())
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, list)
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No tools registered.")
		return nil
	}
	for _, tool := range list {
		fmt.Fprintf(out, "%s -> %s\n", tool.Name, tool.ReturnType)
		if tool.Description != "" {
			fmt.Fprintf(out, "  %s\n", firstLine(tool.Description))
		}
		if tool.Parameters == nil {
			continue
		}
		for pair := tool.Parameters.Oldest(); pair != nil; pair = pair.Next() {
			p := pair.Value
			flag := "optional"
			if p.Required {
				flag = "required"
			}
			fmt.Fprintf(out, "  - %s (%s, %s)\n", pair.Key, p.Type, flag)
		}
	}
	return nil
}

func runToolsExec(cmd *cobra.Command, args []string) error {
	params, err := toolParams(cmd)
	if err != nil {
		return err
	}
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	result, err := c.ExecuteTool(cmd.Context(), args[0], params)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, map[string]any{"tool_name": args[0], "result": result})
	}
	if s, ok := result.(string); ok {
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	}
	data, err := util.MarshalJSON(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func toolParams(cmd *cobra.Command) (map[string]any, error) {
	params := map[string]any{}
	if raw, _ := cmd.Flags().GetString("args"); raw != "" {
		if err := util.UnmarshalJSON([]byte(raw), &params); err != nil {
			return nil, fmt.Errorf("--args must be a JSON object: %w", err)
		}
		if params == nil {
			params = map[string]any{}
		}
	}
	pairs, _ := cmd.Flags().GetStringArray("param")
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[strings.TrimSpace(key)] = value
	}
	return params, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
