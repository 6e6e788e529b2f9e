package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"intentgate/internal/client"
	"intentgate/internal/config"
	"intentgate/internal/domain"
	"intentgate/internal/intent"
	"intentgate/internal/mcpserver"
	"intentgate/internal/router"
)

type rootOptions struct {
	server  string
	token   string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	defaults := config.LoadClientConfig()
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "intentctl",
		Short:         "Talk to an intentgate server",
		Long:          "intentctl sends natural-language or direct tool requests to an intentgate server.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", defaults.ServerURL, "intentgate server URL (INTENTGATE_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", defaults.Token, "source-control token (INTENTGATE_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaults.Timeout, "request timeout")

	rootCmd.AddCommand(
		newAskCmd(opts),
		newCapabilitiesCmd(opts),
		newExecuteCmd(opts),
		newResolveCmd(),
		newMCPCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.server, o.token, o.timeout)
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <text...>",
		Short: "Send a natural-language request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func newCapabilitiesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List reachable backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			caps, err := opts.client().Capabilities(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(caps.Available) == 0 {
				fmt.Fprintln(out, "no backends available")
				return nil
			}
			for _, id := range caps.Available {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}

func newExecuteCmd(opts *rootOptions) *cobra.Command {
	var rawArgs []string
	cmd := &cobra.Command{
		Use:   "execute <tool>",
		Short: "Run one action directly, skipping the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseKeyValues(rawArgs)
			if err != nil {
				return err
			}
			resp, err := opts.client().Execute(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "action parameter as key=value (repeatable)")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var rawParams []string
	var text string
	cmd := &cobra.Command{
		Use:   "resolve <raw-action>",
		Short: "Show how an action name and parameters normalize, without calling anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseKeyValues(rawParams)
			if err != nil {
				return err
			}
			return writeResolution(cmd.OutOrStdout(), args[0], params, text)
		},
	}
	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "raw parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&text, "text", "", "original user text, used for the single-word name fallback")
	return cmd
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve intentgate as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return mcpserver.Run(opts.client(), version)
		},
	}
}

type resolution struct {
	Action     string         `json:"action"`
	Backend    string         `json:"backend,omitempty"`
	Parameters map[string]any `json:"parameters"`
	Missing    []string       `json:"missing,omitempty"`
}

func writeResolution(w io.Writer, rawAction string, params map[string]any, text string) error {
	action := intent.NormalizeAction(rawAction)
	normalized := intent.NormalizeParameters(params, action, text)

	res := resolution{
		Action:     action.String(),
		Parameters: make(map[string]any, len(normalized)),
		Missing:    intent.MissingParameters(action, normalized),
	}
	if owner, ok := router.Owner(action); ok {
		res.Backend = owner.String()
	}
	for k, v := range normalized {
		res.Parameters[string(k)] = v
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// parseKeyValues turns key=value pairs into a parameter map. true/false and
// integers keep their JSON types; everything else stays a string.
func parseKeyValues(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", pair)
		}
		out[key] = parseValue(value)
	}
	return out, nil
}

func parseValue(v string) any {
	if b, err := strconv.ParseBool(v); err == nil && (v == "true" || v == "false") {
		return b
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	return v
}

func printReply(w io.Writer, resp domain.AskResponse) {
	fmt.Fprintln(w, resp.Reply)
	if resp.Action == "" {
		return
	}
	meta := []string{"action=" + resp.Action}
	if resp.Backend != "" {
		meta = append(meta, "backend="+resp.Backend)
	}
	fmt.Fprintf(w, "\n(%s)\n", strings.Join(meta, " "))
}
