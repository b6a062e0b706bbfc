package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kompox/aksgraph/config/stackcfg"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/internal/kubeconfig"
	"github.com/kompox/aksgraph/topology"
	"github.com/kompox/aksgraph/usecase/stack"
)

func newCmdPreview() *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Show the changes an update would make",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "stack.preview", stackName(cmd))
			defer func() { cleanup(err) }()

			u, err := buildStackUseCase(cmd, nil)
			if err != nil {
				return err
			}
			defer u.Repos.Close()
			out, err := u.Preview(ctx, &stack.PreviewInput{Stack: stackName(cmd)})
			if err != nil {
				return err
			}
			renderPlan(cmd.OutOrStdout(), out.Plan)
			return nil
		},
	}
}

func confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func newCmdUp() *cobra.Command {
	var yes bool
	c := &cobra.Command{
		Use:   "up",
		Short: "Create or update the stack resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "stack.up", stackName(cmd))
			defer func() { cleanup(err) }()

			w := cmd.OutOrStdout()
			u, err := buildStackUseCase(cmd, w)
			if err != nil {
				return err
			}
			defer u.Repos.Close()
			defer func() {
				if mErr := writeMetrics(cmd, u); mErr != nil && err == nil {
					err = mErr
				}
			}()

			if !yes {
				prev, err := u.Preview(ctx, &stack.PreviewInput{Stack: stackName(cmd)})
				if err != nil {
					return err
				}
				renderPlan(w, prev.Plan)
				if !prev.Plan.HasChanges() {
					return nil
				}
				ok, err := confirm(cmd, "\nDo you want to perform this update?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(w, "Update cancelled.")
					return nil
				}
			}

			fmt.Fprintln(w, "\nUpdating:")
			out, err := u.Up(ctx, &stack.UpInput{Stack: stackName(cmd)})
			if errors.Is(err, graph.ErrNoCrypter) {
				return fmt.Errorf("%w; set %s", err, stackcfg.EnvPassphrase)
			}
			if err != nil {
				return err
			}
			headingColor.Fprintln(w, "\nOutputs:")
			renderOutputs(w, out.Snapshot.Outputs)
			fmt.Fprintf(w, "\nResources: %d\n", len(out.Snapshot.Resources))
			return nil
		},
	}
	c.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the preview and confirmation")
	return c
}

func newCmdDestroy() *cobra.Command {
	var yes, remove bool
	c := &cobra.Command{
		Use:   "destroy",
		Short: "Delete every resource of the stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "stack.destroy", stackName(cmd))
			defer func() { cleanup(err) }()

			w := cmd.OutOrStdout()
			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Destroy every resource of stack %q?", stackName(cmd)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(w, "Destroy cancelled.")
					return nil
				}
			}
			u, err := buildStackUseCase(cmd, w)
			if err != nil {
				return err
			}
			defer u.Repos.Close()
			defer func() {
				if mErr := writeMetrics(cmd, u); mErr != nil && err == nil {
					err = mErr
				}
			}()
			out, err := u.Destroy(ctx, &stack.DestroyInput{Stack: stackName(cmd), Remove: remove})
			if out != nil {
				fmt.Fprintf(w, "\nResources deleted: %d\n", out.Deleted)
			}
			return err
		},
	}
	c.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation")
	c.Flags().BoolVar(&remove, "remove", false, "Remove the stack record after destroying its resources")
	return c
}

func newCmdStack() *cobra.Command {
	c := &cobra.Command{
		Use:   "stack",
		Short: "Inspect the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	c.AddCommand(newCmdStackOutput())
	c.AddCommand(newCmdStackGraph())
	c.AddCommand(newCmdStackList())
	c.AddCommand(newCmdStackKubeconfig())
	return c
}

func newCmdStackOutput() *cobra.Command {
	var showSecrets, asJSON bool
	c := &cobra.Command{
		Use:   "output [name]",
		Short: "Show stack outputs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildStackUseCase(cmd, nil)
			if err != nil {
				return err
			}
			defer u.Repos.Close()
			out, err := u.Outputs(cmd.Context(), &stack.OutputsInput{Stack: stackName(cmd), ShowSecrets: showSecrets})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(args) == 1 {
				v, ok := out.Outputs[args[0]]
				if !ok {
					return fmt.Errorf("output %q not found", args[0])
				}
				if s, ok := v.(string); ok && !asJSON {
					fmt.Fprintln(w, s)
					return nil
				}
				return json.NewEncoder(w).Encode(v)
			}
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out.Outputs)
			}
			renderOutputs(w, out.Outputs)
			return nil
		},
	}
	c.Flags().BoolVar(&showSecrets, "show-secrets", false, "Display secret outputs in plaintext")
	c.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return c
}

func newCmdStackGraph() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the declared resource graph in DOT format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildGraphUseCase(cmd)
			if err != nil {
				return err
			}
			return u.Graph(cmd.Context(), &stack.GraphInput{Stack: stackName(cmd)}, cmd.OutOrStdout())
		},
	}
}

func newCmdStackList() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List stacks recorded in the state database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, err := buildStackRepos(cmd)
			if err != nil {
				return err
			}
			defer repos.Close()
			names, err := repos.Snapshot.List(cmd.Context())
			if err != nil {
				return err
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newCmdStackKubeconfig() *cobra.Command {
	var format, namespace string
	c := &cobra.Command{
		Use:   "kubeconfig",
		Short: "Print the kubeconfig of the cluster recorded in the stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildStackUseCase(cmd, nil)
			if err != nil {
				return err
			}
			defer u.Repos.Close()
			out, err := u.Outputs(cmd.Context(), &stack.OutputsInput{Stack: stackName(cmd), ShowSecrets: true})
			if err != nil {
				return err
			}
			return writeKubeconfig(cmd.OutOrStdout(), out.Outputs[topology.ExportKubeconfig], namespace, format)
		},
	}
	c.Flags().StringVar(&format, "format", "yaml", "Output format (yaml|json)")
	c.Flags().StringVarP(&namespace, "namespace", "n", "", "Default namespace of the context")
	return c
}

// writeKubeconfig writes the exported kubeconfig v reduced to its current
// context.
func writeKubeconfig(w io.Writer, v any, namespace, format string) error {
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unsupported format: %s", format)
	}
	raw, ok := v.(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return fmt.Errorf("stack output %q holds no kubeconfig", topology.ExportKubeconfig)
	}
	cfg, err := kubeconfig.LoadAndNormalize([]byte(raw), namespace)
	if err != nil {
		return err
	}
	return kubeconfig.Print(w, cfg, format)
}
