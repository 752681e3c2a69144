package main

import (
	"fmt"

	"github.com/civicchat/orchestra"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [target]",
	Short: "Export the workflow graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the routed workflow, or of the
single-agent graph named by target.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := orchestra.WorkflowAlias
		if len(args) > 0 {
			name = args[0]
		}
		target, err := orchestra.ParseTarget(name)
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		diagram, err := a.engine.Describe(target)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), diagram)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
