package commands

import (
	"github.com/spf13/cobra"
)

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status <dataset-id>",
		Short:   "Show the analysis state of a dataset",
		Example: `  dataqual-cli status 4f7c1e9a-...`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := fetchAnalysis(newAPIClient(), args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	return cmd
}
