package commands

import (
	"net/http"

	"github.com/spf13/cobra"
)

func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your uploaded datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()

			req, err := http.NewRequest(http.MethodGet, client.url("/datasets"), nil)
			if err != nil {
				return err
			}

			var result map[string]interface{}
			if err := client.do(req, &result); err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	return cmd
}
