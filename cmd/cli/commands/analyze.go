package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

type AnalyzeOptions struct {
	DatasetID string
	Wait      bool
	Timeout   time.Duration
}

func NewAnalyzeCmd() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <dataset-id>",
		Short: "Trigger a quality analysis",
		Long:  `Start a quality analysis run for an uploaded dataset. With --wait the command polls until the run reaches a terminal state.`,
		Example: `  # Start an analysis and return immediately
  dataqual-cli analyze 4f7c1e9a-...

  # Start and wait for the result
  dataqual-cli analyze 4f7c1e9a-... --wait`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DatasetID = args[0]
			return runAnalyze(opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Wait, "wait", "w", false, "Poll until the analysis finishes")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Minute, "Maximum time to wait with --wait")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions) error {
	client := newAPIClient()

	req, err := http.NewRequest(http.MethodPost, client.url("/datasets/"+opts.DatasetID+"/analysis"), nil)
	if err != nil {
		return err
	}

	var started map[string]interface{}
	if err := client.do(req, &started); err != nil {
		return err
	}

	if !opts.Wait {
		fmt.Println("Analysis started")
		return printJSON(started)
	}

	deadline := time.Now().Add(opts.Timeout)
	for {
		result, err := fetchAnalysis(client, opts.DatasetID)
		if err != nil {
			return err
		}

		status, _ := result["status"].(string)
		if status == "completed" || status == "failed" {
			return printJSON(result)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for analysis (last status: %s)", status)
		}
		time.Sleep(2 * time.Second)
	}
}

func fetchAnalysis(client *apiClient, datasetID string) (map[string]interface{}, error) {
	req, err := http.NewRequest(http.MethodGet, client.url("/datasets/"+datasetID+"/analysis"), nil)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := client.do(req, &result); err != nil {
		return nil, err
	}
	return result, nil
}
