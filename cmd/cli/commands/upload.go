package commands

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

type UploadOptions struct {
	File string
}

func NewUploadCmd() *cobra.Command {
	opts := &UploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a CSV dataset",
		Long:  `Upload a CSV file to the server. The response carries the dataset id used by the analyze and status commands.`,
		Example: `  # Upload a dataset
  dataqual-cli upload orders.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.File = args[0]
			return runUpload(opts)
		},
	}

	return cmd
}

func runUpload(opts *UploadOptions) error {
	file, err := os.Open(opts.File)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", opts.File, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(opts.File))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	client := newAPIClient()
	req, err := http.NewRequest(http.MethodPost, client.url("/datasets"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var meta map[string]interface{}
	if err := client.do(req, &meta); err != nil {
		return err
	}

	fmt.Printf("Uploaded %s\n", opts.File)
	return printJSON(meta)
}
