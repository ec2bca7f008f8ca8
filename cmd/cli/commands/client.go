package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"
)

// apiClient is a thin HTTP client for the dataqual server API
type apiClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func newAPIClient() *apiClient {
	baseURL := viper.GetString("server_url")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &apiClient{
		baseURL: baseURL,
		token:   viper.GetString("token"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *apiClient) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("server returned %d: %s (%s)", resp.StatusCode, errResp.Error.Message, errResp.Error.Code)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *apiClient) url(path string) string {
	return c.baseURL + "/api/v1" + path
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
