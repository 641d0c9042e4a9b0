package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var (
	apiAddr  string
	apiToken string
)

// apiClient talks to the HTTP surface of a running service.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(ctx context.Context, base, token string) *apiClient {
	hc := &http.Client{Timeout: 10 * time.Second}
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		hc.Timeout = 10 * time.Second
	}
	return &apiClient{base: strings.TrimRight(base, "/"), http: hc}
}

// do sends body as JSON and decodes the answer into out when both are set.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
		Hint  string `json:"hint"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		if e.Hint != "" {
			return fmt.Errorf("%s: %s (%s)", resp.Status, e.Error, e.Hint)
		}
		return fmt.Errorf("%s: %s", resp.Status, e.Error)
	}
	return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
}

// addAPIFlags registers the flags locating the running service.
func addAPIFlags(c *cobra.Command) {
	c.PersistentFlags().StringVar(&apiAddr, "api", "http://localhost:8080", "base URL of the running service")
	c.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("HEMS_TOKEN"), "bearer token for command endpoints")
}
