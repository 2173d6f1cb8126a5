package cli

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskhub/pkg/observability"
)

var healthURL string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Query the health endpoint of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		base := healthURL
		if base == "" {
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			base = baseURL(cfg.HTTPAddr)
		}

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimSuffix(base, "/")+"/health", nil)
		if err != nil {
			return err
		}
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		defer resp.Body.Close()

		var health observability.OverallHealth
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			return fmt.Errorf("decode health response: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, health.Status)
		names := make([]string, 0, len(health.Checks))
		for name := range health.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			check := health.Checks[name]
			fmt.Fprintf(out, "  %-10s %-10s %s\n", name, check.Status, check.Message)
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server is %s", health.Status)
		}
		return nil
	},
}

// baseURL turns a listen address into a URL a local client can dial.
func baseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func init() {
	healthCmd.Flags().StringVar(&healthURL, "url", "", "server base URL (default derived from HTTP_ADDR)")
	rootCmd.AddCommand(healthCmd)
}
