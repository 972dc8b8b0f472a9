package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Tests the connection to the server and checks if the stored API key is valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runStatus(ctx context.Context, out io.Writer) error {
	serverURL := getServerURL()
	apiKey := getAPIKey()

	fmt.Fprintf(out, "Server:  %s\n", serverURL)

	if apiKey == "" {
		fmt.Fprintln(out, "API Key: not configured")
		fmt.Fprintln(out, "\nRun 'cb login' to authenticate.")
		return nil
	}

	prefix := apiKey
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	fmt.Fprintf(out, "API Key: %s…\n", prefix)

	c := newAPIClient(
		client.WithRetries(0),
		client.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
	)

	if err := c.Health(ctx); err != nil {
		fmt.Fprintf(out, "Status:  ✗ cannot reach server (%v)\n", err)
		return nil
	}

	me, err := c.Me(ctx)
	switch {
	case err == nil:
		fmt.Fprintf(out, "Status:  ✓ connected and authenticated as %s\n", me.Label())
	case errors.Is(err, apperr.ErrAuthRequired):
		fmt.Fprintln(out, "Status:  ✗ invalid API key")
		fmt.Fprintln(out, "\nRun 'cb login' to re-authenticate.")
	default:
		fmt.Fprintf(out, "Status:  ✗ unexpected response (%v)\n", err)
	}

	return nil
}
