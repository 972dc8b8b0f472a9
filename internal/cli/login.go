package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/client"
)

func newLoginCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store an API key",
		Long:  "Reads an API key (from 'cb keys create' on the server), checks it against the server and saves it for CLI access.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), server)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or http://localhost:8080)")

	return cmd
}

func runLogin(ctx context.Context, in io.Reader, out io.Writer, serverFlag string) error {
	serverURL := serverFlag
	if serverURL == "" {
		serverURL = getServerURL()
	}

	fmt.Fprint(out, "Paste your API key: ")
	reader := bufio.NewReader(in)
	key, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading input: %w", err)
	}

	key = strings.TrimSpace(key)
	if err := validateAPIKey(key); err != nil {
		return err
	}

	me, err := client.New(serverURL, key, client.WithRetries(0)).Me(ctx)
	if err != nil {
		return fmt.Errorf("checking API key: %w", err)
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.APIKey = key
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintf(out, "\n✓ API key saved. Logged in as %s.\n", me.Label())
	return nil
}

// validateAPIKey checks that the key is non-empty and has the expected shape.
func validateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("no API key provided")
	}
	if !auth.LooksLikeKey(key) {
		return fmt.Errorf("invalid API key format (should start with cb_)")
	}
	return nil
}
