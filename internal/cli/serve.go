package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/logging"
	"github.com/evcraddock/commentbox/internal/web"
)

type serveOptions struct {
	port      int
	uploadDir string
	publicURL string
	rps       float64
	burst     int
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the commentbox JSON API backed by the SQLite database. Set CB_DEV_MODE=1 for text logs at debug level.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&opts.uploadDir, "upload-dir", "", "attachment directory (default: $CB_UPLOAD_DIR or ~/.config/cb/uploads)")
	cmd.Flags().StringVar(&opts.publicURL, "public-url", "", "base URL used in attachment links (default: http://localhost:<port>)")
	cmd.Flags().Float64Var(&opts.rps, "rate", 5, "API requests per second allowed per client")
	cmd.Flags().IntVar(&opts.burst, "burst", 10, "API request burst allowed per client")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	logging.Setup(devMode())

	uploadDir, err := resolveUploadDir(opts.uploadDir)
	if err != nil {
		return err
	}
	publicURL := opts.publicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("http://localhost:%d", opts.port)
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	srv, err := web.NewServer(database, web.Config{
		UploadDir: uploadDir,
		PublicURL: publicURL,
		Rate:      auth.RateConfig{RPS: opts.rps, Burst: opts.burst},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving commentbox API on %s\n", publicURL)
	return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", opts.port))
}

func resolveUploadDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv("CB_UPLOAD_DIR"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "cb", "uploads"), nil
}
