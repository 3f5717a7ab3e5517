package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/netprofile/internal/auth"
	"github.com/pendergraft/netprofile/internal/chains/evm"
	"github.com/pendergraft/netprofile/internal/config"
	"github.com/pendergraft/netprofile/internal/observability/metrics"
	"github.com/pendergraft/netprofile/internal/profile"
	"github.com/pendergraft/netprofile/internal/server"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "netprofile-server",
		Short:        "Serve a network profile document over HTTP",
		Version:      version,
		SilenceUsage: true,
	}

	// Default behavior (no subcommand) is to serve
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe()
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newKeysCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server.

The document named by NETPROFILE_CONFIG is loaded once at startup and served
read-only. Secrets are resolved from the process environment layered over
the dotenv files in NETPROFILE_DOTENV; they are never returned by the API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	cmd.AddCommand(newKeysGenerateCmd())
	cmd.AddCommand(newKeysHashCmd())
	return cmd
}

func newKeysGenerateCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new API key and its hash",
		Long: `Generate a new API key.

The server only stores hashes. Add the printed hash to AUTH_API_KEY_HASHES
and hand the key to the client; it cannot be recovered from the hash.

EXAMPLES:
  netprofile-server keys generate
  netprofile-server keys generate --quiet | gh secret set NETPROFILE_API_KEY
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := auth.GenerateAPIKey()
			if err != nil {
				return fmt.Errorf("generating API key: %w", err)
			}
			out := cmd.OutOrStdout()
			if quiet {
				fmt.Fprintln(out, key)
				return nil
			}
			fmt.Fprintf(out, "key:  %s\n", key)
			fmt.Fprintf(out, "hash: %s\n", auth.HashAPIKey(key))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Add the hash to AUTH_API_KEY_HASHES. The key is not shown again.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the key")
	return cmd
}

func newKeysHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <key>",
		Short: "Print the hash of an existing API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), auth.HashAPIKey(args[0]))
			return nil
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("starting netprofile-server", "version", version)

	metrics.Init(cfg.Metrics.Enabled, "netprofile-server")

	env, err := profile.LoadEnvironment(cfg.Profile.Dotenv...)
	if err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}
	doc, err := profile.Load(cfg.Profile.Path, profile.WithEnvironment(env))
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}

	report := profile.Validate(doc, profile.ValidateOptions{CheckEnvironment: true})
	for _, issue := range report.Issues {
		level := slog.LevelWarn
		if issue.Severity == profile.SeverityError {
			level = slog.LevelError
		}
		logger.Log(context.Background(), level, "document issue", "issue", issue.String())
	}
	logger.Info("document loaded",
		"source", doc.Source,
		"revision", doc.Revision.String(),
		"networks", len(doc.NetworkNames()),
		"valid", report.Valid(),
	)

	srv, err := server.New(cfg, doc, env, evm.NewChain(), logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
