// Package main provides the taskchat CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/taskchat/cli"
	"github.com/richinex/taskchat/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider  string
	dbPath    string
	maxRounds int
	logLevel  string
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "taskchat",
		Short: "Chat with your Todoist tasks through an LLM",
		Long: `A chat service that answers questions about your Todoist tasks.

Each message is a stateless exchange: the model may call the read-only
find-tasks tool, and the final text is returned.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "",
		fmt.Sprintf("LLM provider (%s); defaults to $LLM_PROVIDER or openai", strings.Join(config.SupportedProviders(), ", ")))
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", cli.DefaultDBPath, "Exchange log database path (empty disables the log)")
	rootCmd.PersistentFlags().IntVar(&maxRounds, "max-rounds", 0, "Maximum provider requests per exchange (default $EXCHANGE_MAX_ROUNDS or 8)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $LOG_LEVEL or info")

	// Add commands
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(exchangesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger(level string) error {
	if level == "" {
		level = os.Getenv(config.EnvLogLevel)
	}
	if level == "" {
		level = config.DefaultLogLevel
	}
	parsed, err := config.ParseLogLevel(level)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parsed}))
	slog.SetDefault(logger)
	return nil
}

func options() cli.Options {
	opts := cli.DefaultOptions()
	opts.Provider = provider
	opts.DBPath = dbPath
	opts.MaxRounds = maxRounds
	opts.Logger = slog.Default()
	return opts
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat HTTP server",
		Long: `Start the HTTP server.

Endpoints:
- POST /api/chat        {"message": "..."} -> {"message": "..."}
- GET  /api/chat/ws     one exchange per text frame
- GET  /api/exchanges   recent exchange transcripts
- GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := options()
			opts.Addr = addr
			return cli.Serve(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :$PORT or :3001)")

	return cmd
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [message]",
		Short: "Run a single exchange and print the answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return cli.Ask(ctx, args[0], options())
		},
	}
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(cmd.OutOrStdout(), verboseTools)
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}

func exchangesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "exchanges",
		Short: "List recorded exchanges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListExchanges(cmd.Context(), dbPath, limit, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of exchanges to show")

	return cmd
}
