// Command execution for CLI commands.
//
// Information Hiding:
// - Command dispatch logic hidden
// - Settings, storage and server setup hidden
// - Output formatting hidden

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/richinex/taskchat/agent"
	"github.com/richinex/taskchat/config"
	"github.com/richinex/taskchat/model"
	"github.com/richinex/taskchat/server"
	"github.com/richinex/taskchat/storage"
)

// DefaultDBPath is where exchange transcripts are recorded.
const DefaultDBPath = ".taskchat/exchanges.db"

const shutdownTimeout = 10 * time.Second

// Options holds CLI execution options.
type Options struct {
	Provider  string
	Addr      string
	DBPath    string
	MaxRounds int
	Out       io.Writer
	Logger    *slog.Logger
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		DBPath: DefaultDBPath,
		Out:    os.Stdout,
		Logger: slog.Default(),
	}
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) settings() (config.Settings, error) {
	settings, err := config.New(o.Provider)
	if err != nil {
		return config.Settings{}, err
	}
	if o.MaxRounds > 0 {
		settings.Exchange.MaxRounds = o.MaxRounds
	}
	return settings, nil
}

// openStore opens the transcript log, or returns nil when dbPath is empty.
func openStore(dbPath string) (*storage.SqliteStore, error) {
	if dbPath == "" {
		return nil, nil
	}
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, opts Options) error {
	settings, err := opts.settings()
	if err != nil {
		return err
	}
	logger := opts.logger()

	assistant, err := NewAssistant(settings, logger)
	if err != nil {
		return err
	}

	cfg := server.Config{
		AllowedOrigins: settings.Server.CORSOrigins,
		Logger:         logger,
	}
	store, err := openStore(opts.DBPath)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		cfg.Store = store
	}

	addr := opts.Addr
	if addr == "" {
		addr = settings.Server.Addr()
	}

	srv := server.New(assistant, cfg)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	logger.Info("Serving chat",
		"assistant", assistant.Name(),
		"provider", assistant.Provider().Name(),
		"model", assistant.Provider().Model(),
		"max_rounds", settings.Exchange.MaxRounds,
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}

// Ask runs a single exchange and prints the answer with its metrics.
func Ask(ctx context.Context, message string, opts Options) error {
	settings, err := opts.settings()
	if err != nil {
		return err
	}

	assistant, err := NewAssistant(settings, opts.logger())
	if err != nil {
		return err
	}

	resp, err := assistant.Respond(ctx, message)

	if !errors.Is(err, agent.ErrEmptyMessage) {
		if store, openErr := openStore(opts.DBPath); openErr != nil {
			opts.logger().Warn("Failed to open exchange log", "error", openErr)
		} else if store != nil {
			if recErr := store.Record(ctx, agent.NewTranscript(message, resp, err)); recErr != nil {
				opts.logger().Warn("Failed to record exchange", "error", recErr)
			}
			store.Close()
		}
	}

	if err != nil {
		return fmt.Errorf("exchange failed: %w", err)
	}

	out := opts.out()
	fmt.Fprintf(out, "%s\n\n", resp.Text)
	printMetadata(out, resp.Metadata)
	return nil
}

// ListTools lists the assistant's tools. No credentials are needed.
func ListTools(out io.Writer, verbose bool) error {
	assistant, err := agent.New(assistantConfig(config.Settings{}, nil), nil)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Available tools:")
	fmt.Fprintln(out)

	for _, meta := range assistant.Tools() {
		fmt.Fprintf(out, "  %s\n", meta.Name)
		fmt.Fprintf(out, "    %s\n", meta.Description)

		if verbose && len(meta.Parameters) > 0 {
			fmt.Fprintln(out, "    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Fprintf(out, "      %s%s: %s - %s\n", param.Name, req, param.ParamType, param.Description)
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}

// ListExchanges prints the most recent recorded exchanges.
func ListExchanges(ctx context.Context, dbPath string, limit int, out io.Writer) error {
	if dbPath == "" {
		return errors.New("--db is required")
	}
	store, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	transcripts, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(transcripts) == 0 {
		fmt.Fprintln(out, "No exchanges recorded.")
		return nil
	}

	for _, t := range transcripts {
		status := "ok"
		if !t.Succeeded() {
			status = "error"
		}
		fmt.Fprintf(out, "%s  %s  [%s] %s/%s\n",
			t.CreatedAt.Local().Format(time.DateTime), t.ID, status, t.Provider, t.Model)
		fmt.Fprintf(out, "  Q: %s\n", truncateString(t.Message, maxPreviewLen))
		if t.Succeeded() {
			fmt.Fprintf(out, "  A: %s\n", truncateString(oneLine(t.Answer), maxPreviewLen))
		} else {
			fmt.Fprintf(out, "  E: %s\n", truncateString(t.Error, maxPreviewLen))
		}
		fmt.Fprintf(out, "  %d provider call(s), %d/%d tool call(s) ok, %d tokens, %dms\n\n",
			t.ProviderCalls, model.SuccessCount(t.ToolCalls), len(t.ToolCalls), t.Usage.TotalTokens, t.DurationMs)
	}
	return nil
}

// Helper functions

const maxPreviewLen = 120

func printMetadata(out io.Writer, meta agent.Metadata) {
	fmt.Fprintf(out, "Provider: %s (%s)\n", meta.Provider, meta.Model)
	fmt.Fprintf(out, "  Provider calls: %d\n", meta.ProviderCalls)
	for _, call := range meta.ToolCalls {
		fmt.Fprintf(out, "  Tool %s (round %d): %dms, %d bytes\n", call.Name, call.Round, call.DurationMs, call.OutputSize)
	}
	fmt.Fprintf(out, "  Prompt tokens: %d\n", meta.TokenUsage.PromptTokens)
	fmt.Fprintf(out, "  Completion tokens: %d\n", meta.TokenUsage.CompletionTokens)
	fmt.Fprintf(out, "  Total tokens: %d\n", meta.TokenUsage.TotalTokens)
	fmt.Fprintf(out, "  Duration: %dms\n", meta.DurationMs)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
