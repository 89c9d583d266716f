// Package cli contains the gotrue command tree.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/gotrue-go/config"
	"github.com/ErlanBelekov/gotrue-go/gotrue"
	ctxlog "github.com/ErlanBelekov/gotrue-go/internal/log"
	"github.com/ErlanBelekov/gotrue-go/internal/requestid"
)

// Commands carrying this annotation run without loading config.
const annotationOffline = "offline"

type app struct {
	url     string
	verbose bool
	version string

	cfg      *config.Config
	logger   *slog.Logger
	client   *gotrue.Client[gotrue.UserResponse, gotrue.TokenResponse]
	registry *prometheus.Registry
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   "gotrue",
		Short: "Command line client for a GoTrue auth API",
		Long: `gotrue calls a GoTrue-compatible auth API and prints the JSON result.

The API is configured from the environment (GOTRUE_URL, GOTRUE_API_KEY,
GOTRUE_HTTP_TIMEOUT_SEC, LOG_LEVEL, ENV, METRICS_TEXTFILE).

Example usage:
  gotrue settings
  gotrue signup foo@bar.de secret
  gotrue signin foo@bar.de secret
  gotrue user get --jwt "$ACCESS_TOKEN"
  gotrue user update --jwt "$ACCESS_TOKEN" --data-json '{"admin":true}'`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.url, "url", "", "auth API base URL (overrides GOTRUE_URL)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.settingsCmd(),
		a.healthCmd(),
		a.signupCmd(),
		a.inviteCmd(),
		a.verifyCmd(),
		a.recoverCmd(),
		a.signinCmd(),
		a.refreshCmd(),
		a.signoutCmd(),
		a.magicLinkCmd(),
		a.userCmd(),
		a.tokenCmd(),
		a.versionCmd(),
	)
	a.flushMetricsAfter(root)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationOffline] == "true" {
		return nil
	}

	cfg, err := config.Load(a.url)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.SlogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Env, level)
	a.registry = prometheus.NewRegistry()

	opts := []gotrue.Option{gotrue.WithLogger(a.logger)}
	if cfg.MetricsTextfile != "" {
		opts = append(opts, gotrue.WithMetrics(gotrue.NewMetrics(a.registry)))
	}
	httpClient := gotrue.NewHTTPClient(
		cfg.URL,
		cfg.DefaultHeaders(),
		gotrue.NewTransport(cfg.HTTPTimeout()),
		gotrue.NewJSONSerializer(),
		opts...,
	)
	a.client = gotrue.NewClient[gotrue.UserResponse, gotrue.TokenResponse](httpClient)
	a.cfg = cfg

	ctx, _ := requestid.Ensure(cmd.Context())
	cmd.SetContext(ctx)

	a.logger.DebugContext(ctx, "configuration loaded", "url", cfg.URL, "env", cfg.Env)
	return nil
}

// flushMetricsAfter wraps every runnable command so the metrics textfile is
// written whether the command succeeded or not; cobra skips
// PersistentPostRunE on error.
func (a *app) flushMetricsAfter(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		a.flushMetricsAfter(sub)
	}
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if werr := a.writeMetrics(); werr != nil {
			return errors.Join(err, werr)
		}
		return err
	}
}

func (a *app) writeMetrics() error {
	if a.cfg == nil || a.cfg.MetricsTextfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.MetricsTextfile, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// newLogger writes to w, which is stderr so stdout stays machine readable.
func newLogger(w io.Writer, env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// DescribeError renders err for the terminal, including the full body of an
// auth API error when the message had to truncate it.
func DescribeError(err error) string {
	var httpErr *gotrue.HTTPError
	if errors.As(err, &httpErr) && httpErr.Body != nil && !strings.Contains(err.Error(), *httpErr.Body) {
		return fmt.Sprintf("%v: %s", err, *httpErr.Body)
	}
	return err.Error()
}
