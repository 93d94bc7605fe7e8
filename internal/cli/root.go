// Package cli implements the fetchkit command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/fetchkit/config"
	"github.com/kbukum/fetchkit/fetch"
	"github.com/kbukum/fetchkit/logger"
	"github.com/kbukum/fetchkit/observability"
	"github.com/kbukum/fetchkit/version"
)

// errReported is returned once a failure has already been printed.
var errReported = errors.New("request failed")

const shutdownTimeout = 5 * time.Second

type rootOptions struct {
	configFile  string
	envFile     string
	baseURL     string
	timeout     time.Duration
	logLevel    string
	credentials string
	noColor     bool
}

// NewRootCmd builds the fetchkit command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "fetchkit",
		Short: "A small HTTP client for JSON APIs",
		Long: `fetchkit sends requests to JSON APIs that answer with a {"data": ...}
envelope. It prints the result as {status, statusCode, data} and exits
non-zero when the call fails.`,
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default: ./fetchkit.yml)")
	flags.StringVar(&opts.envFile, "env-file", "", "env file (default: ./.env.fetchkit or ./.env)")
	flags.StringVar(&opts.baseURL, "base-url", "", "base URL for relative request paths")
	flags.DurationVarP(&opts.timeout, "timeout", "t", 0, "request timeout (default 30s, 0 disables)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&opts.credentials, "credentials", "", "cookie policy: same-origin, include or omit")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newGetCmd(opts),
		newPostCmd(opts),
		newRawCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs fetchkit with the process arguments and returns the exit code.
func Execute(ctx context.Context) int {
	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes the command tree with args, writing to stdout and stderr.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

// session holds what one command invocation needs.
type session struct {
	client      *fetch.Client
	credentials fetch.Credentials
	telemetry   *observability.Telemetry
	log         *logger.Logger
	printer     *printer
}

// load resolves the configuration and applies flag overrides.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	var loadOpts []config.LoaderOption
	if o.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(o.envFile))
	}

	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return nil, err
	}

	if o.baseURL != "" {
		cfg.Client.BaseURL = o.baseURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Client.Timeout = o.timeout
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.credentials != "" {
		cfg.Credentials = o.credentials
	}
	if o.noColor {
		cfg.Logging.NoColor = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.load(cmd)
	if err != nil {
		return nil, err
	}

	logOut := cmd.ErrOrStderr()
	if cfg.Logging.Output == "stdout" {
		logOut = cmd.OutOrStdout()
	}
	log := logger.NewWithWriter(&cfg.Logging, "fetchkit", logOut)

	tel, err := observability.Setup(cmd.Context(), cfg.Telemetry, log)
	if err != nil {
		return nil, err
	}

	fc, err := cfg.FetchConfig()
	if err != nil {
		return nil, err
	}
	client, err := fetch.New(fc,
		fetch.WithLogger(log),
		fetch.WithTracerProvider(tel.TracerProvider()),
		fetch.WithMeterProvider(tel.MeterProvider()),
	)
	if err != nil {
		return nil, err
	}

	cred, err := cfg.CredentialsPolicy()
	if err != nil {
		return nil, err
	}

	return &session{
		client:      client,
		credentials: cred,
		telemetry:   tel,
		log:         log,
		printer:     newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), o.noColor || cfg.Logging.NoColor),
	}, nil
}

func (s *session) close(ctx context.Context) {
	_ = s.client.Close()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.telemetry.Shutdown(ctx); err != nil {
		s.log.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
	}
}

// run wraps fn with session setup and teardown.
func (o *rootOptions) run(fn func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := o.open(cmd)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())
		return fn(cmd.Context(), s, args)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "fetchkit", version.Get().String())
		},
	}
}
