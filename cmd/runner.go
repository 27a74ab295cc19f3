package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fintx/internal/api"
	"github.com/desertthunder/fintx/internal/cache"
	"github.com/desertthunder/fintx/internal/services"
	"github.com/desertthunder/fintx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	// built on first use from config
	finance *services.FinanceAPI
	cache   *cache.Coordinator
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Finance    *services.FinanceAPI // overrides the client built from Config
	Cache      *cache.Coordinator   // cache backing Finance, for stats
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.API.Timeout()}
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		finance:    opts.Finance,
		cache:      opts.Cache,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, seedCommand, serveCommand, tokenCommand,
		transactionsCommand, categoriesCommand, budgetsCommand, plansCommand,
		endpointsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before reloads the config when --config is given and applies --verbose.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.IsSet("config") {
		config, err := shared.ResolveConfig(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.finance, r.cache = nil, nil
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// financeAPI returns the finance client, building the transport, cache and registry on first use.
func (r *Runner) financeAPI() (*services.FinanceAPI, error) {
	if r.finance != nil {
		return r.finance, nil
	}

	coordinator, err := cache.New(cache.FromShared(r.config.Cache), shared.WithLogger(r.logger, "component", "cache"))
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	logger := shared.WithLogger(r.logger, "component", "api")
	transport := api.NewTransport(api.TransportOpts{
		BaseURL:     r.config.API.BaseURL,
		HTTPClient:  r.httpClient,
		TokenSource: api.StaticToken(r.config.API.Token),
		RateLimit:   r.config.API.RateLimit,
		Logger:      logger,
	})
	client := api.NewClient(transport, api.WithCache(coordinator), api.WithLogger(logger))

	finance, err := services.NewFinanceAPI(client)
	if err != nil {
		return nil, fmt.Errorf("failed to register finance endpoints: %w", err)
	}

	r.finance, r.cache = finance, coordinator
	r.logger.Debug("finance client ready", "base_url", transport.BaseURL(), "endpoints", client.Registry().Len())
	return finance, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
