// submodule cmd wires configuration, the tracking client, and the registry into CLI commands
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mfx/internal/mirror"
	"github.com/desertthunder/mfx/internal/mlflow"
	"github.com/desertthunder/mfx/internal/registry"
	"github.com/desertthunder/mfx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	client     mlflow.Client
	api        *mlflow.APIService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	engine     *mirror.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Client     mlflow.Client
	API        *mlflow.APIService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
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
		opts.HTTPClient = http.DefaultClient
	}

	engine := mirror.NewEngine(opts.Client, opts.Config.Tracking.URI)

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		client:     opts.Client,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		engine:     engine,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, mirrorCommand, mlflowCommand, registryCommand, apiCommand, serveCommand, panelCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openRegistry opens the configured registry database and wraps it in a store.
// Callers own the returned handle and must close it.
func (r *Runner) openRegistry() (*sql.DB, *registry.Store, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, registry.NewStore(db), nil
}

// authenticate configures tracking-server credentials from config, skipping when none are set.
func (r *Runner) authenticate(ctx context.Context) error {
	tracking := r.config.Tracking
	if tracking.Token == "" && tracking.ClientID == "" {
		return nil
	}

	credentials := map[string]string{}
	if tracking.Token != "" {
		credentials["token"] = tracking.Token
	}
	if tracking.ClientID != "" {
		credentials["client_id"] = tracking.ClientID
		credentials["client_secret"] = tracking.ClientSecret
		credentials["token_url"] = tracking.TokenURL
	}

	return r.client.Authenticate(ctx, credentials)
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
