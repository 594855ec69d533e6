package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shelf/internal/services"
	"github.com/desertthunder/shelf/internal/session"
	"github.com/desertthunder/shelf/internal/shared"
	"github.com/desertthunder/shelf/internal/store"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, session and API client are opened lazily by [Runner.connect] so that commands like setup
// work before any of them exist.
type Runner struct {
	config     *shared.Config
	configPath string
	storage    store.Storage
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	client     *services.Client
	manager    *session.Manager
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Storage    store.Storage // token storage; the configured sqlite database when nil
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
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
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		storage:    opts.Storage,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{setupCommand(r)}
	commands = append(commands, sessionCommands(r)...)
	for _, fn := range [](func(*Runner) *cli.Command){
		catalogCommand, bookCommand, libraryCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config file named by --config (defaults when it does not exist), applies --debug and
// tags the logger with an invocation id.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.config.ApplyEnv()
	}

	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	r.logger = shared.WithLogger(r.logger, "run", shared.GenerateID()[:8])
	r.logger.Debug("configuration loaded", "path", r.configPath, "api", r.config.API.BaseURL)
	return ctx, nil
}

// SetLogger replaces the logger used by commands and any services created afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// connect opens token storage and the session, and builds the API client. Repeated calls are no-ops.
func (r *Runner) connect(ctx context.Context) (*session.Manager, error) {
	if r.manager != nil {
		return r.manager, nil
	}

	if r.storage == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrStorage, err)
		}
		r.db = db
		r.storage = store.NewSQLite(db)
	}

	sess, err := session.Open(ctx, r.storage, r.config.Session.Key)
	if err != nil {
		return nil, err
	}

	r.client = services.NewClient(r.config.API.BaseURL, sess, r.httpClient)
	r.manager = session.NewManager(sess, r.client, r.logger)
	return r.manager, nil
}

// authenticated is [Runner.connect] for commands that need a signed-in session.
func (r *Runner) authenticated(ctx context.Context) (*session.Manager, error) {
	m, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	if !m.Session().IsAuthenticated() {
		return nil, fmt.Errorf("%w: run 'shelf login' first", shared.ErrNotAuthenticated)
	}
	return m, nil
}

// Close releases the database opened by [Runner.connect], if any.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) readLine(prompt string) (string, error) {
	r.writePlain("%s", prompt)
	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("%w: failed to read input: %v", shared.ErrMissingArgument, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
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
