// Package cli implements the taxbot command line: submit, convert and login.
package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/recibos/taxbot/internal/application/invoicing"
	"github.com/recibos/taxbot/internal/bootstrap"
	"github.com/recibos/taxbot/internal/domain/invoice"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/recibos/taxbot/internal/infrastructure/config"
	"github.com/recibos/taxbot/internal/infrastructure/logger"
	"github.com/recibos/taxbot/internal/infrastructure/portal"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Service is what the commands need from the invoicing service
type Service interface {
	Submit(ctx context.Context, inv invoice.Invoice, opts invoicing.SubmitOptions) (*invoicing.Submission, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency, on time.Time) (valueobject.Money, error)
	CheckLogin(ctx context.Context) error
}

// ServiceRequest carries what a command knows when it needs the service
type ServiceRequest struct {
	Config    *config.Config
	Logger    *zap.Logger
	Confirmer portal.Confirmer
	// Headless overrides portal.headless when set
	Headless *bool
}

// ServiceFactory builds the service and returns a shutdown func
type ServiceFactory func(ctx context.Context, req ServiceRequest) (Service, func(context.Context) error, error)

// Environment holds the process streams and collaborators of the commands
type Environment struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	NewService ServiceFactory
	Now        func() time.Time
}

// DefaultEnvironment uses the process streams and the real services
func DefaultEnvironment() Environment {
	return Environment{
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
		NewService: BootstrapService,
		Now:        time.Now,
	}
}

// BootstrapService builds the invoicing service from configuration
func BootstrapService(ctx context.Context, req ServiceRequest) (Service, func(context.Context) error, error) {
	app, err := bootstrap.New(ctx, bootstrap.Options{
		Config:    req.Config,
		Logger:    req.Logger,
		Confirmer: req.Confirmer,
		Headless:  req.Headless,
	})
	if err != nil {
		return nil, nil, err
	}
	return app.Service, app.Shutdown, nil
}

// app is the state shared by the subcommands of one invocation
type app struct {
	env        Environment
	in         *bufio.Reader
	configFile string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
}

// NewRootCommand builds the taxbot command tree
func NewRootCommand(env Environment) *cobra.Command {
	if env.Now == nil {
		env.Now = time.Now
	}
	if env.NewService == nil {
		env.NewService = BootstrapService
	}
	// One reader shared by prompts and confirmations so neither loses buffered input
	a := &app{env: env, in: bufio.NewReader(env.In)}

	root := &cobra.Command{
		Use:           "taxbot",
		Short:         "Issue a fatura-recibo on the Portuguese tax portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				logger.Sync(a.log)
			}
		},
	}
	root.SetIn(a.in)
	root.SetOut(env.Out)
	root.SetErr(env.Err)

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to config file (default: ./config.toml or ./config/config.toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newSubmitCommand(a),
		newConvertCommand(a),
		newLoginCommand(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.LoadFile(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.log = logger.NewWriter(logger.CLIConfig(a.verbose), a.env.Err)
	return nil
}

// service builds the service for one command run
func (a *app) service(ctx context.Context, headless *bool) (Service, func(context.Context) error, error) {
	return a.env.NewService(ctx, ServiceRequest{
		Config:    a.cfg,
		Logger:    a.log,
		Confirmer: portal.NewStdinConfirmer(a.in, a.env.Out),
		Headless:  headless,
	})
}

func (a *app) shutdown(ctx context.Context, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	if err := fn(ctx); err != nil {
		a.log.Warn("Shutdown failed", zap.Error(err))
	}
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, env Environment, args []string) int {
	root := NewRootCommand(env)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = io.WriteString(env.Err, "Error: "+err.Error()+"\n")
		return 1
	}
	return 0
}
