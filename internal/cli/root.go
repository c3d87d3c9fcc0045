// Package cli implements eisctl, a command line client for the EisLager
// services built on the resilient SDK.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eislager/eislager-pro/internal/config"
	"github.com/eislager/eislager-pro/internal/telemetry"
	"github.com/eislager/eislager-pro/sdk"
)

// cliDefaults differ from the gateway's: the session outlives the process
// and only warnings reach stderr.
var cliDefaults = map[string]interface{}{
	"token_store.kind":       string(config.TokenStoreFile),
	"telemetry.service_name": "eisctl",
	"telemetry.log_level":    "warn",
}

// app carries the persistent flags of one invocation.
type app struct {
	configFile string
	envFile    string
	strict     bool
	output     string
}

// NewRootCommand builds the eisctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "eisctl",
		Short: "Command line client for the EisLager services",
		Long: `Command line client for the EisLager services.

eisctl talks to the auth, sales, inventory, admin, communications and analytics
services through the resilient client: while a service is unreachable it
answers with synthesized data unless --strict is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.output != outputJSON && a.output != outputText {
				return fmt.Errorf("%w: unsupported output %q, use 'text' or 'json'", ErrUsage, a.output)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "path to a YAML config file")
	flags.StringVar(&a.envFile, "env-file", "", "path to a .env file")
	flags.BoolVar(&a.strict, "strict", false, "surface outages instead of answering with fallback data")
	flags.StringVarP(&a.output, "output", "o", outputText, "output format: text or json")

	root.AddCommand(
		a.requestCommand(),
		a.getCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.snapshotCommand(),
		a.fallbackCommand(),
		a.versionCommand(),
	)
	return root
}

// Execute runs eisctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// withServices wraps a command body that needs the service clients. The
// clients and the token store are closed when fn returns.
func (a *app) withServices(fn func(cmd *cobra.Command, args []string, services *sdk.Services) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		services, closeFn, err := a.open(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := closeFn(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args, services)
	}
}

// open loads the configuration and builds the service clients with the
// stored session applied.
func (a *app) open(cmd *cobra.Command) (*sdk.Services, func() error, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: a.configFile,
		EnvFile:    a.envFile,
		Defaults:   cliDefaults,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if a.strict {
		cfg.Client.Fallback = false
	}

	log := telemetry.NewLogger(cfg.TelemetryConfig(Version))
	log.SetOutput(cmd.ErrOrStderr())

	ctx := cmd.Context()
	store, closeStore, err := cfg.OpenTokenStore(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open token store: %v", ErrConfig, err)
	}

	services, err := sdk.NewServices(cfg.ServicesConfig(telemetry.NewObserver(nil, telemetry.WithLogger(log)), store))
	if err != nil {
		_ = closeStore()
		return nil, nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if _, err := services.Restore(ctx); err != nil {
		log.WithError(err).Warn("Failed to restore session")
	}

	return services, func() error { return errors.Join(services.Close(), closeStore()) }, nil
}
