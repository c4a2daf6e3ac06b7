package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/ethfleet/nodesplit/internal/lib/misc"
	"github.com/ethfleet/nodesplit/internal/lib/split"
)

var logLevel = new(slog.LevelVar) // Info by default

func initApp() *SplitApp {
	log.SetFlags(0)
	var logger *slog.Logger
	if term.IsTerminal(int(os.Stdout.Fd())) {
		// Are we running on something where output is a tty - so we're being run as CLI vs as a daemon
		logger = slog.New(misc.NewMinimalHandler(os.Stderr,
			misc.MinimalHandlerOptions{SlogOpts: slog.HandlerOptions{Level: logLevel, AddSource: true}}))
	} else {
		// not on console - output as json, but change json key names to be more compatible w/ what google logging
		// expects
		opts := &slog.HandlerOptions{
			AddSource: true,
			Level:     logLevel,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.MessageKey {
					a.Key = "message"
				} else if a.Key == slog.LevelKey && len(groups) == 0 {
					a.Key = "severity"
				}
				return a
			},
		}
		logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	slog.SetDefault(logger)
	if os.Getenv("DEBUG") == "1" {
		logLevel.Set(slog.LevelDebug)
	}

	misc.LoadEnvSettings(logger)

	// We initialize our wrapper instance first, so we can call its methods in the 'Before' lambda func
	// in initialization of cli App instance.
	appConfig := &SplitApp{logger: logger}

	appConfig.cliCmd = &cli.Command{
		Name:    "nodesplit",
		Usage:   "Calculator emitting terraform variables for validator fleet splits across client pairs and node tiers",
		Version: misc.GetVersionInfo(),
		Before: func(ctx context.Context, cmd *cli.Command) error {
			// Further bootstrap of the 'app' but within context of 'cli' helper as it will
			// have access to flags and options (config path, overrides) already set.
			return appConfig.loadPlanConfig(ctx, cmd)
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "envfile",
				Usage:   "env file to load",
				Sources: cli.EnvVars("NODESPLIT_ENVFILE"),
				Aliases: []string{"e"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "plan configuration file (yaml) - built-in defaults are used when unset",
				Sources: cli.EnvVars("NODESPLIT_CONFIG"),
				Aliases: []string{"c"},
			},
			&cli.UintFlag{
				Name:        "validators",
				Usage:       "Override the total validator count from the plan configuration",
				Sources:     cli.EnvVars("NODESPLIT_VALIDATORS"),
				Destination: &appConfig.totalValidators,
				OnlyOnce:    true,
			},
			&cli.StringFlag{
				Name:    "strategy",
				Usage:   "Tier machine targets: 'fixed' counts, or 'share' of the derived machine total",
				Sources: cli.EnvVars("NODESPLIT_STRATEGY"),
			},
			&cli.StringFlag{
				Name:    "policy",
				Usage:   "Rounding policy: 'largest-remainder' or 'threshold'",
				Sources: cli.EnvVars("NODESPLIT_POLICY"),
			},
		},
		Commands: []*cli.Command{
			GetPlanCmdOpts(),
			GetConfigCmdOpts(),
			GetDaemonCmdOpts(),
		},
	}
	return appConfig
}

type SplitApp struct {
	cliCmd *cli.Command
	logger *slog.Logger

	planConfig *split.Config
	configPath string // resolved plan config path ("" when running on defaults)

	// just here for flag bootstrapping destination
	totalValidators uint64
}

// loadPlanConfig layers the plan configuration for every command: config file
// (or built-in defaults when none exists), then env/flag overrides.
// Validation is deferred to the commands that compute, so 'config init' can
// still run against a broken file.
func (ac *SplitApp) loadPlanConfig(ctx context.Context, cmd *cli.Command) error {
	if envfile := cmd.String("envfile"); envfile != "" {
		misc.Infof(ac.logger, "loading env file:%s", envfile)
		if err := godotenv.Load(envfile); err != nil {
			return err
		}
	}

	path := cmd.String("config")
	explicit := path != ""
	cfg, resolved, err := LoadPlanConfig(path)
	if err != nil {
		if explicit {
			return fmt.Errorf("error loading plan config: %w", err)
		}
		// Nothing at the default location (or an unreadable file there) just
		// means built-in defaults - 'config init' can then write a fresh one.
		if !errors.Is(err, os.ErrNotExist) {
			misc.Warnf(ac.logger, "ignoring plan config at default location: %v", err)
		}
		def := split.DefaultConfig()
		cfg, resolved = &def, ""
	}

	if ac.totalValidators > 0 {
		cfg.TotalValidators = int(ac.totalValidators)
	}
	if s := cmd.String("strategy"); s != "" {
		strategy, err := split.ParseStrategy(s)
		if err != nil {
			return err
		}
		cfg.Strategy = strategy
	}
	if p := cmd.String("policy"); p != "" {
		policy, err := split.ParsePolicy(p)
		if err != nil {
			return err
		}
		cfg.Policy = policy
	}

	ac.planConfig = cfg
	ac.configPath = resolved
	return nil
}

// checkPlanConfig is the 'Before' hook of the commands that actually compute.
func checkPlanConfig(ctx context.Context, command *cli.Command) error {
	if err := App.planConfig.Validate(); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}
