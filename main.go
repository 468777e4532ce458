package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kairos-io/zfs-keyfile/bus"
	"github.com/kairos-io/zfs-keyfile/collector"
	"github.com/kairos-io/zfs-keyfile/config"
	"github.com/kairos-io/zfs-keyfile/constants"
	"github.com/kairos-io/zfs-keyfile/keyfile"
	"github.com/kairos-io/zfs-keyfile/state"
	"github.com/kairos-io/zfs-keyfile/types"
	"github.com/mudler/go-pluggable"
	"github.com/pterm/pterm"
	"github.com/twpayne/go-vfs/v4"
	"github.com/urfave/cli/v2"
)

var (
	version = "v0.0.0"
	commit  = "unknown"
)

var (
	configFlag = &cli.StringSliceFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "job configuration file, can be repeated (later files win)",
	}
	stateFlag = &cli.StringFlag{
		Name:  "state",
		Usage: "pipeline state file (YAML or JSON), updated in place",
	}
	alwaysPromptFlag = &cli.BoolFlag{
		Name:  "always-prompt",
		Usage: "prompt even if no encrypted pool was detected",
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: []string{"ZFS_KEYFILE_LOG_LEVEL"},
		Usage:   "log level (trace, debug, info, warn, error)",
	}
	providerPathFlag = &cli.StringSliceFlag{
		Name:  "provider-path",
		Usage: "where to look for provider executables",
	}
	providerPrefixFlag = &cli.StringFlag{
		Name:  "provider-prefix",
		Value: "installer-provider",
		Usage: "prefix of the provider executables",
	}
)

func newJob(logger types.Logger) bus.JobFactory {
	return func(cfg config.ModuleConfig, st *state.Store) *keyfile.Job {
		return &keyfile.Job{
			Config: cfg,
			State:  st,
			Fs:     vfs.OSFS,
			Runner: types.NewExecRunner(logger),
			Logger: logger,
		}
	}
}

func loadState(path string) (*state.Store, error) {
	if path == "" {
		return state.New(), nil
	}
	return state.Load(vfs.OSFS, path)
}

// configOptions turns command line overrides into collector options.
func configOptions(c *cli.Context) []collector.Option {
	var opts []collector.Option
	if c.Bool(alwaysPromptFlag.Name) {
		opts = append(opts, collector.Overwrites("alwaysPrompt: true"))
	}
	return opts
}

func loadConfig(c *cli.Context, logger types.Logger) (config.ModuleConfig, error) {
	return config.Load(logger, c.StringSlice(configFlag.Name), configOptions(c)...)
}

// jobExit turns a job failure into the exit error printed by the cli.
func jobExit(err error) error {
	var jobErr *keyfile.JobError
	if errors.As(err, &jobErr) {
		pterm.Error.WithPrefix(pterm.Prefix{Text: jobErr.Title, Style: pterm.Error.Prefix.Style}).Println(jobErr.Description)
		return cli.Exit("", 1)
	}
	return err
}

func runCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "ask for the ZFS passphrase and stage it for keyfile creation",
		Flags: []cli.Flag{configFlag, stateFlag, alwaysPromptFlag, logLevelFlag},
		Action: func(c *cli.Context) error {
			logger := types.NewLogger(constants.LoggerName, c.String(logLevelFlag.Name), false)
			defer logger.Close()

			cfg, err := loadConfig(c, logger)
			if err != nil {
				return err
			}
			st, err := loadState(c.String(stateFlag.Name))
			if err != nil {
				return err
			}

			logger.Logger.Debug().Strs("keys", st.Keys()).Msg("Loaded pipeline state")
			runErr := newJob(logger)(cfg, st).Run(ctx)

			if path := c.String(stateFlag.Name); path != "" {
				if err := st.Save(vfs.OSFS, path); err != nil {
					return err
				}
			}
			if runErr != nil {
				return jobExit(runErr)
			}
			if st.Contains(constants.StateKeyPassphraseFile) {
				pterm.Success.Printfln("Passphrase staged at %v", st.Value(constants.StateKeyPassphraseFile))
			}
			return nil
		},
	}
}

func providerCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:      "provider",
		Usage:     "answer an installer event as a plugin, the event is read from stdin",
		ArgsUsage: "EVENT",
		Flags:     []cli.Flag{logLevelFlag},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("expected exactly one event name", 1)
			}
			// stdout carries the response, keep the console quiet.
			logger := types.NewLogger(constants.LoggerName, c.String(logLevelFlag.Name), true)
			defer logger.Close()

			p := bus.NewProvider(ctx, newJob(logger))
			return p.Run(pluggable.EventType(c.Args().First()), os.Stdin, os.Stdout)
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "publish the keyfile event to the installed providers and merge their state",
		Flags: []cli.Flag{configFlag, stateFlag, alwaysPromptFlag, logLevelFlag, providerPathFlag, providerPrefixFlag},
		Action: func(c *cli.Context) error {
			logger := types.NewLogger(constants.LoggerName, c.String(logLevelFlag.Name), false)
			defer logger.Close()

			cfg, err := loadConfig(c, logger)
			if err != nil {
				return err
			}
			st, err := loadState(c.String(stateFlag.Name))
			if err != nil {
				return err
			}

			opts := []bus.Options{bus.WithLogger(logger), bus.WithProviderPrefix(c.String(providerPrefixFlag.Name))}
			if paths := c.StringSlice(providerPathFlag.Name); len(paths) > 0 {
				opts = append(opts, bus.WithProviderPaths(paths...))
			}
			b := bus.NewBus()
			b.Initialize(opts...)
			if len(b.Providers()) == 0 {
				return cli.Exit("no providers found", 1)
			}

			replies, err := b.Publish(bus.EventKeyfilePassphrase, bus.KeyfilePayload{
				Config: map[string]interface{}{"alwaysPrompt": cfg.AlwaysPrompt, "allowTerminal": cfg.AllowTerminal, "dialogArgs": cfg.DialogArgs},
				State:  st.Map(),
			})
			if err != nil {
				return err
			}

			var failed *keyfile.JobError
			for _, r := range replies {
				for k, v := range r.Response.State {
					st.Insert(k, v)
				}
				if r.State == bus.EventResponseError && failed == nil {
					failed = &keyfile.JobError{Title: r.Response.Title, Description: r.Response.Description, Err: errors.New(r.Error)}
				}
				logger.Logger.Info().Str("provider", r.Plugin).Str("job", r.Response.Name).Str("state", r.State).Msg("Provider answered")
			}

			if path := c.String(stateFlag.Name); path != "" {
				if err := st.Save(vfs.OSFS, path); err != nil {
					return err
				}
			}
			if failed != nil {
				return jobExit(failed)
			}
			return nil
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "query the pipeline state, e.g. zfsDatasets[0].mountpoint, lists the keys without a query",
		ArgsUsage: "[QUERY]",
		Flags:     []cli.Flag{stateFlag},
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return cli.Exit("expected at most one query", 1)
			}
			st, err := loadState(c.String(stateFlag.Name))
			if err != nil {
				return err
			}
			if c.NArg() == 0 {
				for _, k := range st.Keys() {
					fmt.Println(k)
				}
				return nil
			}
			res, err := st.Query(c.Args().First())
			if err != nil {
				return err
			}
			fmt.Println(res)
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:      "config",
		Usage:     "print the merged job configuration, or query it, e.g. dialogArgs",
		ArgsUsage: "[QUERY]",
		Flags:     []cli.Flag{configFlag, alwaysPromptFlag, logLevelFlag},
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return cli.Exit("expected at most one query", 1)
			}
			logger := types.NewLogger(constants.LoggerName, c.String(logLevelFlag.Name), false)
			defer logger.Close()

			merged, err := config.Collect(logger, c.StringSlice(configFlag.Name), configOptions(c)...)
			if err != nil {
				return err
			}
			if _, err := config.FromValues(merged.Values); err != nil {
				return err
			}

			var out string
			if c.NArg() == 1 {
				out, err = merged.Query(c.Args().First())
			} else {
				out, err = merged.String()
			}
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "zfs-keyfile",
		Usage: constants.PrettyName + ": stage the ZFS encryption passphrase for keyfile creation during installation",
		Commands: []*cli.Command{
			runCommand(ctx),
			configCommand(),
			providerCommand(ctx),
			publishCommand(),
			queryCommand(),
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(_ *cli.Context) error {
					fmt.Printf("zfs-keyfile %s (commit: %s)\n", version, commit)
					return nil
				},
			},
			{
				Name:  "schema",
				Usage: "print the JSON schema of the job configuration",
				Action: func(_ *cli.Context) error {
					s, err := config.Schema()
					if err != nil {
						return err
					}
					fmt.Println(string(s))
					return nil
				},
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
