// Command meshbbs runs the Mesh-BBS over the HTTP gateway or a local console.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"meshbbs/internal/app"
	"meshbbs/pkg/config"
	"meshbbs/pkg/logger"
	"meshbbs/pkg/state"
	"meshbbs/pkg/state/shutdown"
	"meshbbs/pkg/transport"
)

// set build metadata
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 20 * time.Second

var (
	flags = config.Flags{Set: map[string]bool{}}

	rootCmd = &cobra.Command{
		Use:           "meshbbs",
		Short:         "A bulletin board and games host for mesh radio networks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			for _, name := range []string{"addr", "data-dir", "config", "transport", "log-level"} {
				flags.Set[name] = cmd.Flags().Changed(name)
			}
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the BBS with health, metrics and the packet gateway.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eff := loadConfig(nil)
			initLogger(eff, false)
			return run(eff, app.Options{})
		},
	}

	consoleAs  string
	consoleCmd = &cobra.Command{
		Use:   "console",
		Short: "Talk to the BBS over stdin and stdout as a single identity.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eff := loadConfig(func(c *config.Config) {
				c.Transport.Kind = config.TransportConsole
				if c.Transport.ChunkDelay == nil {
					zero := config.Duration(0)
					c.Transport.ChunkDelay = &zero
				}
			})
			initLogger(eff, true)
			return run(eff, app.Options{
				Link:        transport.NewConsole(consoleAs, os.Stdin, os.Stdout),
				DisableHTTP: true,
				BannerOut:   os.Stderr,
			})
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.Addr, "addr", "", "HTTP listen address (host:port)")
	pf.StringVar(&flags.DataDir, "data-dir", "", "directory for board data and crash dumps")
	pf.StringVar(&flags.Config, "config", "", "path to a YAML config file")
	pf.StringVar(&flags.Transport, "transport", "", "packet link: http or console")
	pf.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error")

	consoleCmd.Flags().StringVar(&consoleAs, "as", "!console", "identity to send packets as")

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version, commit, buildDate)
	rootCmd.AddCommand(serveCmd, consoleCmd, inspectCmd)
}

func main() {
	// load .env file if present
	_ = godotenv.Load(".env")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges file, env and flags, lets adjust tweak the result and
// validates it. Any failure aborts the process.
func loadConfig(adjust func(*config.Config)) config.EffectiveConfigResult {
	fileCfg, fileExists, err := config.ParseConfigFile(flags)
	if err != nil {
		shutdown.Abort("failed to load config file", err, flags.DataDir)
	}

	envCfg, envRes := config.ParseConfigEnvs()

	eff, err := config.LoadEffectiveConfig(flags, fileCfg, fileExists, envCfg, envRes)
	if err != nil {
		shutdown.Abort("failed to build effective config", err, flags.DataDir)
	}
	if adjust != nil {
		adjust(eff.Config)
	}

	if err := config.ValidateConfig(eff); err != nil {
		shutdown.Abort("invalid configuration", err, eff.Config.Data.Dir)
	}
	eff.Addr = eff.Config.Addr()
	eff.DataDir = eff.Config.Data.Dir
	return eff
}

// initLogger starts the global logger. Console sessions log to stderr so
// replies stay readable on stdout.
func initLogger(eff config.EffectiveConfigResult, console bool) {
	if console && os.Getenv("MESHBBS_LOG_SINK") == "" {
		logger.InitTo(os.Stderr, eff.Config.Logging.Level)
	} else {
		logger.Init(eff.Config.Logging.Level)
	}
	logger.Info("effective_config_loaded", "source", eff.Source, "addr", eff.Addr, "data_dir", eff.DataDir)
	logger.Info("config_validation_passed")
	logger.Info("system_logical_cores", "logical_cores", runtime.NumCPU())
}

func run(eff config.EffectiveConfigResult, opts app.Options) error {
	defer logger.Sync()

	if err := state.Init(eff.DataDir); err != nil {
		logger.Error("state_dirs_setup_failed", "error", err)
		shutdown.Abort(fmt.Sprintf("failed to ensure state directories under %s", eff.DataDir), err, eff.DataDir)
	}

	// set up context and signal handling for graceful shutdown
	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	opts.Version = versionString()
	a, err := app.New(ctx, eff, opts)
	if err != nil {
		shutdown.Abort("failed to initialize app", err, eff.DataDir)
	}

	runErr := a.Run(ctx)
	if runErr != nil {
		logger.Error("app_run_failed", "error", runErr)
	}

	// bounded so teardown cannot hang forever
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := a.Shutdown(shutdownCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func versionString() string {
	v := version
	if commit != "none" {
		v += " (" + commit + ")"
	}
	if buildDate != "unknown" {
		v += " @ " + buildDate
	}
	return v
}
