package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/agentpkg/depresolver/pkg/config"
)

var (
	flagVerbose bool

	// Settings holds the resolved runtime settings, available to all
	// subcommands after PersistentPreRunE completes.
	Settings *config.Settings

	logFile io.Closer
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "resolver",
		Short: "Fetch and resolve external project dependencies",
		Long: `resolver fetches the artifacts a project depends on into a local cache and
places them into the project tree by copying, unzipping or untarring them.`,
		PersistentPreRunE: setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "also write debug logging to stderr")

	root.AddCommand(newPrintConfigCmd())
	root.AddCommand(newValidateConfigCmd())
	root.AddCommand(newUpdateCacheCmd())
	root.AddCommand(newResolveFromCacheCmd())
	root.AddCommand(newResolveCmd())
	root.AddCommand(newCleanCmd())
	root.AddCommand(newInitCmd())

	return root
}

// setup resolves settings and attaches a logger to the command context.
func setup(cmd *cobra.Command, args []string) error {
	flags := map[string]any{"verbose": flagVerbose}
	if f := cmd.Flags().Lookup("cache-root"); f != nil {
		flags["cache_root"] = f.Value.String()
	}
	if f := cmd.Flags().Lookup("project-home"); f != nil {
		flags["project_home"] = f.Value.String()
	}

	s, err := config.LoadSettings(flags)
	if err != nil {
		return err
	}
	Settings = s

	closeLog()
	truncate, _ := cmd.Flags().GetBool("clean")
	f, err := openLogFile(s.LogFile(), s.LogDir, truncate)
	if err != nil {
		return err
	}
	logFile = f

	logger := newLogger(logWriter(f, cmd.ErrOrStderr(), s.Verbose), log.DebugLevel)
	if truncate {
		logger.Debug("cleaned log file")
	}
	logger.Debug("running command", "command", cmd.CommandPath(), "cache_root", s.CacheRoot, "home", s.Home)
	cmd.SetContext(withLogger(cmd.Context(), logger))
	return nil
}

func closeLog() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Execute runs the command tree with a context that is cancelled on SIGINT
// or SIGTERM, and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := NewRootCmd()
	c, err := root.ExecuteContextC(ctx)
	stop()
	if err != nil {
		if c != nil && c.Context() != nil {
			loggerFromContext(c.Context()).Error("command failed", "err", err)
		}
		printError(root.ErrOrStderr(), "%v", err)
	}
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}
