package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/agentpkg/depresolver/pkg/cache"
	"github.com/agentpkg/depresolver/pkg/config"
	"github.com/agentpkg/depresolver/pkg/project"
)

func newInitCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "init [name]",
		Short: "Create a new resolver configuration",
		Long:  "Creates a resolver.json skeleton in the current directory and configures .gitignore entries.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
		// init writes no logs; skip the root PersistentPreRunE.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), log.New(io.Discard)))
			return nil
		},
	}
	c.Flags().StringP("cache-root", "R", "", "cache root to record in "+config.LocalSettingsFile)
	c.Flags().BoolP("yes", "y", false, "add .gitignore entries without asking")
	return c
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	name := project.InferName(wd)
	if len(args) == 1 {
		name = args[0]
	}

	out := cmd.OutOrStdout()
	if _, err := project.Init(wd, name); err != nil {
		return err
	}
	printSuccess(out, "Created %s", config.DefaultFileName)

	entries := []string{cache.DefaultDirName + "/", config.LocalSettingsFile}

	cacheRoot, _ := cmd.Flags().GetString("cache-root")
	if cacheRoot != "" {
		abs, err := filepath.Abs(cacheRoot)
		if err != nil {
			return fmt.Errorf("resolving cache root: %w", err)
		}
		if err := config.WriteLocalSettings(wd, &config.Settings{CacheRoot: abs}); err != nil {
			return err
		}
		printSuccess(out, "Created %s", config.LocalSettingsFile)
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		ok, err := confirm(fmt.Sprintf("Add %s and %s to .gitignore?", entries[0], entries[1]))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	added, err := project.EnsureGitignore(wd, entries)
	if err != nil {
		return err
	}
	for _, entry := range added {
		printDetail(out, "Added %s to .gitignore", entry)
	}

	return nil
}
