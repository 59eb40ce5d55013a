package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/agentpkg/depresolver/pkg/cache"
	"github.com/agentpkg/depresolver/pkg/errs"
	"github.com/agentpkg/depresolver/pkg/project"
)

func addCacheRootFlag(c *cobra.Command) {
	c.Flags().StringP("cache-root", "R", "", "root directory of the cache (default: ./resolverCache)")
}

func addProjectHomeFlag(c *cobra.Command) {
	c.Flags().String("project-home", "", "directory target_dir entries are relative to (default: the configuration file's directory)")
}

// openProject loads the configuration and builds a project on the cache
// named by the settings.
func openProject(cmd *cobra.Command) (*project.Project, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(Settings.CacheRoot)
	if err != nil {
		return nil, err
	}

	opts := []project.Option{
		project.WithReporter(&styledReporter{w: cmd.OutOrStdout()}),
		project.WithLogger(loggerFromContext(cmd.Context())),
	}
	if Settings.ProjectHome != "" {
		opts = append(opts, project.WithHomeDir(Settings.ProjectHome))
	}

	p, err := project.New(cfg, c, opts...)
	if err != nil {
		if errs.IsConfig(err) {
			printWarning(cmd.ErrOrStderr(), "There are errors in the configuration. To view them run the validate_config command.")
		}
		return nil, err
	}
	return p, nil
}

func newUpdateCacheCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "update_cache",
		Short: "Download sources into the cache",
		Long:  "Fetches the source artifact of every dependency into the cache. Artifacts already cached are kept unless --force is given.",
		Args:  cobra.NoArgs,
		RunE:  runUpdateCache,
	}
	addConfigPathFlag(c)
	addCacheRootFlag(c)
	c.Flags().Bool("force", false, "fetch every source even if it is already cached")
	c.Flags().Bool("clean", false, "empty the cache and the log file before fetching")
	return c
}

func runUpdateCache(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}

	clean, _ := cmd.Flags().GetBool("clean")
	force, _ := cmd.Flags().GetBool("force")

	if clean {
		if err := p.Clean(); err != nil {
			return err
		}
		printInfo(cmd.OutOrStdout(), "Cleaned cache %s", p.Cache().Path())
	}

	report := p.FetchDependencies(cmd.Context(), force)
	return printSummary(cmd.OutOrStdout(), "fetch", report)
}

func newResolveFromCacheCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "resolve_from_cache",
		Short: "Place cached sources into the project",
		Long:  "Resolves every dependency from the cache without fetching. Run update_cache first.",
		Args:  cobra.NoArgs,
		RunE:  runResolveFromCache,
	}
	addConfigPathFlag(c)
	addCacheRootFlag(c)
	addProjectHomeFlag(c)
	c.Flags().Bool("only-missing", false, "skip copies whose target already exists (archives are always extracted)")
	return c
}

func runResolveFromCache(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}

	onlyMissing, _ := cmd.Flags().GetBool("only-missing")
	report := p.ResolveFetchedDependencies(cmd.Context(), onlyMissing)
	return printSummary(cmd.OutOrStdout(), "resolve", report)
}

func newResolveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "resolve",
		Short: "Fetch and then resolve every dependency",
		Args:  cobra.NoArgs,
		RunE:  runResolve,
	}
	addConfigPathFlag(c)
	addCacheRootFlag(c)
	addProjectHomeFlag(c)
	c.Flags().Bool("force", false, "fetch every source even if it is already cached")
	c.Flags().Bool("only-missing", false, "skip copies whose target already exists (archives are always extracted)")
	return c
}

func runResolve(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	onlyMissing, _ := cmd.Flags().GetBool("only-missing")

	fetch, resolve := p.ResolveDependencies(cmd.Context(), force, onlyMissing)
	out := cmd.OutOrStdout()
	fetchErr := printSummary(out, "fetch", fetch)
	resolveErr := printSummary(out, "resolve", resolve)
	if resolveErr != nil {
		return resolveErr
	}
	return fetchErr
}

func newCleanCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "clean",
		Short: "Empty the project's cache",
		Args:  cobra.NoArgs,
		RunE:  runClean,
	}
	addConfigPathFlag(c)
	addCacheRootFlag(c)
	c.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return c
}

func runClean(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		confirmed, err := confirm(fmt.Sprintf("Remove everything in %s?", p.Cache().Path()))
		if err != nil {
			return err
		}
		if !confirmed {
			printInfo(cmd.OutOrStdout(), "Nothing removed")
			return nil
		}
	}

	if err := p.Clean(); err != nil {
		return err
	}
	printSuccess(cmd.OutOrStdout(), "Cleaned cache %s", p.Cache().Path())
	return nil
}

// confirm asks a yes/no question with huh.
func confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return ok, nil
}
