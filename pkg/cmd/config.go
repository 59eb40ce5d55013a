package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentpkg/depresolver/pkg/config"
	"github.com/agentpkg/depresolver/pkg/errs"
)

func addConfigPathFlag(c *cobra.Command) {
	c.Flags().StringP("config-path", "c", config.DefaultFileName, "path to the configuration file")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config-path")
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	loggerFromContext(cmd.Context()).Debug("loaded configuration", "path", cfg.Path())
	return cfg, nil
}

func newPrintConfigCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "print_config",
		Short: "Print the configuration",
		Long:  "Loads the configuration file and prints it, optionally converted to another format.",
		Args:  cobra.NoArgs,
		RunE:  runPrintConfig,
	}
	addConfigPathFlag(c)
	c.Flags().String("format", "", "output format: json, yaml or toml (default: the file's own format)")
	return c
}

func runPrintConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = config.FormatForPath(cfg.Path())
	}

	data, err := cfg.Marshal(format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newValidateConfigCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "validate_config",
		Short: "Check the configuration for missing or invalid attributes",
		Args:  cobra.NoArgs,
		RunE:  runValidateConfig,
	}
	addConfigPathFlag(c)
	return c
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	problems := cfg.Validate()
	if len(problems) == 0 {
		printSuccess(out, "Valid: the configuration at %s doesn't contain any errors.", cfg.Path())
		return nil
	}

	printError(out, "Invalid: the configuration at %s contains %d error(s):", cfg.Path(), len(problems))
	for i, p := range problems {
		fmt.Fprintf(out, "  %d -> %s\n", i+1, p)
	}
	return &errs.ConfigError{Problems: problems}
}
