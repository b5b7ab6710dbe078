package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/blockpress/config"
)

var (
	configForce        bool
	configSchemaOutput string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to the file named by --config, or
$XDG_CONFIG_HOME/blockpress/config.yaml.

Examples:
  blockpress config init
  blockpress config init --config ./blockpress.yaml --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration JSON schema",
	Long: `Print the JSON schema of the configuration file. Editors with YAML
language server support can use it for completion and validation.

Examples:
  blockpress config schema --output blockpress.schema.json`,
	Args: cobra.NoArgs,
	RunE: runConfigSchema,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and BLOCKPRESS_* environment
overrides are applied.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file")
	configSchemaCmd.Flags().StringVarP(&configSchemaOutput, "output", "o", "", "Write the schema to a file instead of stdout")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSchemaCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := config.Save(config.Default(), path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	return nil
}

func runConfigSchema(cmd *cobra.Command, args []string) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}
	if configSchemaOutput == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
		return err
	}
	if err := os.WriteFile(configSchemaOutput, schema, 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", configSchemaOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	source := cfg.Source
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (%s)\n", source)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
