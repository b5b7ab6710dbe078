package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/blocktype"
)

var blocksJSON bool

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Inspect registered block types",
}

var blocksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered block types",
	Long: `List the block types registered from the built-in library and the
configured block directories.

Examples:
  blockpress blocks list
  blockpress blocks list --json`,
	Args: cobra.NoArgs,
	RunE: runBlocksList,
}

var blocksShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one block type's attributes and supports",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlocksShow,
}

func init() {
	blocksListCmd.Flags().BoolVar(&blocksJSON, "json", false, "Print as JSON")
	blocksCmd.AddCommand(blocksListCmd)
	blocksCmd.AddCommand(blocksShowCmd)
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()
	return fn(ctx, a)
}

func runBlocksList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		names := a.registry.Names()
		if blocksJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(names)
		}

		t := newTableData("Name", "Title", "Category", "Kind", "Variations")
		for _, name := range names {
			def := a.registry.Get(name)
			if def == nil {
				continue
			}
			kind := "static"
			if def.IsDynamic() {
				kind = "dynamic"
			}
			t.addRow(def.Name, def.Title, def.Category, kind, fmt.Sprint(len(def.GetVariations(ctx))))
		}
		printTable(cmd.OutOrStdout(), t)
		return nil
	})
}

func runBlocksShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		def := a.registry.Get(args[0])
		if def == nil {
			def = a.registry.Get("core/" + args[0])
		}
		if def == nil {
			return fmt.Errorf("block type %q is not registered", args[0])
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s (%s)\n", def.Name, def.Title)
		if def.Description != "" {
			fmt.Fprintln(w, def.Description)
		}
		fmt.Fprintln(w)

		t := newTableData("Attribute", "Type", "Default")
		for _, name := range sortedAttributeNames(def) {
			spec := def.Attributes[name]
			dflt := ""
			if spec.Default != nil {
				dflt = attr.Marshal(*spec.Default)
			}
			t.addRow(name, strings.Join(spec.Type, "|"), dflt)
		}
		printTable(w, t)

		supports, err := json.MarshalIndent(def.Supports, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nsupports: %s\n", supports)
		return nil
	})
}

func sortedAttributeNames(def *blocktype.Definition) []string {
	return slices.Sorted(maps.Keys(def.Attributes))
}
