package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/blockpress/interactivity"
	"github.com/jonwraymond/blockpress/render"
)

var renderNoScript bool

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render block content to HTML",
	Long: `Render block content from a file or stdin to HTML.

Dynamic blocks such as core/latest-posts read from the configured database.

Examples:
  # Render a post
  blockpress render post.html

  # Render from stdin without the interactivity data script
  echo '<!-- wp:disclosure /-->' | blockpress render --no-script`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&renderNoScript, "no-script", false, "Omit the interactivity client data script")
}

func runRender(cmd *cobra.Command, args []string) error {
	content, err := readInput(cmd, args)
	if err != nil {
		return err
	}
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

	html, err := a.renderDocument(ctx, content, !renderNoScript)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
	return err
}

// renderDocument renders content with its own interactivity store.
func (a *app) renderDocument(ctx context.Context, content string, script bool) (string, error) {
	state := interactivity.NewStore(a.logger)
	opts := []render.Option{
		render.WithHooks(a.render),
		render.WithFeatures(a.features),
		render.WithMiddleware(a.mw),
		render.WithLogger(a.logger),
	}
	if a.cfg.Server.Render.Interactivity {
		opts = append(opts, render.WithInteractivity(interactivity.NewProcessor(state, a.logger)))
	}
	r := render.New(a.registry, opts...)

	html, err := r.RenderContent(interactivity.WithStore(ctx, state), content)
	if err != nil || !script {
		return html, err
	}
	data, err := state.ClientDataScript()
	if err != nil {
		return "", err
	}
	return html + data, nil
}
