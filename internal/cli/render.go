package cli

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/macroviewer/pkg/io"
	"github.com/matzehuels/macroviewer/pkg/pipeline"
	"github.com/matzehuels/macroviewer/pkg/render"
)

// renderOpts holds the flags of the render command that are not pipeline
// options themselves.
type renderOpts struct {
	output  string
	formats string
	noCache bool
	view    viewFlags
}

// renderCommand creates the render command: settle a view headlessly and
// write it in one or more formats.
func (c *CLI) renderCommand() *cobra.Command {
	var ro renderOpts
	opts := pipeline.Options{Panels: true}

	cmd := &cobra.Command{
		Use:   "render [dataset]",
		Short: "Render a filtered trade view to SVG, JSON, DOT, PDF or PNG",
		Long: `Render a filtered trade view.

The dataset is a local macro.json or an http(s) URL. Filter flags select
the view the same way the browser controls do; the force layout settles
for a fixed tick budget with a fixed seed, so the same flags give the same
picture.

Settled layouts and rendered artifacts are cached, so re-rendering an
unchanged view is instant.`,
		Example: `  macroviewer render data/macro.json
  macroviewer render data/macro.json --sector semiconductors --bloc eu -f svg,png
  macroviewer render https://example.org/macro.json --year 2022 --direction exports -o out/trade`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.source(args)
			if err != nil {
				return err
			}
			c.applyConfig(cmd, &opts)
			return c.runRender(cmd.Context(), src, opts, ro)
		},
	}

	cmd.Flags().StringVarP(&ro.output, "output", "o", "", "output file (single format) or base path (default: <dataset>.<ext>)")
	cmd.Flags().StringVarP(&ro.formats, "format", "f", "", "output format(s): svg (default), json, dot, dot-svg, pdf, png (comma-separated)")
	cmd.Flags().BoolVar(&ro.noCache, "no-cache", false, "disable caching")
	ro.view.register(cmd.Flags())
	addLayoutFlags(cmd, &opts)

	cmd.Flags().StringVar(&opts.Title, "title", "", "title in the header band")
	cmd.Flags().BoolVar(&opts.Panels, "panels", opts.Panels, "draw header, legend and top-10 panels")
	cmd.Flags().BoolVar(&opts.Labels, "labels", false, "draw the GDP line under country names")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "GDP and rank lines in Graphviz labels")
	cmd.Flags().Float64Var(&opts.Scale, "scale", pipeline.DefaultScale, "PNG resolution multiplier")

	return cmd
}

// addLayoutFlags registers the viewport and simulation flags shared by
// render, layout and inspect.
func addLayoutFlags(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().Float64Var(&opts.Width, "width", pipeline.DefaultWidth, "viewport width")
	cmd.Flags().Float64Var(&opts.Height, "height", pipeline.DefaultHeight, "viewport height")
	cmd.Flags().Int64Var(&opts.Seed, "seed", pipeline.DefaultSeed, "layout seed")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", pipeline.DefaultTicks, "simulation tick budget")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "refetch remote datasets and recompute the layout")
}

// applyConfig fills pipeline options the user did not set from the config
// file.
func (c *CLI) applyConfig(cmd *cobra.Command, opts *pipeline.Options) {
	view := c.Config.View
	if !cmd.Flags().Changed("width") && view.Width > 0 {
		opts.Width = view.Width
	}
	if !cmd.Flags().Changed("height") && view.Height > 0 {
		opts.Height = view.Height
	}
	if !cmd.Flags().Changed("seed") && view.Seed != 0 {
		opts.Seed = view.Seed
	}
	if !cmd.Flags().Changed("ticks") && view.Ticks > 0 {
		opts.Ticks = view.Ticks
	}
}

// runRender settles the view and writes every requested format.
func (c *CLI) runRender(ctx context.Context, src string, opts pipeline.Options, ro renderOpts) error {
	formats, err := render.ParseFormats(ro.formats)
	if err != nil {
		return err
	}
	actions, err := ro.view.actions()
	if err != nil {
		return err
	}
	opts.Source = src
	opts.Formats = formats
	opts.Actions = actions

	runner, err := c.newRunner(ctx, ro.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Client = c.newClient(runner.Cache)

	spinner := newSpinner(ctx, "Settling layout...")
	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	base := basePath(ro.output, src)
	var written []string
	for _, f := range formats {
		p := base + f.Ext()
		if len(formats) == 1 && ro.output != "" {
			p = ro.output
		}
		if err := io.ExportArtifact(p, result.Artifacts[f]); err != nil {
			return err
		}
		written = append(written, p)
	}

	printSuccess("Render complete")
	for _, p := range written {
		printFile(p)
	}
	printStats(result.Frame.Stats.Countries, result.Frame.Stats.Links, result.Stats.Ticks,
		result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	return nil
}

// basePath derives the output path without extension. A known format
// extension on output is stripped; without output the dataset name is
// used, or "macroviewer" for URLs without a usable file name.
func basePath(output, src string) string {
	if output != "" {
		ext := ""
		for _, f := range render.Formats {
			if strings.HasSuffix(output, f.Ext()) && len(f.Ext()) > len(ext) {
				ext = f.Ext()
			}
		}
		return strings.TrimSuffix(output, ext)
	}
	name := src
	if io.IsRemote(src) {
		u, err := url.Parse(src)
		if err != nil {
			return appName
		}
		name = path.Base(u.Path)
		if name == "." || name == "/" || !strings.Contains(name, ".") {
			return appName
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
