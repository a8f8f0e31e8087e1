package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/macroviewer/pkg/io"
	"github.com/matzehuels/macroviewer/pkg/pipeline"
)

// layoutCommand creates the layout command, which writes settled node
// positions instead of a picture.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		view    viewFlags
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "layout [dataset]",
		Short: "Compute settled node positions as JSON",
		Long: `Compute settled node positions for a filtered view.

The output lists every visible country with its x/y position, radius and
pin state, plus the viewport and year. Use it to feed another renderer or
to compare layouts between dataset versions.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.source(args)
			if err != nil {
				return err
			}
			c.applyConfig(cmd, &opts)
			actions, err := view.actions()
			if err != nil {
				return err
			}
			opts.Source = src
			opts.Actions = actions
			return c.runLayout(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	view.register(cmd.Flags())
	addLayoutFlags(cmd, &opts)

	return cmd
}

// runLayout loads and settles the view and writes its positions.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Client = c.newClient(runner.Cache)

	st := newStage(c.Logger, "load")
	loaded, err := runner.Load(ctx, opts)
	if err != nil {
		return err
	}
	st.done("loaded dataset", "nodes", len(loaded.Dataset.Nodes))

	spinner := newSpinner(ctx, "Settling layout...")
	spinner.Start()
	st = newStage(c.Logger, "settle")
	settled, err := runner.Settle(ctx, loaded, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()
	defer settled.Controller.Close()
	st.done("settled layout", "ticks", settled.Ticks, "cached", settled.Hit)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	frame := settled.Controller.Frame()

	if output == "" {
		return io.WritePositions(out, frame)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	defer f.Close()
	if err := io.WritePositions(f, frame); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(frame.Stats.Countries, frame.Stats.Links, settled.Ticks, settled.Hit)
	printNewline()
	printNextStep("Render", "macroviewer render "+opts.Source)
	return nil
}
