package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/pipeline"
)

// inspectCommand creates the inspect command: the viewer's panels as
// terminal tables.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		country string
		noCache bool
		view    viewFlags
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "inspect [dataset] [iso2]",
		Short: "Print view stats, legend, top producers or a country panel",
		Long: `Print the panels of a filtered view as tables.

Without --country the header counters, the lens legend and, under a sector
lens, the top-10 producer ranking are shown. With --country the country
panel (trade totals, partners, sectors, blocs and provenance) is shown for
the selected year.`,
		Example: `  macroviewer inspect data/macro.json --sector semiconductors
  macroviewer inspect data/macro.json --country DE --year 2022
  macroviewer inspect data/macro.json JP`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 && country == "" {
				country = args[1]
			}
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
			return c.runInspect(cmd.Context(), opts, strings.ToUpper(country), noCache)
		},
	}

	cmd.Flags().StringVarP(&country, "country", "c", "", "show the panel of one country (iso2)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	view.register(cmd.Flags())
	addLayoutFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, opts pipeline.Options, country string, noCache bool) error {
	if country != "" {
		if err := errors.ValidateISO2(country); err != nil {
			return err
		}
	}
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Client = c.newClient(runner.Cache)

	loaded, err := runner.Load(ctx, opts)
	if err != nil {
		return err
	}
	// Panels do not depend on positions; a single tick is enough.
	opts.Ticks = 1
	settled, err := runner.Settle(ctx, loaded, opts)
	if err != nil {
		return err
	}
	defer settled.Controller.Close()

	if country != "" {
		d, err := settled.Controller.Detail(country)
		if err != nil {
			return err
		}
		printDetailPanel(d)
		return nil
	}
	printFramePanels(settled.Controller.Frame())
	return nil
}

func printFramePanels(f engine.Frame) {
	printKeyValue("Year", f.Labels.Year)
	printKeyValue("Direction", f.Labels.Direction)
	printKeyValue("Threshold", f.Labels.Threshold)
	printKeyValue("Blocs", f.Labels.Bloc)
	printKeyValue("Countries", strconv.Itoa(f.Stats.Countries))
	printKeyValue("Links", strconv.Itoa(f.Stats.Links))
	printKeyValue("GDP", f.Stats.GDP)
	if f.Labels.LastUpdated != "" {
		printKeyValue("Updated", f.Labels.LastUpdated)
	}
	printNewline()

	legend := newTable("Lens", "Top producer", "Total", "Note")
	legend.Row(f.Legend.Title, f.Legend.TopProducer, f.Legend.Total, f.Legend.Note)
	printTable("Legend", legend)

	if f.Top10.Message != "" {
		printInfo("%s", f.Top10.Message)
	}
	if len(f.Top10.Rows) == 0 {
		return
	}
	printNewline()
	top := newTable("#", "Country", "Share", "Value", "")
	for _, r := range f.Top10.Rows {
		top.Row(strconv.Itoa(r.Rank), r.Flag+" "+r.Name, fmt.Sprintf("%d%%", r.SharePct), r.ValueLabel, r.Badge)
	}
	printTable("Top producers: "+f.Top10.Sector, top)
}

func printDetailPanel(d engine.Detail) {
	fmt.Fprintln(out, StyleTitle.Render(d.Flag+" "+d.Name)+"  "+StyleDim.Render(d.Codes))
	printKeyValue("GDP", d.GDP)
	printKeyValue("Exports", d.Exports)
	printKeyValue("Imports", d.Imports)
	printKeyValue("Balance", d.Balance)
	printNewline()

	if len(d.Partners) > 0 {
		t := newTable("Partner", "Trade")
		for _, p := range d.Partners {
			t.Row(p.Name+" ("+p.ISO2+")", p.Trade)
		}
		printTable("Top partners", t)
	}
	if d.PartnersNote != "" {
		printDetail("%s", d.PartnersNote)
	}
	if len(d.Focus) > 0 {
		printRows("Sector focus", d.Focus)
	}
	if len(d.Sectors) > 0 {
		t := newTable("Sector", "Rank", "Value")
		for _, s := range d.Sectors {
			t.Row(s.Name, "#"+strconv.Itoa(s.Rank), s.Label)
		}
		printTable("Sectors", t)
	}
	if len(d.Blocs) > 0 {
		t := newTable("Bloc", "Members")
		for _, b := range d.Blocs {
			t.Row(b.Name, strconv.Itoa(b.Members))
		}
		printTable("Trade blocs", t)
	}
	if len(d.Provenance) > 0 {
		printRows("Data provenance", d.Provenance)
	}
}

func printRows(title string, rows []engine.Row) {
	t := newTable("", "")
	for _, r := range rows {
		t.Row(r.Label, r.Value)
	}
	printTable(title, t)
}
