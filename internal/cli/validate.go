package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/io"
)

// validateCommand creates the validate command. It reports what
// normalization repaired and checks the strict data contract.
func (c *CLI) validateCommand() *cobra.Command {
	var lenient bool

	cmd := &cobra.Command{
		Use:   "validate [dataset]",
		Short: "Check a dataset against the data contract",
		Long: `Check a dataset.

Loading always repairs what it can: nodes without an iso2, links to
unknown countries, unrecognized directions and provenances, non-integer
year keys. validate lists those repairs and then checks the strict
contract (positive GDP, no placeholder codes, no estimated values, 1 to 10
producers per list). It exits non-zero on any violation, or on any repair
unless --lenient is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.source(args)
			if err != nil {
				return err
			}
			return c.runValidate(cmd.Context(), src, lenient)
		},
	}
	cmd.Flags().BoolVar(&lenient, "lenient", false, "accept datasets that needed repairs")
	return cmd
}

func (c *CLI) runValidate(ctx context.Context, src string, lenient bool) error {
	store, err := c.openCache(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	loaded, err := io.Load(ctx, src, c.newClient(store))
	if err != nil {
		return err
	}
	d := loaded.Dataset
	printKeyValue("Source", src)
	printKeyValue("Countries", fmt.Sprint(len(d.Nodes)))
	printKeyValue("Links", fmt.Sprint(len(d.Links)))
	printKeyValue("Sectors", fmt.Sprint(len(d.Sectors)))
	printKeyValue("Years", fmt.Sprint(d.AvailableYears))
	printNewline()

	repaired := printReport(loaded.Report)

	verr := dataset.Validate(d)
	violations := dataset.Violations(verr)
	if verr != nil && violations == nil {
		return verr
	}
	if len(violations) > 0 {
		t := newTable("Field", "Rule", "Value")
		for _, v := range violations {
			rule := v.Rule
			if v.Param != "" {
				rule += "=" + v.Param
			}
			t.Row(v.Field, rule, fmt.Sprint(v.Value))
		}
		printTable("Contract violations", t)
		return errors.New(errors.ErrCodeInvalidDataset, "%d contract violation(s)", len(violations))
	}
	if repaired && !lenient {
		printError("Dataset needed repairs")
		return errors.New(errors.ErrCodeInvalidDataset, "dataset needed repairs (use --lenient to accept)")
	}
	printSuccess("Dataset is valid")
	return nil
}

// printReport lists normalization repairs and reports whether any were
// made.
func printReport(r dataset.Report) bool {
	if r.Clean() {
		printInfo("No repairs needed")
		return false
	}
	t := newTable("Repair", "Count")
	for _, row := range []struct {
		label string
		n     int
	}{
		{"dropped nodes", r.DroppedNodes},
		{"dropped links", r.DroppedLinks},
		{"coerced directions", r.CoercedDirections},
		{"coerced provenances", r.CoercedProvenances},
		{"dropped year keys", r.DroppedYearKeys},
	} {
		if row.n > 0 {
			t.Row(row.label, fmt.Sprint(row.n))
		}
	}
	printTable("Normalization", t)
	return true
}
