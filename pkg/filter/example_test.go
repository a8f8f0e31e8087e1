package filter_test

import (
	"fmt"

	"github.com/matzehuels/macroviewer/pkg/filter"
)

func ExampleToggleBlocChip() {
	chips := []string{"all"}
	chips = filter.ToggleBlocChip(chips, "eu")
	chips = filter.ToggleBlocChip(chips, "nato")
	fmt.Println(chips)

	chips = filter.ToggleBlocChip(chips, "eu")
	chips = filter.ToggleBlocChip(chips, "nato")
	fmt.Println(chips)
	// Output:
	// [eu nato]
	// [all]
}

func ExampleNormalizeBlocSelection() {
	fmt.Println(filter.NormalizeBlocSelection([]string{"eu", "atlantis", "eu", "usmca"}))
	fmt.Println(filter.NormalizeBlocSelection([]string{"eu", "all"}))
	// Output:
	// [eu usmca]
	// [all]
}
