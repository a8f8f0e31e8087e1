package format_test

import (
	"fmt"

	"github.com/matzehuels/macroviewer/pkg/format"
)

func ExampleCurrency() {
	fmt.Println(format.Currency(25.46e12))
	fmt.Println(format.Currency(3.2e9))
	fmt.Println(format.Currency(750e6))
	fmt.Println(format.Currency(48250))
	// Output:
	// $25.46T
	// $3.20B
	// $750.00M
	// $48,250
}

func ExampleTitleCase() {
	fmt.Println(format.TitleCase("heavy_machinery"))
	// Output: Heavy Machinery
}
