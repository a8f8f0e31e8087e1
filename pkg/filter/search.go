package filter

import (
	"strings"

	"github.com/matzehuels/macroviewer/pkg/dataset"
)

// MaxSearchResults caps the suggestion list.
const MaxSearchResults = 10

// Search returns countries whose name, iso2 or iso3 contains query,
// case-insensitively, in dataset order. Queries shorter than two
// characters after trimming match nothing.
func Search(d *dataset.Dataset, query string) []dataset.Country {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < 2 {
		return nil
	}
	var out []dataset.Country
	for _, n := range d.Nodes {
		if strings.Contains(strings.ToLower(n.Name), q) ||
			strings.Contains(strings.ToLower(n.ISO2), q) ||
			strings.Contains(strings.ToLower(n.ISO3), q) {
			out = append(out, n)
			if len(out) == MaxSearchResults {
				break
			}
		}
	}
	return out
}
