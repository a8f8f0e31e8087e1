package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/macroviewer/pkg/errors"
)

func contractDataset() *Dataset {
	return &Dataset{
		Nodes: []Country{
			{ISO2: "US", ISO3: "USA", Name: "United States", GDPUsd: 25e12, ExportsUsd: 2e12, ImportsUsd: 3e12},
			{ISO2: "CN", ISO3: "CHN", Name: "China", GDPUsd: 18e12, ExportsUsd: 3.5e12, ImportsUsd: 2.6e12},
		},
		Links: []Link{
			{Source: "US", Target: "CN", TradeUsd: 1.5e11, Year: 2023, Direction: DirectionExport},
		},
		Sectors: []Sector{{ID: "medicine", Name: "Medicine"}},
		TopProducers: map[int]map[string][]ProducerRow{
			2023: {"medicine": {{ISO2: "US", Value: 90e9, Provenance: ProvenanceObserved}}},
		},
		AvailableYears: []int{2023},
	}
}

func TestValidateAcceptsContract(t *testing.T) {
	require.NoError(t, Validate(contractDataset()))
}

func TestValidateNil(t *testing.T) {
	err := Validate(nil)
	assert.True(t, errors.Is(err, errors.ErrCodeDatasetMissing))
}

func TestValidateReportsEveryViolation(t *testing.T) {
	d := contractDataset()
	d.Nodes[0].ISO2 = "XX"
	d.Nodes[1].GDPUsd = 0
	d.Nodes[1].ExportsEstimated = true
	d.Links[0].Target = "US"

	rows := make([]ProducerRow, 11)
	for i := range rows {
		rows[i] = ProducerRow{ISO2: "US", Value: 1, Provenance: ProvenanceObserved}
	}
	rows[3].Provenance = ProvenanceEstimated
	d.TopProducers[2023]["medicine"] = rows

	err := Validate(d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidDataset))

	rules := map[string]bool{}
	for _, v := range Violations(err) {
		rules[v.Rule] = true
	}
	for _, want := range []string{"ne", "gt", "eq", "nefield", "max"} {
		assert.Truef(t, rules[want], "expected a %q violation, got %v", want, Violations(err))
	}
}

func TestViolationsOnForeignError(t *testing.T) {
	assert.Nil(t, Violations(errors.New(errors.ErrCodeInternal, "boom")))
}
