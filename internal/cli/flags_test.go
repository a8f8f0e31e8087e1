package cli

import (
	"reflect"
	"testing"

	"github.com/spf13/pflag"

	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/index"
)

func parseViewFlags(t *testing.T, args ...string) *viewFlags {
	t.Helper()
	var v viewFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	v.register(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return &v
}

func TestViewFlagsActions(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []filter.Action
	}{
		{"no flags", nil, nil},
		{
			"year and direction",
			[]string{"--year", "2022", "--direction", "exports"},
			[]filter.Action{
				{Kind: filter.KindSetYear, Year: 2022},
				{Kind: filter.KindSetDirection, Direction: filter.Exports},
			},
		},
		{
			"sector is lower-cased",
			[]string{"--sector", "Semiconductors"},
			[]filter.Action{{Kind: filter.KindSelectSector, Sector: "semiconductors"}},
		},
		{
			"blocs with mode and scope",
			[]string{"--bloc", "EU", "--bloc", "nato", "--bloc-mode", "intersection", "--bloc-scope", "internal"},
			[]filter.Action{{Kind: filter.KindApplyBlocs, Blocs: []string{"eu", "nato"}, Mode: index.Intersection, Scope: filter.Internal}},
		},
		{
			"scope alone applies to all countries",
			[]string{"--bloc-scope", "touching"},
			[]filter.Action{{Kind: filter.KindApplyBlocs, Blocs: []string{index.AllBlocs}, Mode: index.Union, Scope: filter.Touching}},
		},
		{
			"order follows the control bar",
			[]string{"--lock", "de", "--threshold", "5e9", "--year", "2023"},
			[]filter.Action{
				{Kind: filter.KindSetYear, Year: 2023},
				{Kind: filter.KindSetThreshold, Threshold: 5e9},
				{Kind: filter.KindSelectCountry, ISO2: "DE"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseViewFlags(t, tt.args...).actions()
			if err != nil {
				t.Fatalf("actions() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("actions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestViewFlagsActionsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"direction", []string{"--direction", "sideways"}},
		{"bloc mode", []string{"--bloc", "eu", "--bloc-mode", "xor"}},
		{"bloc scope", []string{"--bloc", "eu", "--bloc-scope", "outside"}},
		{"unknown bloc", []string{"--bloc", "atlantis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseViewFlags(t, tt.args...).actions()
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("actions() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}
