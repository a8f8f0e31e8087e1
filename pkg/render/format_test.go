package render

import (
	"slices"
	"testing"

	"github.com/matzehuels/macroviewer/pkg/errors"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []Format
	}{
		{"", []Format{FormatSVG}},
		{"svg", []Format{FormatSVG}},
		{" PNG, svg ,png", []Format{FormatPNG, FormatSVG}},
		{"dot-svg,json,", []Format{FormatDOTSVG, FormatJSON}},
	}
	for _, tt := range tests {
		got, err := ParseFormats(tt.in)
		if err != nil {
			t.Fatalf("ParseFormats(%q): %v", tt.in, err)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("ParseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseFormats("svg,gif"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("ParseFormats(gif) = %v, want INVALID_FORMAT", err)
	}
}

func TestFormatExt(t *testing.T) {
	if FormatDOTSVG.Ext() == FormatSVG.Ext() {
		t.Error("graphviz svg would overwrite the frame svg")
	}
	if FormatPDF.ContentType() != "application/pdf" || FormatDOT.ContentType() != "text/vnd.graphviz" {
		t.Error("unexpected content types")
	}
}
