package render

import (
	"slices"
	"strings"

	"github.com/matzehuels/macroviewer/pkg/errors"
)

// Format is an output format of the render pipeline.
type Format string

const (
	FormatSVG    Format = "svg"
	FormatJSON   Format = "json"
	FormatDOT    Format = "dot"
	FormatDOTSVG Format = "dot-svg"
	FormatPDF    Format = "pdf"
	FormatPNG    Format = "png"
)

// Formats lists every supported format.
var Formats = []Format{FormatSVG, FormatJSON, FormatDOT, FormatDOTSVG, FormatPDF, FormatPNG}

// Ext is the file extension written for f.
func (f Format) Ext() string {
	switch f {
	case FormatDOTSVG:
		return ".graphviz.svg"
	case FormatDOT:
		return ".dot"
	}
	return "." + string(f)
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG, FormatDOTSVG:
		return "image/svg+xml"
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	}
	return "text/vnd.graphviz"
}

// ParseFormats splits a comma-separated list, dropping blanks and
// duplicates. An empty list means svg.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" || slices.Contains(out, f) {
			continue
		}
		if !slices.Contains(Formats, f) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want one of svg, json, dot, dot-svg, pdf, png)", f)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		out = []Format{FormatSVG}
	}
	return out, nil
}
