package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/layout"
)

type positions struct {
	Generation uint64            `json:"generation"`
	Width      float64           `json:"width"`
	Height     float64           `json:"height"`
	Year       int               `json:"year"`
	Nodes      []layout.Position `json:"nodes"`
}

// WritePositions encodes the layout positions of f as indented JSON.
func WritePositions(w io.Writer, f engine.Frame) error {
	out := positions{
		Generation: f.Generation,
		Width:      f.Viewport.Width,
		Height:     f.Viewport.Height,
		Year:       f.State.Year,
		Nodes:      f.Positions,
	}
	if out.Nodes == nil {
		out.Nodes = []layout.Position{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportArtifact writes data to path, creating parent directories.
func ExportArtifact(path string, data []byte) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
