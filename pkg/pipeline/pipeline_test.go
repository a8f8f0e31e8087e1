package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/macroviewer/pkg/cache"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/render"
)

var testSource = filepath.Join("testdata", "macro.json")

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(backend, nil, log.New(io.Discard))
	t.Cleanup(func() { r.Close() })
	return r
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  render.Format
		wantErr bool
	}{
		{"svg", false},
		{"json", false},
		{"dot", false},
		{"dot-svg", false},
		{"pdf", false},
		{"png", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s", tt.format, errors.GetCode(err))
		}
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing source = %v, want INVALID_INPUT", err)
	}

	opts = Options{Source: testSource}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Width != DefaultWidth || opts.Height != DefaultHeight {
		t.Errorf("viewport = %vx%v", opts.Width, opts.Height)
	}
	if opts.Seed != DefaultSeed || opts.Ticks != DefaultTicks || opts.Scale != DefaultScale {
		t.Errorf("seed %d ticks %d scale %v", opts.Seed, opts.Ticks, opts.Scale)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != render.FormatSVG {
		t.Errorf("Formats should be [svg], got %v", opts.Formats)
	}

	// Second call should be idempotent
	opts.Width = 10
	if err := opts.ValidateAndSetDefaults(); err != nil || opts.Width != 10 {
		t.Errorf("second call changed options: %v, width %v", err, opts.Width)
	}

	bad := Options{Source: testSource, Formats: []render.Format{"gif"}}
	if err := bad.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad format = %v", err)
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	opts := Options{Title: "t", Panels: true, Labels: true, Scale: 3, Detailed: true}

	svg := opts.ArtifactKeyOpts(render.FormatSVG)
	if svg.Scale != 0 || !svg.Panels || !svg.Labels || svg.Title != "t" {
		t.Errorf("svg key = %+v", svg)
	}
	if png := opts.ArtifactKeyOpts(render.FormatPNG); png.Scale != 3 {
		t.Errorf("png key = %+v", png)
	}
	if dot := opts.ArtifactKeyOpts(render.FormatDOT); !dot.Detailed || dot.Panels || dot.Title != "" {
		t.Errorf("dot key = %+v", dot)
	}
	if js := opts.ArtifactKeyOpts(render.FormatJSON); !js.Panels || js.Title != "" {
		t.Errorf("json key = %+v", js)
	}
}

func TestExecute(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Execute(context.Background(), Options{
		Source:  testSource,
		Formats: []render.Format{render.FormatSVG, render.FormatJSON, render.FormatDOT},
		Panels:  true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.DatasetHash == "" || res.LayoutHash == "" {
		t.Error("hashes should be set")
	}
	if res.Stats.NodeCount != 3 || res.Stats.Ticks == 0 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if len(res.Frame.Positions) != 3 {
		t.Errorf("positions = %d, want 3", len(res.Frame.Positions))
	}
	if res.CacheInfo.LayoutHit || res.CacheInfo.RenderHit {
		t.Errorf("first run hit the cache: %+v", res.CacheInfo)
	}
	if svg := string(res.Artifacts[render.FormatSVG]); !strings.HasPrefix(svg, "<svg") || !strings.Contains(svg, `class="legend"`) {
		t.Errorf("svg artifact missing panels:\n%.200s", svg)
	}
	if !strings.Contains(string(res.Artifacts[render.FormatJSON]), `"nodes"`) {
		t.Error("json artifact has no nodes")
	}
	if !strings.HasPrefix(string(res.Artifacts[render.FormatDOT]), "digraph") {
		t.Error("dot artifact is not a digraph")
	}
}

func TestExecuteCachesLayoutAndArtifacts(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	opts := Options{Source: testSource, Formats: []render.Format{render.FormatSVG}}

	first, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run cache info = %+v", second.CacheInfo)
	}
	if !reflect.DeepEqual(first.Frame.Positions, second.Frame.Positions) {
		t.Error("restored positions differ from the settled ones")
	}
	if first.LayoutHash != second.LayoutHash {
		t.Error("layout hash changed between runs")
	}
	if string(first.Artifacts[render.FormatSVG]) != string(second.Artifacts[render.FormatSVG]) {
		t.Error("cached svg differs")
	}

	opts.Refresh = true
	third, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.LayoutHit || third.CacheInfo.RenderHit {
		t.Errorf("refresh run hit the cache: %+v", third.CacheInfo)
	}
}

func TestExecuteActionsChangeKey(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	base, err := r.Execute(ctx, Options{Source: testSource})
	if err != nil {
		t.Fatal(err)
	}
	sector, err := r.Execute(ctx, Options{
		Source:  testSource,
		Actions: []filter.Action{{Kind: filter.KindSelectSector, Sector: "medicine"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if sector.CacheInfo.LayoutHit {
		t.Error("different state reused the cached layout")
	}
	if sector.LayoutHash == base.LayoutHash {
		t.Error("different states share a layout hash")
	}
	if sector.Frame.State.Sector != "medicine" {
		t.Errorf("sector = %q", sector.Frame.State.Sector)
	}

	_, err = r.Execute(ctx, Options{
		Source:  testSource,
		Actions: []filter.Action{{Kind: "explode"}},
	})
	if !errors.Is(err, errors.ErrCodeInvalidAction) {
		t.Errorf("bad action = %v, want INVALID_ACTION", err)
	}
}

func TestExecuteMissingDataset(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Execute(context.Background(), Options{Source: filepath.Join(t.TempDir(), "none.json")})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestRenderWithoutLayoutHashSkipsCache(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	res, err := r.Execute(ctx, Options{Source: testSource})
	if err != nil {
		t.Fatal(err)
	}
	_, hit, err := r.RenderWithCacheInfo(ctx, res.Frame, "", Options{Formats: []render.Format{render.FormatSVG}})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("render without layout hash reported a cache hit")
	}
}
