package cache

import "github.com/matzehuels/macroviewer/pkg/filter"

// Keyer derives cache keys. Implementations must be deterministic: equal
// inputs give equal keys across processes.
type Keyer interface {
	// HTTPKey keys a fetched response body.
	HTTPKey(namespace, key string) string
	// LayoutKey keys the settled positions of one dataset under one view.
	LayoutKey(datasetHash string, opts LayoutKeyOpts) string
	// ArtifactKey keys one rendered output of a settled layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
	// SessionKey keys a persisted viewer session.
	SessionKey(id string) string
}

// LayoutKeyOpts are the inputs that change settled positions.
type LayoutKeyOpts struct {
	State  filter.State `json:"state"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Seed   int64        `json:"seed"`
	Ticks  int          `json:"ticks"`
}

// ArtifactKeyOpts are the render options of one output.
type ArtifactKeyOpts struct {
	Format   string  `json:"format"`
	Panels   bool    `json:"panels,omitempty"`
	Labels   bool    `json:"labels,omitempty"`
	Detailed bool    `json:"detailed,omitempty"`
	Scale    float64 `json:"scale,omitempty"`
	Title    string  `json:"title,omitempty"`
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

func (DefaultKeyer) LayoutKey(datasetHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", datasetHash, opts)
}

func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

func (DefaultKeyer) SessionKey(id string) string { return "session:" + id }
