package io

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/matzehuels/macroviewer/pkg/cache"
	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/httputil"
	"github.com/matzehuels/macroviewer/pkg/observability"
)

// Loaded is a normalized dataset and where it came from.
type Loaded struct {
	Dataset *dataset.Dataset
	Report  dataset.Report
	// Hash is the hex SHA-256 of the raw payload.
	Hash   string
	Source string
	// Origin tells whether a remote snapshot came from the network, the
	// cache or a stale fallback. Empty for local files.
	Origin httputil.Source
	// Stale is the fetch error hidden by a last-known-good fallback.
	Stale error
}

// ReadJSON decodes and normalizes a dataset from r. ReadJSON does not
// close r.
func ReadJSON(r io.Reader) (*dataset.Dataset, dataset.Report, error) {
	raw, err := dataset.Decode(r)
	if err != nil {
		return nil, dataset.Report{}, err
	}
	d, rep := dataset.Normalize(raw)
	return d, rep, nil
}

// ImportJSON reads a dataset file.
func ImportJSON(path string) (*dataset.Dataset, dataset.Report, error) {
	l, err := Load(context.Background(), path, nil)
	if err != nil {
		return nil, dataset.Report{}, err
	}
	return l.Dataset, l.Report, nil
}

// IsRemote reports whether src is an http(s) URL.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Load reads src, a file path or an http(s) URL. client fetches remote
// sources; nil uses an uncached client.
func Load(ctx context.Context, src string, client *httputil.Client) (*Loaded, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, src)
	start := time.Now()

	l, err := load(ctx, src, client)
	nodes := 0
	if l != nil {
		nodes = len(l.Dataset.Nodes)
	}
	hooks.OnLoadComplete(ctx, src, nodes, time.Since(start), err)
	return l, err
}

func load(ctx context.Context, src string, client *httputil.Client) (*Loaded, error) {
	var (
		body   []byte
		origin httputil.Source
		stale  error
	)
	if IsRemote(src) {
		if err := errors.ValidateURL(src); err != nil {
			return nil, err
		}
		if client == nil {
			client = httputil.NewClient(nil)
		}
		res, err := client.Fetch(ctx, src)
		if err != nil {
			if errors.Is(err, errors.ErrCodeInvalidInput) {
				return nil, err
			}
			if stderrors.Is(err, cache.ErrNotFound) {
				return nil, errors.Wrap(errors.ErrCodeNotFound, err, "dataset %s", src)
			}
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "fetch dataset")
		}
		body, origin, stale = res.Body, res.Source, res.Err
	} else {
		if err := errors.ValidatePath(src); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrCodeNotFound, err, "dataset file %s", src)
			}
			return nil, fmt.Errorf("read %s: %w", src, err)
		}
		body = data
	}

	d, rep, err := ReadJSON(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &Loaded{
		Dataset: d,
		Report:  rep,
		Hash:    cache.Hash(body),
		Source:  src,
		Origin:  origin,
		Stale:   stale,
	}, nil
}
