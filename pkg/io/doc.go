// Package io loads macro datasets and writes viewer output.
//
// A dataset source is either a local JSON file or an http(s) URL.
// [Load] picks the right path:
//
//	loaded, err := io.Load(ctx, "data/macro.json", nil)
//	loaded, err := io.Load(ctx, "https://example.org/macro.json", client)
//
// Both paths end in [dataset.Decode] followed by [dataset.Normalize], so
// a partially malformed snapshot loads with its fragments repaired and
// the repairs counted in [Loaded.Report]. Only a missing or non-object
// payload fails.
//
// Remote snapshots go through an [httputil.Client], which retries
// transient failures and falls back to the last snapshot it fetched.
//
// [Loaded.Hash] is the SHA-256 of the raw bytes. The pipeline uses it as
// the dataset component of layout and artifact cache keys.
//
// The export helpers write settled positions and rendered artifacts:
//
//	io.WritePositions(os.Stdout, frame)
//	io.ExportArtifact("out/view.svg", svg)
package io
