// Package patch provides helpers for applying ordered find-and-replace steps to text files.
//
// A patch is a fixed list of Step values. Each step is applied to the output of the
// previous one, so later steps may depend on text inserted or normalised by earlier
// steps. Steps that find nothing are skipped rather than failing, which lets a patch be
// re-run against a file that was already patched. The package exposes primitives to parse
// step manifests, apply steps to in-memory buffers, or load, patch and atomically save a
// file on disk.
package patch
