// Package index keeps the ordered, name-indexed table of archive members
// and serializes it as a FlatBuffers sidecar so a later open can skip the
// header scan.
package index
