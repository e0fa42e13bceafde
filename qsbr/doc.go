// Package qsbr implements quiescent-state-based reclamation for rmindex's
// lock-free reader traversal (spec §5 Reclamation). A background
// restructuring job never frees a retired node directly: it hands the
// retirement callback to a Domain, which only runs it once every
// registered worker has reported passing through a quiescent point (no
// pointer held into the tree) since the retirement was queued. Readers
// therefore never need to take a lock to dereference a node they are
// currently visiting; a node is only ever reclaimed after the last reader
// that could have observed it has moved on.
//
// This mirrors the reader side of original_source/alex/alex_bg.h's
// "is this in the middle of a background op" check, generalized from ALEX's
// single-writer assumption to rmindex's multi-writer model: instead of one
// global flag, each worker advances its own epoch, and Domain.Advance
// computes the oldest epoch any worker could still be using.
package qsbr
