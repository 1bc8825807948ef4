// Package graph builds the recommendation graph shown on the map.
//
// A [Snapshot] is one seed track node plus one node per recommended track, each linked
// from the seed. Snapshots are immutable once built; [Store] swaps them atomically.
//
// Node positions belong to a [Layout]. Nothing in this package writes coordinates into a snapshot.
package graph
