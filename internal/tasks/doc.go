// Package tasks runs the multi-step data flows behind the screens, with real-time progress reporting.
//
// # Core Operations
//
//  1. [MapEngine.Generate] : playlist to recommendation map
//     - Fetches the playlist's tracks and takes the first as seed
//     - Requests recommendations seeded by that track
//     - Builds a [graph.Snapshot] and swaps it into the [graph.Store]
//     - A failure at any step leaves the store as it was
//
//  2. [LoadDashboard] : playlists and top tracks fetched concurrently and joined
//
//  3. [MapEngine.BulkMap] : maps for many playlists with a rate-limited worker pool,
//     written to disk through the formatter package
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
