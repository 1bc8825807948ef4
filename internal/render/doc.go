// Package render draws recommendation maps.
//
// [Painter] rasterizes a [graph.Snapshot] at positions supplied by a [graph.Layout]: each node is
// its album cover clipped to a circle with the title above it, links are 2px lines. [HitMap]
// answers which node sits under a pixel, using a fixed 20px pointer radius regardless of zoom.
//
// [MapPage] is the interactive version. It hosts the force-graph library in the browser and
// paints nodes the same way the raster painter does.
package render
