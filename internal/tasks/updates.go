package tasks

import (
	"fmt"

	"github.com/desertthunder/tunemap/internal/graph"
	"github.com/desertthunder/tunemap/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchTracks Phase = iota
	FetchRecommendations
	BuildGraph
	FetchPlaylists
	FetchTopTracks
	ExportMap
)

func (p Phase) String() string {
	switch p {
	case FetchTracks:
		return "fetch_tracks"
	case FetchRecommendations:
		return "fetch_recommendations"
	case BuildGraph:
		return "build_graph"
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchTopTracks:
		return "fetch_top_tracks"
	case ExportMap:
		return "export_map"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchTracksUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   3,
		Message: fmt.Sprintf("Fetching tracks for playlist %s...", playlistID),
	}
}

func fetchRecommendationsUpdate(seed *models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRecommendations,
		Step:    2,
		Total:   3,
		Message: fmt.Sprintf("Finding songs like %s...", seed.Name),
		Data:    seed,
	}
}

func buildGraphUpdate(snap *graph.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildGraph,
		Step:    3,
		Total:   3,
		Message: fmt.Sprintf("Built map with %d songs", len(snap.Nodes)),
		Data:    snap,
	}
}

func fetchPlaylistsUpdate(done bool, count int) ProgressUpdate {
	u := ProgressUpdate{Phase: FetchPlaylists, Step: 0, Total: 1, Message: "Fetching playlists..."}
	if done {
		u.Step = 1
		u.Message = fmt.Sprintf("Loaded %d playlists", count)
	}
	return u
}

func fetchTopTracksUpdate(done bool, count int, r models.TimeRange) ProgressUpdate {
	u := ProgressUpdate{Phase: FetchTopTracks, Step: 0, Total: 1, Message: fmt.Sprintf("Fetching top tracks (%s)...", r)}
	if done {
		u.Step = 1
		u.Message = fmt.Sprintf("Loaded %d top tracks", count)
	}
	return u
}

func exportingMapUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportMap,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Mapping: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name, file string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportMap,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, name, file),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportMap,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
