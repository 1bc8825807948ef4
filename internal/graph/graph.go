package graph

import (
	"errors"
	"fmt"

	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/shared"
)

const (
	UnknownArtist    = "Unknown Artist"
	PlaceholderCover = "https://via.placeholder.com/300"
	DefaultDistance  = 100.0
)

var (
	ErrDuplicateNode = errors.New("duplicate node id")
	ErrDanglingLink  = errors.New("link references a missing node")
)

// Node is one track on the map.
type Node struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	AlbumCover string   `json:"albumCover"`
	Album      string   `json:"album,omitempty"`
	DurationMS int      `json:"durationMs,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
}

// Label is the hover text, "title by artist".
func (n Node) Label() string {
	return fmt.Sprintf("%s by %s", n.Title, n.Artist)
}

// NewNode converts a track, applying the artist and cover fallbacks.
func NewNode(t models.Track) Node {
	n := Node{
		ID:         t.ID,
		Title:      t.Name,
		Artist:     t.PrimaryArtist(),
		AlbumCover: t.CoverURL(),
		Album:      t.Album.Name,
		DurationMS: t.DurationMS,
	}
	if n.Artist == "" {
		n.Artist = UnknownArtist
	}
	if n.AlbumCover == "" {
		n.AlbumCover = PlaceholderCover
	}
	return n
}

// Link is a directed edge between two node ids.
type Link struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Distance float64 `json:"distance"`
}

// Snapshot is a complete graph.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Validate checks that node ids are unique and every link endpoint names a node.
func (s *Snapshot) Validate() error {
	ids := make(map[string]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		if _, ok := ids[n.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, l := range s.Links {
		if _, ok := ids[l.Source]; !ok {
			return fmt.Errorf("%w: source %q", ErrDanglingLink, l.Source)
		}
		if _, ok := ids[l.Target]; !ok {
			return fmt.Errorf("%w: target %q", ErrDanglingLink, l.Target)
		}
	}
	return nil
}

// Seed returns the first node, which [Build] always makes the seed.
func (s *Snapshot) Seed() (Node, bool) {
	if s == nil || len(s.Nodes) == 0 {
		return Node{}, false
	}
	return s.Nodes[0], true
}

// Node looks up a node by id.
func (s *Snapshot) Node(id string) (Node, bool) {
	if s == nil {
		return Node{}, false
	}
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Neighbors returns the nodes linked to id in either direction, in link order.
func (s *Snapshot) Neighbors(id string) []Node {
	if s == nil {
		return nil
	}
	var out []Node
	for _, l := range s.Links {
		other := ""
		switch id {
		case l.Source:
			other = l.Target
		case l.Target:
			other = l.Source
		default:
			continue
		}
		if n, ok := s.Node(other); ok {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := &Snapshot{
		Nodes: make([]Node, len(s.Nodes)),
		Links: append([]Link(nil), s.Links...),
	}
	for i, n := range s.Nodes {
		if n.X != nil {
			x := *n.X
			n.X = &x
		}
		if n.Y != nil {
			y := *n.Y
			n.Y = &y
		}
		c.Nodes[i] = n
	}
	return c
}

// Build makes a snapshot from a seed track and its recommendations.
//
// Recommendations repeating an id already in the graph are skipped. A recommendation
// without an id fails the build with [shared.ErrMalformedPayload].
func Build(seed *models.Track, recommended []models.Track) (*Snapshot, error) {
	return BuildWithDistance(seed, recommended, DefaultDistance)
}

// BuildWithDistance is [Build] with a custom link distance. Non-positive distances use [DefaultDistance].
func BuildWithDistance(seed *models.Track, recommended []models.Track, distance float64) (*Snapshot, error) {
	if seed == nil {
		return nil, shared.ErrNoTracks
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("%w: seed: %v", shared.ErrInvalidInput, err)
	}
	if distance <= 0 {
		distance = DefaultDistance
	}

	s := &Snapshot{
		Nodes: make([]Node, 0, len(recommended)+1),
		Links: make([]Link, 0, len(recommended)),
	}
	s.Nodes = append(s.Nodes, NewNode(*seed))
	seen := map[string]struct{}{seed.ID: {}}

	for i, t := range recommended {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: recommendation %d has no id", shared.ErrMalformedPayload, i)
		}
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		s.Nodes = append(s.Nodes, NewNode(t))
		s.Links = append(s.Links, Link{Source: seed.ID, Target: t.ID, Distance: distance})
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// SeedFromPlaylist picks the seed track of a playlist: its first track.
func SeedFromPlaylist(tracks []models.Track) (*models.Track, error) {
	if len(tracks) == 0 {
		return nil, shared.ErrNoTracks
	}
	seed := tracks[0]
	return &seed, nil
}
