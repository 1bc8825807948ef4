package models

import "fmt"

// Image is a cover image at one size.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// Artist is an artist credit on a track.
type Artist struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Album is the album reference carried on a track.
type Album struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Images      []Image `json:"images"`
	ReleaseDate string  `json:"release_date,omitempty"`
}

// Track is a single track as returned by the proxy.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms,omitempty"`
	Popularity int      `json:"popularity,omitempty"`
	Explicit   bool     `json:"explicit,omitempty"`
}

// PrimaryArtist returns the first credited artist's name, or "" if there are none.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// CoverURL returns the album's first image URL, or "" if the album has no images.
func (t Track) CoverURL() string {
	if len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

// Validate reports whether the track can be used as a graph node.
func (t Track) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("track %q has no id", t.Name)
	}
	return nil
}

// TimeRange is the window used for top-track ranking.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"
	MediumTerm TimeRange = "medium_term"
	LongTerm   TimeRange = "long_term"
)

// TimeRanges lists the accepted values in display order.
var TimeRanges = []TimeRange{ShortTerm, MediumTerm, LongTerm}

// Valid reports whether r is one of the accepted ranges.
func (r TimeRange) Valid() bool {
	switch r {
	case ShortTerm, MediumTerm, LongTerm:
		return true
	}
	return false
}
