package models

// Owner identifies who owns a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// TrackRef points at a playlist's tracks without carrying them.
type TrackRef struct {
	Href  string `json:"href"`
	Total int    `json:"total"`
}

// Playlist is a user's playlist as listed by the proxy.
type Playlist struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Owner         Owner    `json:"owner"`
	Images        []Image  `json:"images"`
	Tracks        TrackRef `json:"tracks"`
	Public        bool     `json:"public,omitempty"`
	Collaborative bool     `json:"collaborative,omitempty"`
}

// CoverURL returns the first cover image URL, or "" when the playlist has none.
func (p Playlist) CoverURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// OwnerName returns the owner's display name, or "Unknown".
func (p Playlist) OwnerName() string {
	if p.Owner.DisplayName == "" {
		return "Unknown"
	}
	return p.Owner.DisplayName
}
