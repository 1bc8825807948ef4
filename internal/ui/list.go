package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tunemap/internal/graph"
	"github.com/desertthunder/tunemap/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = nodeItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks • by %s", i.playlist.Tracks.Total, i.playlist.OwnerName())
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// nodeItem wraps [graph.Node] to implement [list.Item]. The seed is marked.
type nodeItem struct {
	node graph.Node
	seed bool
}

func (i nodeItem) FilterValue() string { return i.node.Label() }
func (i nodeItem) Title() string {
	if i.seed {
		return "● " + i.node.Title
	}
	return i.node.Title
}
func (i nodeItem) Description() string { return i.node.Artist }
