// Package models defines the read-only entities tunemap receives from the backend proxy.
//
// The shapes follow the streaming provider's Web API objects as relayed by the proxy:
//   - [Track] : a track with ordered [Artist] credits and an [Album] reference
//   - [Playlist] : playlist metadata with an [Owner] and a [TrackRef] (count + href, never the full list)
//   - [UserProfile] : the account profile returned by the auth callback
//
// Values are decoded and validated at the API boundary (see package services) and are never mutated afterwards.
package models
