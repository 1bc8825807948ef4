// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The screens follow the web client:
//  1. [LandingView] : Connect a streaming account
//  2. [LoginView] : Wait for the browser callback
//  3. [DashboardView] : Profile, playlists and top tracks, loaded together
//  4. [MapSelectView] : Pick the playlist that seeds the map
//  5. [MapLoadingView] : Progress while the map is generated
//  6. [MapView] : Songs of the map with a details panel for the selected one
//
// Every screen past the landing one requires a session token. When the session disappears,
// including after a failed token refresh, the model falls back to [LandingView].
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
