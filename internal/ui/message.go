package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoggedIn MsgKind = iota
	MsgLoggedOut
	MsgDashboardLoaded
	MsgProgressUpdate
	MsgMapGenerated
)

type loggedIn struct {
	profile *models.UserProfile
	err     error
}

type dashboardLoaded struct {
	dashboard *tasks.Dashboard
	err       error
}

type mapGenerated struct {
	result *tasks.MapResult
	err    error
}

// loggedInMsg is the constructor for [MsgLoggedIn]
func loggedInMsg(profile *models.UserProfile, err error) Msg {
	return Msg{kind: MsgLoggedIn, data: loggedIn{profile, err}}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(err error) Msg {
	return Msg{kind: MsgLoggedOut, data: err}
}

// dashboardLoadedMsg is the constructor for [MsgDashboardLoaded]
func dashboardLoadedMsg(d *tasks.Dashboard, err error) Msg {
	return Msg{kind: MsgDashboardLoaded, data: dashboardLoaded{d, err}}
}

// progressUpdate carries the channels along so the next wait can be scheduled.
type progressUpdate struct {
	tasks.ProgressUpdate
	progress <-chan tasks.ProgressUpdate
	done     <-chan Msg
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update progressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// mapGeneratedMsg is the constructor for [MsgMapGenerated]
func mapGeneratedMsg(result *tasks.MapResult, err error) Msg {
	return Msg{kind: MsgMapGenerated, data: mapGenerated{result, err}}
}
