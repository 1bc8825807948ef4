package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/tunemap/internal/graph"
	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/services"
	"github.com/desertthunder/tunemap/internal/session"
	"github.com/desertthunder/tunemap/internal/shared"
	"github.com/desertthunder/tunemap/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LandingView ViewState = iota
	LoginView
	DashboardView
	MapSelectView
	MapLoadingView
	MapView
)

const topTracksShown = 10

// LoginFunc runs the browser login and blocks until the callback has been handled.
type LoginFunc func(ctx context.Context) (*models.UserProfile, error)

// Deps are the collaborators the TUI drives.
type Deps struct {
	Session *session.Store
	Library services.Library
	Engine  *tasks.MapEngine
	Login   LoginFunc
}

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	deps Deps
	view ViewState

	width  int
	height int

	spinner   spinner.Model
	loading   bool
	timeRange models.TimeRange
	dashboard *tasks.Dashboard

	playlistList list.Model
	nodeList     list.Model
	snapshot     *graph.Snapshot
	selected     *models.Playlist

	progress tasks.ProgressUpdate
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ok

	return &Model{
		ctx:       ctx,
		deps:      deps,
		view:      LandingView,
		spinner:   s,
		timeRange: models.MediumTerm,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// State returns the active screen.
func (m *Model) State() ViewState { return m.view }

// Init shows the dashboard for a signed-in user and the landing screen otherwise.
func (m *Model) Init() tea.Cmd {
	if !m.authenticated() {
		return nil
	}
	return m.openDashboard()
}

func (m *Model) authenticated() bool {
	return m.deps.Session != nil && m.deps.Session.Authenticated()
}

// guard moves to the landing screen when the session is gone. It reports whether the caller may proceed.
func (m *Model) guard() bool {
	if m.authenticated() {
		return true
	}
	m.view = LandingView
	m.loading = false
	return false
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case LandingView:
			return m.handleLandingKeys(msg)
		case LoginView:
			return m.handleWaitingKeys(msg)
		case DashboardView:
			return m.handleDashboardKeys(msg)
		case MapSelectView:
			return m.handleMapSelectKeys(msg)
		case MapLoadingView:
			return m.handleWaitingKeys(msg)
		case MapView:
			return m.handleMapKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoggedIn:
		data := msg.data.(loggedIn)
		m.loading = false
		if data.err != nil {
			m.err = data.err
			m.view = LandingView
			return m, nil
		}
		m.err = nil
		return m, m.openDashboard()

	case MsgLoggedOut:
		m.err, _ = msg.data.(error)
		m.reset()
		return m, nil

	case MsgDashboardLoaded:
		data := msg.data.(dashboardLoaded)
		m.loading = false
		if data.err != nil {
			m.fail(data.err)
			return m, nil
		}
		m.err = nil
		m.dashboard = data.dashboard
		m.setPlaylists(data.dashboard.Playlists)
		return m, nil

	case MsgProgressUpdate:
		update := msg.data.(progressUpdate)
		m.progress = update.ProgressUpdate
		return m, waitForProgress(update.progress, update.done)

	case MsgMapGenerated:
		data := msg.data.(mapGenerated)
		m.loading = false
		if data.err != nil {
			m.view = MapSelectView
			m.fail(data.err)
			return m, nil
		}
		m.err = nil
		m.setSnapshot(data.result.Snapshot)
		m.view = MapView
		return m, nil
	}
	return m, nil
}

// fail records err. A lost session sends the user back to the landing screen.
func (m *Model) fail(err error) {
	if errors.Is(err, shared.ErrNotAuthenticated) {
		m.reset()
	}
	m.err = err
}

func (m *Model) reset() {
	m.view = LandingView
	m.loading = false
	m.dashboard = nil
	m.snapshot = nil
	m.selected = nil
}

func (m *Model) handleLandingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.login):
		if m.authenticated() {
			return m, m.openDashboard()
		}
		if m.deps.Login == nil {
			m.err = fmt.Errorf("%w: login is not available here, run `tunemap auth login`", shared.ErrServiceUnavailable)
			return m, nil
		}
		m.err = nil
		m.view = LoginView
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.login())
	}
	return m, nil
}

func (m *Model) handleWaitingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m.handleWaitingKeys(msg)
	}
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.reload):
		return m, m.openDashboard()
	case key.Matches(msg, m.keys.timeRange):
		m.timeRange = nextTimeRange(m.timeRange)
		return m, m.openDashboard()
	case key.Matches(msg, m.keys.mapView):
		if !m.guard() {
			return m, nil
		}
		if m.dashboard == nil {
			return m, nil
		}
		m.err = nil
		m.view = MapSelectView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleMapSelectKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.err = nil
		m.view = DashboardView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if !m.guard() {
			return m, nil
		}
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.selected = &pl.playlist
			m.err = nil
			m.view = MapLoadingView
			m.loading = true
			m.progress = tasks.ProgressUpdate{}
			return m, tea.Batch(m.spinner.Tick, m.generate(pl.playlist.ID))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleMapKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.nodeList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.nodeList, cmd = m.nodeList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = MapSelectView
		return m, nil
	}

	var cmd tea.Cmd
	m.nodeList, cmd = m.nodeList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case MapSelectView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case MapView:
		m.nodeList, cmd = m.nodeList.Update(msg)
	}
	return m, cmd
}

func (m *Model) setPlaylists(playlists []models.Playlist) {
	items := make([]list.Item, len(playlists))
	for i, pl := range playlists {
		items[i] = playlistItem{playlist: pl}
	}
	m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.playlistList.Title = "Choose a playlist to map"
	m.resizeLists()
}

func (m *Model) setSnapshot(snap *graph.Snapshot) {
	m.snapshot = snap
	seed, _ := snap.Seed()
	items := make([]list.Item, len(snap.Nodes))
	for i, n := range snap.Nodes {
		items[i] = nodeItem{node: n, seed: n.ID == seed.ID}
	}
	m.nodeList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.nodeList.Title = "Recommendation map"
	if m.selected != nil {
		m.nodeList.Title = fmt.Sprintf("Map of '%s'", m.selected.Name)
	}
	m.resizeLists()
}

func (m *Model) resizeLists() {
	if m.width == 0 || m.height == 0 {
		return
	}
	if m.dashboard != nil {
		m.playlistList.SetSize(m.width-4, m.height-8)
	}
	if m.snapshot != nil {
		m.nodeList.SetSize(m.width/2-2, m.height-8)
	}
}

func nextTimeRange(r models.TimeRange) models.TimeRange {
	for i, tr := range models.TimeRanges {
		if tr == r {
			return models.TimeRanges[(i+1)%len(models.TimeRanges)]
		}
	}
	return models.MediumTerm
}

func (m *Model) openDashboard() tea.Cmd {
	if !m.guard() {
		return nil
	}
	m.view = DashboardView
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.loadDashboard())
}

func (m *Model) loadDashboard() tea.Cmd {
	ctx, library, store, timeRange := m.ctx, m.deps.Library, m.deps.Session, m.timeRange
	return func() tea.Msg {
		if library == nil {
			return dashboardLoadedMsg(nil, fmt.Errorf("%w: library", shared.ErrServiceUnavailable))
		}
		d, err := tasks.LoadDashboard(ctx, library, store, timeRange, nil)
		return dashboardLoadedMsg(d, err)
	}
}

func (m *Model) login() tea.Cmd {
	ctx, login := m.ctx, m.deps.Login
	return func() tea.Msg {
		profile, err := login(ctx)
		return loggedInMsg(profile, err)
	}
}

func (m *Model) logout() tea.Cmd {
	store := m.deps.Session
	return func() tea.Msg {
		return loggedOutMsg(store.Clear())
	}
}

func (m *Model) generate(playlistID string) tea.Cmd {
	if m.deps.Engine == nil {
		return func() tea.Msg {
			return mapGeneratedMsg(nil, fmt.Errorf("%w: map engine", shared.ErrServiceUnavailable))
		}
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan Msg, 1)
	ctx, engine := m.ctx, m.deps.Engine

	go func() {
		result, err := engine.Generate(ctx, playlistID, progress)
		close(progress)
		done <- mapGeneratedMsg(result, err)
	}()

	return waitForProgress(progress, done)
}

func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(progressUpdate{update, progress, done})
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LandingView:
		return m.renderLanding()
	case LoginView:
		return m.renderWaiting("Waiting for the browser login to finish...")
	case DashboardView:
		return m.renderDashboard()
	case MapSelectView:
		return m.renderMapSelect()
	case MapLoadingView:
		return m.renderMapLoading()
	case MapView:
		return m.renderMap()
	default:
		return ""
	}
}

func (m *Model) renderError() string {
	if m.err == nil {
		return ""
	}
	return "\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
}

func (m *Model) renderLanding() string {
	title := styles.title.Render("Discover your music map")
	body := "Connect your streaming account to browse your playlists\nand explore recommendations as a graph."
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.login, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s\n%s", title, body, m.renderError(), helpView)
}

func (m *Model) renderWaiting(msg string) string {
	return fmt.Sprintf("%s %s", m.spinner.View(), msg)
}

func (m *Model) renderDashboard() string {
	if m.loading {
		return m.renderWaiting("Loading your library...")
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.mapView, m.keys.timeRange, m.keys.reload, m.keys.logout, m.keys.quit})
	if m.dashboard == nil {
		return fmt.Sprintf("%s\n%s", m.renderError(), helpView)
	}

	d := m.dashboard
	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Welcome, %s", d.Profile.Name())))
	b.WriteString("\n")
	if d.Profile.Email != "" {
		fmt.Fprintf(&b, "%s %s\n", styles.label.Render("Email:"), d.Profile.Email)
	}
	if d.Profile.Product != "" {
		fmt.Fprintf(&b, "%s %s\n", styles.label.Render("Plan:"), d.Profile.Product)
	}

	var playlists strings.Builder
	playlists.WriteString(styles.ok.Render(fmt.Sprintf("Playlists (%d)", len(d.Playlists))))
	for _, pl := range d.Playlists {
		fmt.Fprintf(&playlists, "\n  %s %s", pl.Name, styles.help.Render(fmt.Sprintf("%d tracks • %s", pl.Tracks.Total, pl.OwnerName())))
	}

	var top strings.Builder
	top.WriteString(styles.ok.Render(fmt.Sprintf("Top tracks (%s)", strings.ReplaceAll(string(d.TimeRange), "_", " "))))
	for i, t := range d.TopTracks {
		if i == topTracksShown {
			break
		}
		fmt.Fprintf(&top, "\n  %2d. %s %s", i+1, t.Name, styles.help.Render(t.PrimaryArtist()))
	}

	columns := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.panel.Render(playlists.String()),
		styles.panel.Render(top.String()),
	)
	return fmt.Sprintf("%s\n%s\n%s\n%s", b.String(), columns, m.renderError(), helpView)
}

func (m *Model) renderMapSelect() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s%s\n%s", m.playlistList.View(), m.renderError(), helpView)
}

func (m *Model) renderMapLoading() string {
	var phase string
	switch m.progress.Phase {
	case tasks.FetchTracks:
		phase = "Fetching playlist tracks..."
	case tasks.FetchRecommendations:
		phase = "Fetching recommendations..."
	case tasks.BuildGraph:
		phase = "Building the map..."
	default:
		phase = "Preparing..."
	}
	return fmt.Sprintf("%s\n%s", m.renderWaiting(phase), styles.help.Render(m.progress.Message))
}

func (m *Model) renderMap() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.quit})
	details := ""
	if item, ok := m.nodeList.SelectedItem().(nodeItem); ok {
		details = styles.panel.Render(m.renderDetails(item.node))
	}
	return fmt.Sprintf("%s\n%s", lipgloss.JoinHorizontal(lipgloss.Top, m.nodeList.View(), details), helpView)
}

// renderDetails is the side panel for the selected song.
func (m *Model) renderDetails(n graph.Node) string {
	var b strings.Builder
	b.WriteString(styles.title.Render(n.Title))
	fmt.Fprintf(&b, "\n%s %s", styles.label.Render("Artist:"), n.Artist)
	if n.Album != "" {
		fmt.Fprintf(&b, "\n%s %s", styles.label.Render("Album:"), n.Album)
	}
	fmt.Fprintf(&b, "\n%s %s", styles.label.Render("Duration:"), shared.FormatDuration(n.DurationMS))

	connected := m.snapshot.Neighbors(n.ID)
	fmt.Fprintf(&b, "\n\n%s", styles.ok.Render(fmt.Sprintf("Connected songs (%d)", len(connected))))
	for _, c := range connected {
		fmt.Fprintf(&b, "\n  • %s", c.Label())
	}
	return b.String()
}
