package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/tvdiscovery/internal/discovery"
	"github.com/muurk/tvdiscovery/internal/logging"
	"github.com/muurk/tvdiscovery/internal/ui"
)

// Messages for async operations
type startScanMsg struct{}

type deviceFoundMsg struct {
	session int
	device  *discovery.Device
}

type scanCompleteMsg struct {
	session int
	err     error
}

// Config configures the live scan screen
type Config struct {
	// Scan runs one discovery session; discovery.Scanner.Stream fits
	Scan ui.ScanFunc

	// Timeout is the scan ceiling, used to fill the progress bar
	Timeout time.Duration

	// ServiceTypes are shown under the title
	ServiceTypes []string
}

// scanSession is one running scan. Events from a session that is no longer
// current are dropped by Update.
type scanSession struct {
	id     int
	events chan tea.Msg
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *scanSession) run(scan ui.ScanFunc) {
	err := scan(s.ctx, func(device *discovery.Device) {
		s.send(deviceFoundMsg{session: s.id, device: device})
	})
	s.send(scanCompleteMsg{session: s.id, err: err})
}

func (s *scanSession) send(msg tea.Msg) {
	select {
	case s.events <- msg:
	case <-s.ctx.Done():
	}
}

// waitForScanEvent delivers the next event of a session to Update
func waitForScanEvent(s *scanSession) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-s.events:
			return msg
		case <-s.ctx.Done():
			return nil
		}
	}
}

// scanKeyMap defines key bindings for the scan screen
type scanKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Filter key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k scanKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Filter, k.Rescan, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k scanKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Filter, k.Rescan, k.Quit},
	}
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

// FilterValue filters by name or address
func (d deviceItem) FilterValue() string {
	return d.device.Name + " " + d.device.IP
}

// deviceDelegate renders a device as a two-line row
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int { return 2 }

func (d deviceDelegate) Spacing() int { return 1 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(deviceItem)
	if !ok {
		return
	}
	device := di.device

	var name string
	if index == m.Index() {
		name = SelectedDeviceNameStyle.Render("→ " + device.Name)
	} else {
		name = DeviceNameStyle.Render(device.Name)
	}

	detail := device.IP
	if !device.DiscoveredAt.IsZero() {
		detail += " • found " + device.DiscoveredAt.Format("15:04:05")
	}

	row := lipgloss.JoinVertical(lipgloss.Left, name, DeviceDetailStyle.Render(detail))
	_, _ = fmt.Fprint(w, lipgloss.NewStyle().MaxWidth(d.width).Render(row))
}

// ScanModel is the live scan screen: devices are listed as soon as the
// engine delivers them and the progress bar tracks the scan ceiling.
type ScanModel struct {
	Scanning      bool
	DeviceList    list.Model
	Selected      bool
	Err           error
	ScanStartTime time.Time

	// UI state
	Width       int
	Height      int
	Spinner     spinner.Model
	ProgressBar progress.Model
	Help        help.Model
	Keys        scanKeyMap

	config   Config
	session  *scanSession
	sessions int
}

// NewScanModel creates a new scan screen model
func NewScanModel(config Config) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	deviceList := list.New([]list.Item{}, deviceDelegate{width: MinTerminalWidth - 6}, MinTerminalWidth-6, 10)
	deviceList.Title = "Discovered Devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	deviceList.SetFilteringEnabled(true)
	deviceList.Styles.Title = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)

	keys := scanKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return ScanModel{
		DeviceList:  deviceList,
		Spinner:     s,
		ProgressBar: progressBar,
		Help:        help.New(),
		Keys:        keys,
		config:      config,
	}
}

// Init starts the first scan
func (m ScanModel) Init() tea.Cmd {
	return func() tea.Msg { return startScanMsg{} }
}

// Update handles messages and updates the model
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		width := SafeWidth(msg.Width) - 6
		m.DeviceList.SetDelegate(deviceDelegate{width: width})
		m.DeviceList.SetSize(width, listHeight(msg.Height))
		return m, nil

	case startScanMsg:
		return m.startScan()

	case deviceFoundMsg:
		if !m.isCurrent(msg.session) {
			return m, nil
		}
		cmd = m.DeviceList.InsertItem(len(m.DeviceList.Items()), deviceItem{device: msg.device})
		return m, tea.Batch(cmd, waitForScanEvent(m.session))

	case scanCompleteMsg:
		if !m.isCurrent(msg.session) {
			return m, nil
		}
		m.Scanning = false
		m.Err = msg.err
		m.session.cancel()
		logging.Debug("TUI scan complete", zap.Int("devices", len(m.DeviceList.Items())))
		return m, nil

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// updateKeys handles keyboard input. While the filter prompt is open every
// key goes to the list.
func (m ScanModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.DeviceList.SettingFilter() {
		var cmd tea.Cmd
		m.DeviceList, cmd = m.DeviceList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.stopScan()
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Rescan):
		return m.startScan()

	case key.Matches(msg, m.Keys.Select):
		if m.DeviceList.SelectedItem() != nil {
			m.Selected = true
			m.stopScan()
			return m, tea.Quit
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// startScan cancels any running scan and starts a fresh one with an empty list
func (m ScanModel) startScan() (ScanModel, tea.Cmd) {
	m.stopScan()

	m.sessions++
	ctx, cancel := context.WithCancel(context.Background())
	session := &scanSession{
		id:     m.sessions,
		events: make(chan tea.Msg),
		ctx:    ctx,
		cancel: cancel,
	}
	m.session = session
	m.Scanning = true
	m.Selected = false
	m.Err = nil
	m.ScanStartTime = time.Now()
	m.DeviceList.ResetFilter()
	clearCmd := m.DeviceList.SetItems([]list.Item{})

	logging.Debug("TUI scan started", zap.Int("session", session.id))
	go session.run(m.config.Scan)

	return m, tea.Batch(clearCmd, waitForScanEvent(session), m.Spinner.Tick)
}

func (m ScanModel) stopScan() {
	if m.session != nil {
		m.session.cancel()
	}
}

func (m ScanModel) isCurrent(session int) bool {
	return m.session != nil && m.session.id == session
}

// listHeight leaves room for the frame and the status block
func listHeight(terminalHeight int) int {
	h := terminalHeight - 18
	if h < 6 {
		return 6
	}
	return h
}

// View renders the scan screen
func (m ScanModel) View() string {
	width := SafeWidth(m.Width)

	var b strings.Builder
	b.WriteString(m.renderStatus(width))
	b.WriteString("\n")

	switch {
	case m.Scanning || len(m.DeviceList.Items()) > 0:
		b.WriteString(m.DeviceList.View())
	case m.Err != nil:
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n\n")
		b.WriteString(renderHints(ui.ScanFailureTroubleshooting))
	default:
		b.WriteString("  ")
		b.WriteString(WarningStyle.Render("⚠ No devices found on your network"))
		b.WriteString("\n\n")
		b.WriteString(renderHints(ui.NoDevicesTroubleshooting))
	}

	return RenderApplicationContainer(b.String(), m.Help.View(m.Keys), m.Width, m.Height)
}

// renderStatus renders the centered title, progress bar and counters
func (m ScanModel) renderStatus(width int) string {
	found := len(m.DeviceList.Items())
	elapsed := time.Since(m.ScanStartTime).Truncate(time.Second)

	var title, percent string
	if m.Scanning {
		title = fmt.Sprintf("%s SEARCHING FOR DEVICES", m.Spinner.View())
		percent = m.ProgressBar.ViewAs(scanPercent(time.Since(m.ScanStartTime), m.config.Timeout))
	} else {
		title = fmt.Sprintf("✓ SCAN COMPLETE • %s", pluralDevices(found))
		percent = m.ProgressBar.ViewAs(1)
	}

	subtitle := "Querying " + strings.Join(m.config.ServiceTypes, ", ")
	if len(m.config.ServiceTypes) == 0 {
		subtitle = "Querying default service types"
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		RenderTitle(title),
		RenderSubtitle(subtitle),
		"",
		percent,
		"",
		RenderSubtitle(fmt.Sprintf("Elapsed: %s • %s", elapsed, pluralDevices(found))),
	)

	return lipgloss.Place(width-4, 0, lipgloss.Center, lipgloss.Top, content)
}

// scanPercent is the fraction of the scan ceiling used so far, capped at 1
func scanPercent(elapsed, timeout time.Duration) float64 {
	if timeout <= 0 {
		return 0
	}
	return min(1, float64(elapsed)/float64(timeout))
}

func pluralDevices(n int) string {
	if n == 1 {
		return "1 device"
	}
	return fmt.Sprintf("%d devices", n)
}

func renderHints(hints []string) string {
	var b strings.Builder
	b.WriteString("  Troubleshooting:\n")
	for _, hint := range hints {
		b.WriteString("    • " + hint + "\n")
	}
	return b.String()
}

// GetSelectedDevice returns the selected device (if any)
func (m ScanModel) GetSelectedDevice() *discovery.Device {
	if !m.Selected {
		return nil
	}
	if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return item.device
	}
	return nil
}

// Run shows the scan screen full-screen until the user quits and returns
// the device they selected, or nil.
func Run(config Config) (*discovery.Device, error) {
	program := tea.NewProgram(NewScanModel(config), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("scan screen failed: %w", err)
	}
	if m, ok := final.(ScanModel); ok {
		return m.GetSelectedDevice(), nil
	}
	return nil, nil
}
