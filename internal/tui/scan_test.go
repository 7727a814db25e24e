package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/tvdiscovery/internal/discovery"
)

var livingRoom = &discovery.Device{Name: "Living Room TV", IP: "192.168.1.20"}

// blockingScan never reports anything and returns when cancelled. Each call
// closes a channel on exit so tests can observe cancellation.
type blockingScan struct {
	exited chan chan struct{}
}

func newBlockingScan() *blockingScan {
	return &blockingScan{exited: make(chan chan struct{}, 8)}
}

func (b *blockingScan) Scan(ctx context.Context, onDevice func(*discovery.Device)) error {
	done := make(chan struct{})
	b.exited <- done
	<-ctx.Done()
	close(done)
	return ctx.Err()
}

func update(t *testing.T, m ScanModel, msg tea.Msg) (ScanModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	sm, ok := next.(ScanModel)
	if !ok {
		t.Fatalf("Update() returned %T, want ScanModel", next)
	}
	return sm, cmd
}

// started returns a model with its first scan running on scan
func started(t *testing.T, scan func(context.Context, func(*discovery.Device)) error) ScanModel {
	t.Helper()
	m := NewScanModel(Config{Scan: scan, Timeout: 10 * time.Second, ServiceTypes: []string{"_airplay._tcp"}})

	msg := m.Init()()
	if _, ok := msg.(startScanMsg); !ok {
		t.Fatalf("Init() produced %T, want startScanMsg", msg)
	}
	m, _ = update(t, m, msg)
	t.Cleanup(m.stopScan)
	return m
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestScanModel_StartsScanning(t *testing.T) {
	m := started(t, newBlockingScan().Scan)

	if !m.Scanning {
		t.Error("Scanning = false after start")
	}
	view := m.View()
	for _, want := range []string{"SEARCHING FOR DEVICES", "_airplay._tcp", AppName} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestScanModel_DevicesAppearWhileScanning(t *testing.T) {
	m := started(t, newBlockingScan().Scan)

	m, cmd := update(t, m, deviceFoundMsg{session: m.session.id, device: livingRoom})
	if cmd == nil {
		t.Error("expected a command to wait for the next event")
	}

	if got := len(m.DeviceList.Items()); got != 1 {
		t.Fatalf("list has %d items, want 1", got)
	}
	if !m.Scanning {
		t.Error("a device should not end the scan")
	}
	if !strings.Contains(m.View(), "Living Room TV") {
		t.Error("View() should list the device")
	}
}

func TestScanModel_ScanComplete(t *testing.T) {
	tests := []struct {
		name    string
		devices []*discovery.Device
		err     error
		want    string
	}{
		{"devices found", []*discovery.Device{livingRoom}, nil, "SCAN COMPLETE • 1 device"},
		{"nothing found", nil, nil, "No devices found"},
		{"scan error", nil, errors.New("no multicast interface"), "Scan failed: no multicast interface"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := started(t, newBlockingScan().Scan)
			for _, d := range tt.devices {
				m, _ = update(t, m, deviceFoundMsg{session: m.session.id, device: d})
			}
			m, _ = update(t, m, scanCompleteMsg{session: m.session.id, err: tt.err})

			if m.Scanning {
				t.Error("Scanning = true after completion")
			}
			if !strings.Contains(m.View(), tt.want) {
				t.Errorf("View() missing %q", tt.want)
			}
		})
	}
}

func TestScanModel_RescanDropsStaleEvents(t *testing.T) {
	scan := newBlockingScan()
	m := started(t, scan.Scan)
	first := m.session.id
	firstExited := <-scan.exited

	m, _ = update(t, m, deviceFoundMsg{session: first, device: livingRoom})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})

	select {
	case <-firstExited:
	case <-time.After(time.Second):
		t.Fatal("rescan did not cancel the running scan")
	}

	if m.session.id == first {
		t.Fatal("rescan did not start a new session")
	}
	if got := len(m.DeviceList.Items()); got != 0 {
		t.Errorf("list has %d items after rescan, want 0", got)
	}

	m, _ = update(t, m, deviceFoundMsg{session: first, device: livingRoom})
	m, _ = update(t, m, scanCompleteMsg{session: first})
	if got := len(m.DeviceList.Items()); got != 0 {
		t.Errorf("stale device was listed")
	}
	if !m.Scanning {
		t.Error("stale completion ended the new scan")
	}
}

func TestScanModel_Quit(t *testing.T) {
	scan := newBlockingScan()
	m := started(t, scan.Scan)
	exited := <-scan.exited

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !isQuit(cmd) {
		t.Fatal("q should quit")
	}

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("quit did not cancel the running scan")
	}
}

func TestScanModel_SelectDevice(t *testing.T) {
	m := started(t, newBlockingScan().Scan)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if isQuit(cmd) {
		t.Fatal("enter with an empty list should not quit")
	}

	m, _ = update(t, m, deviceFoundMsg{session: m.session.id, device: livingRoom})
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !isQuit(cmd) {
		t.Fatal("enter on a device should quit")
	}
	if got := m.GetSelectedDevice(); got != livingRoom {
		t.Errorf("GetSelectedDevice() = %v, want %v", got, livingRoom)
	}
}

func TestScanModel_EventsFlowFromScan(t *testing.T) {
	m := started(t, func(ctx context.Context, onDevice func(*discovery.Device)) error {
		onDevice(livingRoom)
		return nil
	})

	msg := waitForScanEvent(m.session)()
	found, ok := msg.(deviceFoundMsg)
	if !ok {
		t.Fatalf("first event = %T, want deviceFoundMsg", msg)
	}
	if found.device != livingRoom {
		t.Errorf("device = %v, want %v", found.device, livingRoom)
	}
	m, _ = update(t, m, found)

	msg = waitForScanEvent(m.session)()
	if _, ok := msg.(scanCompleteMsg); !ok {
		t.Fatalf("second event = %T, want scanCompleteMsg", msg)
	}
	m, _ = update(t, m, msg)

	if m.Scanning || m.Err != nil {
		t.Errorf("Scanning = %v, Err = %v after a clean scan", m.Scanning, m.Err)
	}
	if got := len(m.DeviceList.Items()); got != 1 {
		t.Errorf("list has %d items, want 1", got)
	}
}

func TestScanModel_WindowResize(t *testing.T) {
	m := NewScanModel(Config{Scan: newBlockingScan().Scan})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})

	if m.Width != 100 || m.Height != 40 {
		t.Errorf("size = %dx%d, want 100x40", m.Width, m.Height)
	}
	if got := m.DeviceList.Width(); got != 94 {
		t.Errorf("list width = %d, want 94", got)
	}
}

func TestScanPercent(t *testing.T) {
	tests := []struct {
		elapsed, timeout time.Duration
		want             float64
	}{
		{0, 10 * time.Second, 0},
		{5 * time.Second, 10 * time.Second, 0.5},
		{12 * time.Second, 10 * time.Second, 1},
		{5 * time.Second, 0, 0},
	}

	for _, tt := range tests {
		if got := scanPercent(tt.elapsed, tt.timeout); got != tt.want {
			t.Errorf("scanPercent(%v, %v) = %v, want %v", tt.elapsed, tt.timeout, got, tt.want)
		}
	}
}

func TestSafeWidth(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, MinTerminalWidth},
		{80, 80},
		{500, MaxContentWidth},
	}

	for _, tt := range tests {
		if got := SafeWidth(tt.in); got != tt.want {
			t.Errorf("SafeWidth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
