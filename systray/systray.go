package systray

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"

	"markestedt/snapkeys/logging"
)

var logger = logging.For("tray")

// SystrayManager manages the system tray icon and menu
type SystrayManager struct {
	dashboardURL string
	iconData     []byte

	quit     chan struct{}
	quitOnce sync.Once

	mu     sync.Mutex
	ready  bool
	status *systray.MenuItem
}

// NewSystrayManager creates a tray. An empty dashboardURL hides the
// dashboard entry.
func NewSystrayManager(dashboardURL string) *SystrayManager {
	return &SystrayManager{
		dashboardURL: dashboardURL,
		iconData:     Icon(),
		quit:         make(chan struct{}),
	}
}

// Run starts the system tray (blocking call)
func (m *SystrayManager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Stop stops the system tray
func (m *SystrayManager) Stop() {
	systray.Quit()
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *SystrayManager) WaitForQuit() <-chan struct{} {
	return m.quit
}

// SetStatus updates the status line and tooltip.
func (m *SystrayManager) SetStatus(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return
	}
	m.status.SetTitle(text)
	systray.SetTooltip("SnapKeys - " + text)
}

func (m *SystrayManager) onReady() {
	if len(m.iconData) > 0 {
		systray.SetIcon(m.iconData)
	}

	systray.SetTitle("SnapKeys")
	systray.SetTooltip("SnapKeys - Clipboard image hotkeys")

	status := systray.AddMenuItem("Idle", "Last combo")
	status.Disable()
	systray.AddSeparator()

	var openCh chan struct{}
	if m.dashboardURL != "" {
		mOpen := systray.AddMenuItem("Open dashboard", "Open the SnapKeys web dashboard")
		openCh = mOpen.ClickedCh
	}
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit SnapKeys")

	m.mu.Lock()
	m.status = status
	m.ready = true
	m.mu.Unlock()

	go func() {
		for {
			select {
			case <-openCh:
				if err := openURL(m.dashboardURL); err != nil {
					logger.Error("Failed to open dashboard", "error", err)
				}
			case <-mQuit.ClickedCh:
				logger.Info("User requested quit from system tray")
				m.quitOnce.Do(func() { close(m.quit) })
				systray.Quit()
				return
			}
		}
	}()
}

func (m *SystrayManager) onExit() {
	logger.Info("System tray exited")
}

// browserCommand builds the command that opens url in the default browser
func browserCommand(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "windows":
		return exec.Command("cmd", "/c", "start", url), nil
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", url), nil
	default:
		return nil, fmt.Errorf("unsupported platform for opening browser: %s", goos)
	}
}

func openURL(url string) error {
	cmd, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	logger.Info("Opening dashboard", "url", url)
	return cmd.Start()
}
