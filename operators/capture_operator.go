package operators

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/teranos/screencap"
	"github.com/teranos/screencap/logging"
	"github.com/teranos/screencap/trip"
)

const (
	// maxMessages is how many on-screen notifications stay visible.
	maxMessages = 4
	// shutterFrames is how long the shutter flash lasts.
	shutterFrames = 6
)

// errQuit aborts a capture still running when the operator quits.
var errQuit = errors.New("operator quit")

// Action is one recorded interaction with the operator.
type Action struct {
	Type      string
	Details   string
	Timestamp time.Time
}

type frameMsg time.Time

type styles struct {
	title   lipgloss.Style
	status  lipgloss.Style
	busy    lipgloss.Style
	message lipgloss.Style
	failure lipgloss.Style
	shutter lipgloss.Style
	help    lipgloss.Style
	panel   lipgloss.Style
	heading lipgloss.Style
	focused lipgloss.Style
	normal  lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0")),
		busy:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB86C")),
		message: lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")),
		shutter: lipgloss.NewStyle().Bold(true).Reverse(true),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		panel:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7D56F4")).Padding(0, 1),
		heading: lipgloss.NewStyle().Bold(true),
		focused: lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C")),
		normal:  lipgloss.NewStyle(),
	}
}

// CaptureOperator is the interactive host: a bubbletea model that runs the
// scene's frame loop, maps hotkeys to capture requests and reports the
// controller's notifications. It is the controller's Notifier.
//
// Every tick renders one frame and then calls FrameCompleted, so captures
// advance exactly one step per presented frame.
type CaptureOperator struct {
	host   *Host
	ctrl   *screencap.Controller
	panel  *settingsPanel
	keys   KeyMap
	styles styles
	logger *logging.Logger

	messages  []string
	shutter   int
	shutters  int
	saved     []string
	lastErr   error
	actions   []Action
	startTime time.Time
	quitting  bool
}

// NewCaptureOperator wires ctrl to host and registers the operator as the
// controller's notifier.
func NewCaptureOperator(host *Host, ctrl *screencap.Controller) *CaptureOperator {
	logger := logging.NopLogger()
	op := &CaptureOperator{
		host:      host,
		ctrl:      ctrl,
		keys:      DefaultKeyMap(),
		styles:    defaultStyles(),
		logger:    logger,
		startTime: time.Now(),
	}
	op.panel = newSettingsPanel(ctrl.Policy(), host, logger)
	ctrl.WithNotifier(op)
	op.recordInteraction("start", fmt.Sprintf("%dx%d", host.Width, host.Height))
	return op
}

// WithKeys replaces the key bindings.
func (op *CaptureOperator) WithKeys(keys KeyMap) *CaptureOperator {
	op.keys = keys
	return op
}

// WithLogger sets the structured logger.
func (op *CaptureOperator) WithLogger(logger *logging.Logger) *CaptureOperator {
	if logger != nil {
		op.logger = logger.WithComponent("operator")
		op.panel.logger = op.logger
	}
	return op
}

// Init starts the frame loop.
func (op *CaptureOperator) Init() tea.Cmd {
	return op.tick()
}

func (op *CaptureOperator) tick() tea.Cmd {
	return tea.Tick(op.host.FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update handles frame ticks and key presses.
func (op *CaptureOperator) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		if op.quitting {
			return op, nil
		}
		op.Frame()
		return op, op.tick()
	case tea.KeyMsg:
		return op.handleKey(msg)
	}
	return op, nil
}

// Frame presents one frame and advances a running capture by it.
func (op *CaptureOperator) Frame() {
	op.host.HUDText = op.hudText()
	if err := op.host.Step(); err != nil {
		op.logger.Warn("frame not presented", "frame", op.host.Frames(), "error", err)
	}
	if op.shutter > 0 {
		op.shutter--
	}
	if res := op.ctrl.FrameCompleted(); res != nil {
		op.finished(res)
	}
}

func (op *CaptureOperator) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC || (key.Matches(msg, op.keys.Quit) && !op.panel.Editing()) {
		return op, op.quit()
	}

	if op.panel.Open() {
		cmd, open := op.panel.Update(msg, op.keys)
		if !open {
			op.recordInteraction("settings", "closed")
		}
		return op, cmd
	}

	switch {
	case key.Matches(msg, op.keys.Simple):
		op.Shoot(screencap.ModeSimple, false)
	case key.Matches(msg, op.keys.Rendered):
		op.Shoot(screencap.ModeRendered, false)
	case key.Matches(msg, op.keys.Panorama):
		op.Shoot(screencap.ModeRendered360, false)
	case key.Matches(msg, op.keys.Rendered3D):
		op.Shoot(screencap.ModeRendered, true)
	case key.Matches(msg, op.keys.Panorama3D):
		op.Shoot(screencap.ModeRendered360, true)
	case key.Matches(msg, op.keys.Settings):
		op.recordInteraction("settings", "opened")
		return op, op.panel.Show()
	case key.Matches(msg, op.keys.Orbit):
		// the sequencer owns the override until Restore
		if op.ctrl.Busy() {
			return op, nil
		}
		op.host.Orbit.SetEnabled(!op.host.Orbit.Enabled())
		op.recordInteraction("orbit", fmt.Sprintf("%t", op.host.Orbit.Enabled()))
	case key.Matches(msg, op.keys.TurnLeft):
		op.turn(-0.1)
	case key.Matches(msg, op.keys.TurnRight):
		op.turn(0.1)
	}
	return op, nil
}

// turn takes the camera off its orbit and rotates it in place.
func (op *CaptureOperator) turn(yaw float64) {
	if op.ctrl.Busy() {
		return
	}
	op.host.Orbit.SetEnabled(false)
	op.host.Camera.Turn(yaw, 0)
}

// Shoot starts a capture from the current settings.
func (op *CaptureOperator) Shoot(mode screencap.Mode, stereo bool) *CaptureOperator {
	req := op.ctrl.RequestFromSettings(mode, stereo)
	op.recordInteraction("shoot", req.Label())

	if err := op.ctrl.Begin(req); err != nil {
		op.lastErr = err
		return op
	}
	if !op.ctrl.Busy() {
		op.finished(op.ctrl.Last())
	}
	return op
}

func (op *CaptureOperator) finished(res *screencap.Result) {
	if res == nil {
		return
	}
	if !res.OK() {
		op.lastErr = res.Err
		op.recordInteraction("capture_failed", res.Err.Error())
		return
	}
	op.lastErr = nil
	op.saved = append(op.saved, res.Filename)
	op.recordInteraction("capture", res.Filename)
}

func (op *CaptureOperator) quit() tea.Cmd {
	if op.ctrl.Busy() {
		op.finished(op.ctrl.Abort(errQuit))
	}
	op.quitting = true
	op.logger.Info("operator stopped", "frames", op.host.Frames(), "saved", len(op.saved),
		"uptime", time.Since(op.startTime).String())
	op.recordInteraction("quit", fmt.Sprintf("%d frames", op.host.Frames()))
	return tea.Quit
}

// Notify shows message in the operator's message area when onScreen is set
// and always logs it.
func (op *CaptureOperator) Notify(message string, onScreen bool) {
	op.logger.Info("notification", "message", message, "on_screen", onScreen)
	if !onScreen {
		return
	}
	op.messages = append(op.messages, message)
	if len(op.messages) > maxMessages {
		op.messages = op.messages[len(op.messages)-maxMessages:]
	}
}

// Shutter flashes the shutter indicator for a few frames.
func (op *CaptureOperator) Shutter() {
	op.shutter = shutterFrames
	op.shutters++
}

// Shutters returns how many times the shutter fired.
func (op *CaptureOperator) Shutters() int {
	return op.shutters
}

// Messages returns the visible notifications, oldest first.
func (op *CaptureOperator) Messages() []string {
	return append([]string(nil), op.messages...)
}

// Saved returns the filenames written so far.
func (op *CaptureOperator) Saved() []string {
	return append([]string(nil), op.saved...)
}

// Err returns the last capture failure, cleared by the next success.
func (op *CaptureOperator) Err() error {
	return op.lastErr
}

// Actions returns the recorded interactions.
func (op *CaptureOperator) Actions() []Action {
	return append([]Action(nil), op.actions...)
}

func (op *CaptureOperator) recordInteraction(actionType, details string) {
	op.actions = append(op.actions, Action{
		Type:      actionType,
		Details:   details,
		Timestamp: time.Now(),
	})
}

// hudText is drawn into the frame itself, so it shows up in "as you see it"
// captures and never in rendered ones.
func (op *CaptureOperator) hudText() string {
	lines := []string{fmt.Sprintf("screencap  frame %d", op.host.Frames())}
	if op.ctrl.Busy() {
		lines = append(lines, "capturing "+op.ctrl.State().String())
	}
	if n := len(op.messages); n > 0 {
		lines = append(lines, op.messages[n-1])
	}
	return strings.Join(lines, "\n")
}

// View draws the status screen.
func (op *CaptureOperator) View() string {
	if op.quitting {
		return ""
	}
	st := op.styles
	var b strings.Builder

	b.WriteString(st.title.Render("screencap"))
	if op.shutter > 0 {
		b.WriteString(" " + st.shutter.Render(" ● "))
	}
	b.WriteString("\n")

	pos := op.host.Camera.LocalPosition()
	b.WriteString(st.status.Render(fmt.Sprintf("frame %d · %dx%d · camera (%.2f, %.2f, %.2f) · orbit %t · time ×%.2f",
		op.host.Frames(), op.host.Width, op.host.Height, pos.X, pos.Y, pos.Z,
		op.host.Orbit.Enabled(), op.host.Clock.TimeScale())))
	b.WriteString("\n")

	if op.ctrl.Busy() {
		b.WriteString(st.busy.Render("capturing: " + op.ctrl.State().String()))
		b.WriteString("\n")
	}

	for _, m := range op.messages {
		b.WriteString(st.message.Render(m))
		b.WriteString("\n")
	}
	if op.lastErr != nil {
		msg := op.lastErr.Error()
		if t, ok := trip.As(op.lastErr); ok {
			msg = t.UserMessage()
		}
		b.WriteString(st.failure.Render(msg))
		b.WriteString("\n")
	}

	if op.panel.Open() {
		b.WriteString(op.panel.View(st))
		b.WriteString("\n")
	}

	b.WriteString(st.help.Render(op.help()))
	return b.String()
}

func (op *CaptureOperator) help() string {
	bindings := []key.Binding{
		op.keys.Simple, op.keys.Rendered, op.keys.Panorama, op.keys.Rendered3D,
		op.keys.Panorama3D, op.keys.Settings, op.keys.Orbit, op.keys.Quit,
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

var (
	_ tea.Model          = (*CaptureOperator)(nil)
	_ screencap.Notifier = (*CaptureOperator)(nil)
)
