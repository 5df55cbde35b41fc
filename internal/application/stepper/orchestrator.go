package stepper

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/data/capture"
	"github.com/penwyp/go-flight-stepper/internal/presentation/display"
	"github.com/penwyp/go-flight-stepper/internal/presentation/interaction"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

// reloader is implemented by producers that can re-read their source.
type reloader interface {
	Reload() error
}

// Orchestrator runs the interactive stepper: it routes key presses to the
// session and redraws the terminal whenever the session changes.
type Orchestrator struct {
	config  *Config
	title   string
	session *Session

	display  *display.TerminalDisplay
	keyboard *interaction.KeyboardReader
	watcher  *capture.Watcher

	state        model.InteractionState
	redraw       chan struct{}
	results      chan error
	fingerprints map[string]string
}

// NewOrchestrator creates an orchestrator over producer. title names the
// session in the header.
func NewOrchestrator(config *Config, producer Producer, title string) (*Orchestrator, error) {
	session, err := NewSession(producer, *config)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		config:       config,
		title:        title,
		session:      session,
		display:      display.NewTerminalDisplay(nil),
		redraw:       make(chan struct{}, 1),
		results:      make(chan error, 4),
		fingerprints: make(map[string]string),
	}
	session.Subscribe(o.requestRedraw)
	return o, nil
}

func (o *Orchestrator) requestRedraw() {
	select {
	case o.redraw <- struct{}{}:
	default:
	}
}

// Run starts the main loop until the user quits or ctx ends
func (o *Orchestrator) Run(ctx context.Context) error {
	util.LogInfo("Starting flight stepper", util.F("capture", o.config.CaptureDir))
	defer o.session.Close()

	keyboard, err := interaction.NewKeyboardReader()
	if err != nil {
		return fmt.Errorf("failed to initialize keyboard: %w", err)
	}
	o.keyboard = keyboard
	defer o.keyboard.Close()

	o.display.EnterAlternateScreen()
	defer o.display.ExitAlternateScreen()

	if err := o.session.Restart(ctx); err != nil {
		return err
	}

	var watchEvents <-chan capture.Event
	if o.config.Watch && o.config.CaptureDir != "" {
		o.recordFingerprints()
		watcher, err := capture.NewWatcher(o.config.CaptureDir)
		if err != nil {
			return fmt.Errorf("failed to start capture watcher: %w", err)
		}
		o.watcher = watcher
		defer o.watcher.Close()
		watchEvents = watcher.Events()
	}

	o.updateDisplay()
	for {
		select {
		case <-ctx.Done():
			util.LogInfo("Shutting down flight stepper...")
			return nil

		case <-o.redraw:
			o.updateDisplay()

		case err := <-o.results:
			o.setStatus(err)
			o.updateDisplay()

		case event, ok := <-watchEvents:
			if !ok {
				watchEvents = nil
				continue
			}
			o.handleCaptureChange(ctx, event)
			o.updateDisplay()

		case keyEvent := <-o.keyboard.Events():
			if o.handleKeyboard(ctx, keyEvent) {
				return nil
			}
			o.updateDisplay()
		}
	}
}

func (o *Orchestrator) layoutParam() model.LayoutParam {
	snap := o.session.Timeline().Snapshot()
	entries := o.session.Views()
	if o.state.Selected >= len(entries) {
		o.state.Selected = len(entries) - 1
	}
	if o.state.Selected < 0 {
		o.state.Selected = 0
	}

	return model.LayoutParam{
		Title:       o.title,
		Entries:     entries,
		Cursor:      snap.Cursor,
		TotalChunks: snap.TotalChunks,
		IsAtStart:   snap.IsAtStart,
		IsAtEnd:     snap.IsAtEnd,
		Actions:     o.session.Actions(),
		State:       o.state,
	}
}

func (o *Orchestrator) updateDisplay() {
	o.display.Render(o.layoutParam())
}

func (o *Orchestrator) setStatus(err error) {
	if err == nil {
		o.state.StatusMessage = ""
		return
	}
	util.LogWarn("command failed", util.F("error", err))
	o.state.StatusMessage = err.Error()
}

// handleKeyboard applies one key press. It reports true when the user
// asked to quit.
func (o *Orchestrator) handleKeyboard(ctx context.Context, event interaction.KeyEvent) bool {
	if o.state.ConfirmDialog != nil {
		return o.handleConfirm(event)
	}
	if o.state.PickingAction {
		o.handlePicker(ctx, event)
		return false
	}

	o.state.StatusMessage = ""
	switch event.Type {
	case interaction.KeyRight, interaction.KeyEnter:
		o.step()
	case interaction.KeyUp:
		o.moveSelection(-1)
	case interaction.KeyDown:
		o.moveSelection(1)
	case interaction.KeyEscape:
		if o.state.ShowHelp {
			o.state.ShowHelp = false
		} else {
			return true
		}
	case interaction.KeyChar:
		switch event.Key {
		case 'q', 'Q', 3:
			return true
		case ' ', 'n', 'N':
			o.step()
		case 's', 'S':
			if o.session.SkipEntry() == 0 {
				o.state.StatusMessage = "At the end of the timeline"
			}
		case 'a', 'A':
			o.state.PickingAction = true
		case 'd', 'D':
			o.deleteSelected()
		case 'r', 'R':
			o.confirmRestart(ctx)
		case 't', 'T':
			o.state.LayoutStyle = (o.state.LayoutStyle + 1) % 2
		case 'h', 'H':
			o.state.ShowHelp = !o.state.ShowHelp
		}
	}
	return false
}

func (o *Orchestrator) handleConfirm(event interaction.KeyEvent) bool {
	dialog := o.state.ConfirmDialog
	switch {
	case event.Type == interaction.KeyChar && (event.Key == 'y' || event.Key == 'Y'):
		o.state.ConfirmDialog = nil
		if dialog.OnConfirm != nil {
			dialog.OnConfirm()
		}
		o.display.ClearScreen()
	case event.Type == interaction.KeyEscape,
		event.Type == interaction.KeyChar && (event.Key == 'n' || event.Key == 'N'):
		o.state.ConfirmDialog = nil
		if dialog.OnCancel != nil {
			dialog.OnCancel()
		}
		o.display.ClearScreen()
	}
	return false
}

func (o *Orchestrator) handlePicker(ctx context.Context, event interaction.KeyEvent) {
	if event.Type == interaction.KeyEscape {
		o.state.PickingAction = false
		return
	}
	if event.Type != interaction.KeyChar || event.Key < '1' || event.Key > '9' {
		return
	}

	actions := o.session.Actions()
	i := int(event.Key - '1')
	if i >= len(actions) {
		return
	}
	o.state.PickingAction = false
	name := actions[i]
	o.state.StatusMessage = "Calling " + name + "..."

	go func() {
		o.results <- o.session.AddAction(ctx, name, "")
	}()
}

func (o *Orchestrator) step() {
	if !o.session.Step() {
		o.state.StatusMessage = "At the end of the timeline"
	}
}

func (o *Orchestrator) moveSelection(delta int) {
	n := len(o.session.Timeline().Entries())
	next := o.state.Selected + delta
	if next >= 0 && next < n {
		o.state.Selected = next
	}
}

func (o *Orchestrator) deleteSelected() {
	i := o.state.Selected
	if i == 0 {
		o.state.StatusMessage = "The render entry cannot be deleted; restart instead"
		return
	}
	if !o.session.Delete(i) {
		o.state.StatusMessage = "Cannot delete an entry the cursor has reached"
		return
	}
	if o.state.Selected > 0 {
		o.state.Selected--
	}
}

func (o *Orchestrator) confirmRestart(ctx context.Context) {
	o.state.ConfirmDialog = &model.ConfirmDialog{
		Title:   "Restart",
		Message: "This drops every entry and reloads the render response. Continue?",
		OnConfirm: func() {
			o.state.Selected = 0
			o.setStatus(o.session.Restart(ctx))
		},
	}
}

// handleCaptureChange restarts the session when a capture file really
// changed.
func (o *Orchestrator) handleCaptureChange(ctx context.Context, event capture.Event) {
	fingerprint, err := util.CalculateFileFingerprint(event.Path)
	if err == nil && o.fingerprints[event.Path] == fingerprint {
		util.LogDebugf("capture file rewritten without changes: %s", event.Path)
		return
	}
	o.fingerprints[event.Path] = fingerprint

	if r, ok := o.session.producer.(reloader); ok {
		if err := r.Reload(); err != nil {
			o.setStatus(fmt.Errorf("reload capture: %w", err))
			return
		}
	}
	util.LogInfo("capture changed, restarting", util.F("path", event.Path), util.F("op", event.Operation))
	o.state.Selected = 0
	if err := o.session.Restart(ctx); err != nil {
		o.setStatus(err)
		return
	}
	o.state.StatusMessage = "Capture changed: restarted from " + filepath.Base(event.Path)
}

func (o *Orchestrator) recordFingerprints() {
	m, err := capture.LoadManifest(o.config.CaptureDir)
	if err != nil {
		return
	}
	paths := []string{filepath.Join(o.config.CaptureDir, capture.ManifestFile), filepath.Join(o.config.CaptureDir, m.Render)}
	for _, a := range m.Actions {
		paths = append(paths, filepath.Join(o.config.CaptureDir, a.Response))
	}
	for _, p := range paths {
		if fp, err := util.CalculateFileFingerprint(p); err == nil {
			o.fingerprints[p] = fp
		}
	}
}
