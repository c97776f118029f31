// Package overlay renders answers in a floating, auto-hiding window.
package overlay

import (
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"quiz-answer-overlay/src/answer"
	"quiz-answer-overlay/src/config"
)

const windowTitle = "SPI自动答题"

// Window is the overlay. Display and ShowStatus are safe to call from
// any goroutine; rendering is dispatched onto the UI thread.
type Window struct {
	cfg   *config.Manager
	win   fyne.Window
	body  *widget.Label
	stat  *widget.Label
	title *titleBar

	genericDelay time.Duration
	displayDelay time.Duration

	mu        sync.Mutex
	hideTimer *time.Timer
	visible   bool
	posX      int
	posY      int
}

// New builds the overlay window on the given app. The window starts
// hidden; Display and ShowStatus reveal it.
func New(cfg *config.Manager, app fyne.App) *Window {
	w := &Window{
		cfg:          cfg,
		genericDelay: secondsOrDefault(cfg, "gui.auto_hide.generic_seconds", 10),
		displayDelay: secondsOrDefault(cfg, "gui.auto_hide.display_seconds", 15),
		posX:         cfg.GetInt("gui.window.position.x", 100),
		posY:         cfg.GetInt("gui.window.position.y", 100),
	}

	w.win = app.NewWindow(windowTitle)
	w.body = widget.NewLabel("")
	w.body.Wrapping = fyne.TextWrapWord
	w.stat = widget.NewLabel("就绪")

	w.title = newTitleBar(windowTitle)
	w.title.onDoubleTap = w.Hide
	w.title.onDrag = w.dragBy
	w.title.onDragEnd = w.persistPosition

	hover := newHoverArea()
	hover.onEnter = w.cancelHide
	hover.onLeave = func() { w.armHide(w.genericDelay) }

	content := container.NewStack(
		container.NewBorder(w.title, w.stat, nil, nil, w.body),
		hover,
	)
	w.win.SetContent(content)
	w.win.Resize(fyne.NewSize(
		float32(cfg.GetInt("gui.window.width", 400)),
		float32(cfg.GetInt("gui.window.height", 300)),
	))
	w.win.SetCloseIntercept(w.Hide)
	w.win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			w.Hide()
		}
	})
	return w
}

func secondsOrDefault(cfg *config.Manager, key string, def float64) time.Duration {
	return time.Duration(cfg.GetFloat(key, def) * float64(time.Second))
}

// Display renders one payload and (re)arms the post-display hide timer.
func (w *Window) Display(p answer.Payload) {
	text := answer.Render(p)
	stamp := time.Now().Format("15:04:05") + " - " + strings.ToUpper(p.Source())
	fyne.Do(func() {
		w.body.SetText(text)
		w.stat.SetText(stamp)
		w.show()
	})
	w.armHide(w.displayDelay)
}

// ShowStatus puts a transient progress message in the status line.
func (w *Window) ShowStatus(msg string) {
	fyne.Do(func() {
		w.stat.SetText(msg)
		w.show()
	})
	w.armHide(w.genericDelay)
}

func (w *Window) show() {
	w.win.Show()
	w.mu.Lock()
	first := !w.visible
	w.visible = true
	w.mu.Unlock()
	if first {
		// Topmost and alpha can only be applied to a realized window.
		applyPlatformStyle(windowTitle, w.cfg.GetFloat("gui.window.alpha", 0.9), w.posX, w.posY)
	}
}

// Hide closes the window and cancels any pending auto-hide.
func (w *Window) Hide() {
	w.cancelHide()
	fyne.Do(func() {
		w.win.Hide()
	})
	w.mu.Lock()
	w.visible = false
	w.mu.Unlock()
}

// Visible reports whether the overlay is currently shown.
func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

func (w *Window) armHide(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hideTimer != nil {
		w.hideTimer.Stop()
	}
	w.hideTimer = time.AfterFunc(d, func() {
		fyne.Do(func() {
			w.win.Hide()
		})
		w.mu.Lock()
		w.visible = false
		w.mu.Unlock()
	})
}

func (w *Window) cancelHide() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hideTimer != nil {
		w.hideTimer.Stop()
		w.hideTimer = nil
	}
}

func (w *Window) dragBy(dx, dy float32) {
	w.mu.Lock()
	w.posX += int(dx)
	w.posY += int(dy)
	x, y := w.posX, w.posY
	w.mu.Unlock()
	moveWindow(windowTitle, x, y)
}

// persistPosition writes the dragged position back to configuration.
func (w *Window) persistPosition() {
	w.mu.Lock()
	x, y := w.posX, w.posY
	w.mu.Unlock()
	if err := w.cfg.Set("gui.window.position.x", x); err != nil {
		zap.S().Warnf("Failed to persist window position: %v", err)
		return
	}
	if err := w.cfg.Set("gui.window.position.y", y); err != nil {
		zap.S().Warnf("Failed to persist window position: %v", err)
	}
}
