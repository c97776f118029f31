// Package hotkey registers the global trigger, exit and auxiliary key
// combinations and turns qualifying presses into callback invocations.
package hotkey

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	gohook "github.com/robotn/gohook"
	"go.uber.org/zap"

	"quiz-answer-overlay/src/config"
)

type eventKind int

const (
	evTrigger eventKind = iota
	evReload
	evStats
	evExit
)

const (
	debounceInterval = time.Second
	reloadChord      = "ctrl+shift+r"
	statsChord       = "ctrl+shift+s"
)

// Callbacks wires listener events to the orchestrator. Trigger runs on
// its own goroutine so a slow pipeline cannot stall the poll loop.
type Callbacks struct {
	Trigger func()
	Reload  func()
	Stats   func()
	Exit    func()
	Status  func(string)
}

type comboKey struct {
	rawcodes []uint16
	pressed  bool
}

type combo struct {
	kind eventKind
	name string
	keys []*comboKey
}

// Listener tracks chord state from the OS-level hook and forwards
// accepted presses through a buffered event queue to a poll loop.
type Listener struct {
	cbs    Callbacks
	combos []*combo

	mu         sync.Mutex
	listening  bool
	degraded   bool
	lastAccept time.Time
	start      time.Time
	total      int
	accepted   int

	events chan eventKind
	stop   chan struct{}
	done   chan struct{}
}

// New builds a listener for the configured trigger and exit keys plus
// the fixed reload and stats chords.
func New(cfg *config.Manager, cbs Callbacks) (*Listener, error) {
	l := &Listener{
		cbs:    cbs,
		events: make(chan eventKind, 8),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		start:  time.Now(),
	}

	chords := []struct {
		kind eventKind
		spec string
	}{
		{evTrigger, cfg.GetString("hotkey.trigger_key", "f12")},
		{evExit, cfg.GetString("hotkey.exit_key", "ctrl+q")},
		{evReload, reloadChord},
		{evStats, statsChord},
	}
	for _, c := range chords {
		combo, err := parseCombo(c.kind, c.spec)
		if err != nil {
			return nil, err
		}
		l.combos = append(l.combos, combo)
	}
	return l, nil
}

// Start hooks into the OS event stream and runs the poll loop. A hook
// failure (typically missing input permission) leaves the listener in a
// degraded state: no global hotkeys, but the poll loop still serves
// injected events so manual triggering keeps working.
func (l *Listener) Start() {
	l.mu.Lock()
	l.listening = true
	l.mu.Unlock()

	evChan := gohook.Start()
	if evChan == nil {
		l.mu.Lock()
		l.degraded = true
		l.mu.Unlock()
		zap.S().Warn("Hotkey hook unavailable, running without global hotkeys")
		l.notify("热键不可用，请使用手动模式")
	} else {
		go l.watch(evChan)
	}

	go l.poll()
	zap.S().Infof("Hotkey listener started: %s", l.combos[0].name)
}

func (l *Listener) watch(evChan chan gohook.Event) {
	for ev := range evChan {
		switch ev.Kind {
		case gohook.KeyDown:
			l.handleKeyDown(ev.Rawcode)
		case gohook.KeyUp:
			l.handleKeyUp(ev.Rawcode)
		}
	}
}

func (l *Listener) poll() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case kind := <-l.events:
			l.dispatch(kind)
		}
	}
}

func (l *Listener) dispatch(kind eventKind) {
	var cb func()
	switch kind {
	case evTrigger:
		cb = l.cbs.Trigger
	case evReload:
		cb = l.cbs.Reload
	case evStats:
		cb = l.cbs.Stats
	case evExit:
		cb = l.cbs.Exit
	}
	if cb != nil {
		go cb()
	}
}

// handleKeyDown updates every chord's state and fires completed ones.
func (l *Listener) handleKeyDown(rawcode uint16) {
	l.mu.Lock()
	var fired []eventKind
	for _, c := range l.combos {
		matched := false
		for _, k := range c.keys {
			if k.matches(rawcode) {
				k.pressed = true
				matched = true
			}
		}
		if !matched || !c.complete() {
			continue
		}
		c.reset()
		if c.kind == evTrigger && !l.acceptTriggerLocked() {
			continue
		}
		fired = append(fired, c.kind)
	}
	l.mu.Unlock()

	for _, kind := range fired {
		l.enqueue(kind)
	}
}

func (l *Listener) handleKeyUp(rawcode uint16) {
	l.mu.Lock()
	for _, c := range l.combos {
		for _, k := range c.keys {
			if k.matches(rawcode) {
				k.pressed = false
			}
		}
	}
	l.mu.Unlock()
}

// acceptTriggerLocked applies the debounce window. Caller holds l.mu.
func (l *Listener) acceptTriggerLocked() bool {
	l.total++
	now := time.Now()
	if now.Sub(l.lastAccept) < debounceInterval {
		zap.S().Debug("Trigger within debounce window, dropped")
		return false
	}
	l.lastAccept = now
	l.accepted++
	return true
}

func (l *Listener) enqueue(kind eventKind) {
	select {
	case l.events <- kind:
	default:
		zap.S().Warn("Hotkey event queue full, event dropped")
	}
}

// Stop ends the poll loop and unhooks the OS event stream.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.listening {
		l.mu.Unlock()
		return
	}
	l.listening = false
	degraded := l.degraded
	l.mu.Unlock()

	close(l.stop)
	<-l.done
	if !degraded {
		gohook.End()
	}
}

func (l *Listener) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.degraded
}

func (l *Listener) notify(msg string) {
	if l.cbs.Status != nil {
		l.cbs.Status(msg)
	}
}

// Stats summarizes trigger activity since Start.
type Stats struct {
	Runtime  time.Duration
	Total    int
	Accepted int
}

func (l *Listener) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Runtime:  time.Since(l.start),
		Total:    l.total,
		Accepted: l.accepted,
	}
}

func (s Stats) Format() string {
	rate := 0.0
	if s.Total > 0 {
		rate = float64(s.Accepted) / float64(s.Total) * 100
	}
	return fmt.Sprintf("运行时间: %.1f分钟 触发: %d/%d (%.1f%%)",
		s.Runtime.Minutes(), s.Accepted, s.Total, rate)
}

func (k *comboKey) matches(rawcode uint16) bool {
	for _, rc := range k.rawcodes {
		if rc == rawcode {
			return true
		}
	}
	return false
}

func (c *combo) complete() bool {
	for _, k := range c.keys {
		if !k.pressed {
			return false
		}
	}
	return true
}

func (c *combo) reset() {
	for _, k := range c.keys {
		k.pressed = false
	}
}

// parseCombo converts a spec like "ctrl+shift+r" into tracked keys.
func parseCombo(kind eventKind, spec string) (*combo, error) {
	c := &combo{kind: kind, name: spec}
	for _, part := range strings.Split(strings.ToLower(spec), "+") {
		part = strings.TrimSpace(part)
		rawcodes := keyNameToRawcodes(part)
		if len(rawcodes) == 0 {
			return nil, fmt.Errorf("unknown key %q in hotkey %q", part, spec)
		}
		c.keys = append(c.keys, &comboKey{rawcodes: rawcodes})
	}
	if len(c.keys) == 0 {
		return nil, fmt.Errorf("empty hotkey spec %q", spec)
	}
	return c, nil
}

// keyNameToRawcodes maps a key name to Windows virtual-key rawcodes.
// Modifiers return both left and right variants.
func keyNameToRawcodes(name string) []uint16 {
	switch name {
	case "ctrl":
		return []uint16{162, 163} // VK_LCONTROL, VK_RCONTROL
	case "alt":
		return []uint16{164, 165} // VK_LMENU, VK_RMENU
	case "shift":
		return []uint16{160, 161} // VK_LSHIFT, VK_RSHIFT
	case "win", "cmd", "super":
		return []uint16{91, 92} // VK_LWIN, VK_RWIN
	case "space":
		return []uint16{32}
	case "enter", "return":
		return []uint16{13}
	case "esc", "escape":
		return []uint16{27}
	case "tab":
		return []uint16{9}
	case "backspace":
		return []uint16{8}
	case "delete", "del":
		return []uint16{46}
	case "insert", "ins":
		return []uint16{45}
	case "home":
		return []uint16{36}
	case "end":
		return []uint16{35}
	case "pageup", "pgup":
		return []uint16{33}
	case "pagedown", "pgdn":
		return []uint16{34}
	case "left":
		return []uint16{37}
	case "up":
		return []uint16{38}
	case "right":
		return []uint16{39}
	case "down":
		return []uint16{40}
	}

	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65} // VK_A..VK_Z
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48} // VK_0..VK_9
		}
	}
	if strings.HasPrefix(name, "f") {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(n-1) + 112} // VK_F1..VK_F24
		}
	}
	return nil
}
