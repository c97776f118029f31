package overlay

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// hoverArea is a transparent layer over the overlay content that turns
// pointer entry and exit into auto-hide timer callbacks. It handles
// hovering only, so taps and drags fall through to the widgets below.
type hoverArea struct {
	widget.BaseWidget
	onEnter func()
	onLeave func()
}

var _ desktop.Hoverable = (*hoverArea)(nil)

func newHoverArea() *hoverArea {
	h := &hoverArea{}
	h.ExtendBaseWidget(h)
	return h
}

func (h *hoverArea) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}

func (h *hoverArea) MouseIn(*desktop.MouseEvent) {
	if h.onEnter != nil {
		h.onEnter()
	}
}

func (h *hoverArea) MouseMoved(*desktop.MouseEvent) {}

func (h *hoverArea) MouseOut() {
	if h.onLeave != nil {
		h.onLeave()
	}
}

// titleBar is the drag handle. Dragging it moves the window and
// double-clicking it hides the overlay; the body below stays inert so
// text can be selected without moving the window.
type titleBar struct {
	widget.BaseWidget
	label       *widget.Label
	onDoubleTap func()
	onDrag      func(dx, dy float32)
	onDragEnd   func()
}

var (
	_ fyne.DoubleTappable = (*titleBar)(nil)
	_ fyne.Draggable      = (*titleBar)(nil)
)

func newTitleBar(text string) *titleBar {
	t := &titleBar{
		label: widget.NewLabelWithStyle(text, fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
	}
	t.ExtendBaseWidget(t)
	return t
}

func (t *titleBar) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.label)
}

func (t *titleBar) DoubleTapped(*fyne.PointEvent) {
	if t.onDoubleTap != nil {
		t.onDoubleTap()
	}
}

func (t *titleBar) Dragged(ev *fyne.DragEvent) {
	if t.onDrag != nil {
		t.onDrag(ev.Dragged.DX, ev.Dragged.DY)
	}
}

func (t *titleBar) DragEnd() {
	if t.onDragEnd != nil {
		t.onDragEnd()
	}
}
