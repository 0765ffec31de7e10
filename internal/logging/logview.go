package logging

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
)

// Entry is one rendered line in a LogView.
type Entry struct {
	Level Level
	Text  string
	At    time.Time
}

// LogView is a scrollable, color-coded log pane for the desktop
// front-ends, capped at maxLines to bound render cost on long sessions.
type LogView struct {
	box      *fyne.Container
	scroll   *container.Scroll
	entries  []Entry
	maxLines int
}

// NewLogView builds a log pane with a sensible default minimum size.
func NewLogView() *LogView {
	box := container.NewVBox()
	scroll := container.NewVScroll(box)
	scroll.SetMinSize(fyne.NewSize(600, 300))
	return &LogView{box: box, scroll: scroll, maxLines: 1000}
}

// CanvasObject returns the widget to place in a layout.
func (lv *LogView) CanvasObject() fyne.CanvasObject { return lv.scroll }

// Clear removes every line.
func (lv *LogView) Clear() {
	lv.entries = nil
	lv.box.Objects = nil
	lv.box.Refresh()
}

// Append adds one line, truncating the oldest half once maxLines is hit.
func (lv *LogView) Append(level Level, msg string) {
	e := Entry{Level: level, Text: msg, At: time.Now()}
	lv.entries = append(lv.entries, e)
	if len(lv.entries) > lv.maxLines {
		lv.entries = lv.entries[len(lv.entries)-lv.maxLines/2:]
		lv.box.Objects = nil
		for _, ent := range lv.entries {
			lv.box.Add(lv.renderEntry(ent))
		}
	} else {
		lv.box.Add(lv.renderEntry(e))
	}
	lv.box.Refresh()
	if lv.scroll != nil {
		lv.scroll.ScrollToBottom()
	}
}

func (lv *LogView) colorFor(level Level) color.Color {
	switch level {
	case Error, Fatal:
		return color.RGBA{0xFF, 0x55, 0x55, 0xFF}
	case Warn:
		return color.RGBA{0xFF, 0xD7, 0x64, 0xFF}
	case Debug:
		return color.RGBA{0x9A, 0x9A, 0x9A, 0xFF}
	default: // Info
		return color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	}
}

func (lv *LogView) renderEntry(e Entry) fyne.CanvasObject {
	ts := e.At.Format("15:04:05")
	c := canvas.NewText(fmt.Sprintf("[%s] %s: %s", ts, e.Level, e.Text), lv.colorFor(e.Level))
	c.Alignment = fyne.TextAlignLeading
	c.TextSize = 12
	return c
}
