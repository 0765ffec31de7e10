package ui

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/qcent/lanxfer/internal/counters"
)

// ConnectionStatus is a small colored dot + label pair reporting whether
// the receiver's listen socket is up, and on which port, so the operator
// can read the bind address discovery beacons are answering for without
// hunting through the log pane.
type ConnectionStatus struct {
	widget.BaseWidget
	statusLabel *widget.Label
	statusIcon  *widget.Label
}

func NewConnectionStatus() *ConnectionStatus {
	cs := &ConnectionStatus{
		statusLabel: widget.NewLabel("Stopped"),
		statusIcon:  widget.NewLabel("●"),
	}
	cs.ExtendBaseWidget(cs)
	cs.SetListening(false, 0)
	return cs
}

func (cs *ConnectionStatus) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewHBox(cs.statusIcon, cs.statusLabel))
}

// SetListening reports whether the accept loop is bound to port.
func (cs *ConnectionStatus) SetListening(listening bool, port int) {
	if listening {
		cs.statusLabel.SetText(fmt.Sprintf("Listening on %d", port))
		cs.statusIcon.Importance = widget.SuccessImportance
	} else {
		cs.statusLabel.SetText("Stopped")
		cs.statusIcon.Importance = widget.DangerImportance
	}
}

// ProgressIndicator shows a progress bar plus a rate and ETA label, fed
// from counters.SpeedTracker samples.
type ProgressIndicator struct {
	widget.BaseWidget
	progressBar *widget.ProgressBar
	statusLabel *widget.Label
	speedLabel  *widget.Label
	etaLabel    *widget.Label
}

func NewProgressIndicator() *ProgressIndicator {
	pi := &ProgressIndicator{
		progressBar: widget.NewProgressBar(),
		statusLabel: widget.NewLabel("Waiting..."),
		speedLabel:  widget.NewLabel("0 B/s"),
		etaLabel:    widget.NewLabel("--:--"),
	}
	pi.ExtendBaseWidget(pi)
	return pi
}

func (pi *ProgressIndicator) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewVBox(
		pi.statusLabel,
		pi.progressBar,
		container.NewHBox(pi.speedLabel, widget.NewSeparator(), pi.etaLabel),
	))
}

// SetProgress updates the bar and derives an ETA from the current rate.
func (pi *ProgressIndicator) SetProgress(progress float64, speed float64, totalBytes, doneBytes uint64) {
	pi.progressBar.SetValue(progress)

	if speed <= 0 {
		pi.speedLabel.SetText("0 B/s")
		pi.etaLabel.SetText("--:--")
		return
	}

	pi.speedLabel.SetText(counters.FormatBytes(speed) + "/s")
	if totalBytes > doneBytes {
		remaining := totalBytes - doneBytes
		eta := time.Duration(float64(remaining)/speed) * time.Second
		pi.etaLabel.SetText(formatDuration(eta))
	} else {
		pi.etaLabel.SetText("--:--")
	}
}

func (pi *ProgressIndicator) SetStatus(status string) { pi.statusLabel.SetText(status) }

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%02d:%02d:00", h, m)
}

// ShowConflictDialog renders the spec.md §4.G UiDialog strategy: a modal
// offering Overwrite/Keep Both/Skip, invoking decide exactly once.
func ShowConflictDialog(win fyne.Window, name string, remoteSize, localSize uint64, decide func(counters.Decision)) {
	msg := fmt.Sprintf("%s already exists.\nLocal: %s   Incoming: %s",
		name, counters.FormatBytes(float64(localSize)), counters.FormatBytes(float64(remoteSize)))

	decided := false
	once := func(d counters.Decision) {
		if decided {
			return
		}
		decided = true
		decide(d)
	}

	dlg := dialog.NewCustom(name+" already exists", "Skip", widget.NewLabel(msg), win)
	overwrite := widget.NewButton("Overwrite", func() {
		dlg.Hide()
		once(counters.Overwrite)
	})
	keepBoth := widget.NewButton("Keep Both", func() {
		dlg.Hide()
		once(counters.KeepBoth)
	})
	dlg.SetContent(container.NewVBox(
		widget.NewLabel(msg),
		container.NewHBox(overwrite, keepBoth),
	))
	dlg.SetOnClosed(func() { once(counters.Skip) })
	dlg.Show()
}
